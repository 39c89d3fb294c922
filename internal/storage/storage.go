package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDataDir is used when no data directory is configured.
const DefaultDataDir = "~/.local/share/afl-stats"

// ErrNotFound is returned by ReadAll for a partition that was never written.
var ErrNotFound = errors.New("partition not found")

// Partition names one unit of persistence within an entity.
type Partition struct {
	Entity string
	Key    string
}

func (p Partition) String() string {
	return p.Entity + "/" + p.Key
}

// Table is the full contents of a partition: a header and string rows.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Store reads and replaces whole partitions.
type Store interface {
	// ReadAll returns ErrNotFound when the partition does not exist.
	ReadAll(ctx context.Context, p Partition) (*Table, error)
	// WriteAll atomically replaces the partition.
	WriteAll(ctx context.Context, p Partition, t *Table) error
	// List returns the partitions stored for an entity.
	List(ctx context.Context, entity string) ([]Partition, error)
	Close() error
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// SafeKey maps a partition key to a string usable as a file name.
func SafeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func validate(t *Table) error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, header has %d", i, len(row), len(t.Columns))
		}
	}
	return nil
}
