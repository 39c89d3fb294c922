package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 20 * time.Millisecond

// CSVStore keeps one CSV file per partition.
type CSVStore struct {
	dataDir string
}

// NewCSVStore creates a CSV store rooted at dataDir, creating it if needed.
func NewCSVStore(dataDir string) (*CSVStore, error) {
	dataDir, err := ExpandPath(dataDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &CSVStore{dataDir: dataDir}, nil
}

// Dir returns the root directory.
func (s *CSVStore) Dir() string {
	return s.dataDir
}

func (s *CSVStore) partitionPath(p Partition) string {
	return filepath.Join(s.dataDir, SafeKey(p.Entity), SafeKey(p.Key)+".csv")
}

// ReadAll implements Store.
func (s *CSVStore) ReadAll(ctx context.Context, p Partition) (*Table, error) {
	f, err := os.Open(s.partitionPath(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading partition %s: %w", p, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading partition %s: empty file", p)
		}
		return nil, fmt.Errorf("reading partition %s: %w", p, err)
	}
	t := &Table{Columns: header}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading partition %s: %w", p, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteAll implements Store. The new contents are written to a temporary
// file in the same directory and renamed over the old file while holding a
// lock file, so concurrent processes never interleave writes.
func (s *CSVStore) WriteAll(ctx context.Context, p Partition, t *Table) error {
	if err := validate(t); err != nil {
		return fmt.Errorf("writing partition %s: %w", p, err)
	}
	path := s.partitionPath(p)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating partition directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("locking partition %s: %w", p, err)
	}
	if !locked {
		return fmt.Errorf("locking partition %s: lock not acquired", p)
	}
	defer lock.Unlock() // nolint:errcheck

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // nolint:errcheck

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Columns); err != nil {
		tmp.Close()
		return fmt.Errorf("writing partition %s: %w", p, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		tmp.Close()
		return fmt.Errorf("writing partition %s: %w", p, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing partition %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing partition %s: %w", p, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing partition %s: %w", p, err)
	}
	return nil
}

// List implements Store.
func (s *CSVStore) List(ctx context.Context, entity string) ([]Partition, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, SafeKey(entity)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", entity, err)
	}
	var parts []Partition
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		parts = append(parts, Partition{Entity: entity, Key: strings.TrimSuffix(name, ".csv")})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Key < parts[j].Key })
	return parts, nil
}

// Close implements Store.
func (s *CSVStore) Close() error {
	return nil
}
