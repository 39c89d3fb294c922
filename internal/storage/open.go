package storage

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	DataDir     string
	SQLitePath  string // defaults to <DataDir>/afl-stats.db
	DatabaseURL string
}

// Open returns the Store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.DataDir == "" {
		opts.DataDir = DefaultDataDir
	}
	switch opts.Backend {
	case "", BackendCSV:
		return NewCSVStore(opts.DataDir)
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.DataDir, "afl-stats.db")
		}
		return OpenSQLite(ctx, path)
	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend requires a database URL")
		}
		return OpenPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
