package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS partitions (
	entity TEXT NOT NULL,
	partition_key TEXT NOT NULL,
	columns TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (entity, partition_key)
);
CREATE TABLE IF NOT EXISTS partition_rows (
	entity TEXT NOT NULL,
	partition_key TEXT NOT NULL,
	row_index INTEGER NOT NULL,
	cells TEXT NOT NULL,
	PRIMARY KEY (entity, partition_key, row_index)
);`

// SQLiteStore keeps partitions in a single SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// sqliteDSN carries the pragmas in the connection string so that every
// connection in the pool waits on a locked database instead of failing.
// Transactions take the write lock when they begin.
func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// ReadAll implements Store.
func (s *SQLiteStore) ReadAll(ctx context.Context, p Partition) (*Table, error) {
	var columns string
	err := s.db.QueryRowContext(ctx,
		`SELECT columns FROM partitions WHERE entity = ? AND partition_key = ?`,
		p.Entity, p.Key).Scan(&columns)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading partition %s: %w", p, err)
	}
	t := &Table{}
	if err := json.Unmarshal([]byte(columns), &t.Columns); err != nil {
		return nil, fmt.Errorf("decoding columns of %s: %w", p, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT cells FROM partition_rows WHERE entity = ? AND partition_key = ? ORDER BY row_index`,
		p.Entity, p.Key)
	if err != nil {
		return nil, fmt.Errorf("reading partition %s: %w", p, err)
	}
	defer rows.Close()
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, fmt.Errorf("reading partition %s: %w", p, err)
		}
		var row []string
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return nil, fmt.Errorf("decoding row of %s: %w", p, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

// WriteAll implements Store. The partition is replaced inside one transaction.
func (s *SQLiteStore) WriteAll(ctx context.Context, p Partition, t *Table) error {
	if err := validate(t); err != nil {
		return fmt.Errorf("writing partition %s: %w", p, err)
	}
	columns, err := json.Marshal(t.Columns)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM partition_rows WHERE entity = ? AND partition_key = ?`, p.Entity, p.Key); err != nil {
		return fmt.Errorf("clearing partition %s: %w", p, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO partitions (entity, partition_key, columns, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (entity, partition_key) DO UPDATE SET columns = excluded.columns, updated_at = excluded.updated_at`,
		p.Entity, p.Key, string(columns), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("writing partition %s: %w", p, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO partition_rows (entity, partition_key, row_index, cells) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, row := range t.Rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, p.Entity, p.Key, i, string(cells)); err != nil {
			return fmt.Errorf("writing row %d of %s: %w", i, p, err)
		}
	}
	return tx.Commit()
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, entity string) ([]Partition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT partition_key FROM partitions WHERE entity = ? ORDER BY partition_key`, entity)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", entity, err)
	}
	defer rows.Close()
	var parts []Partition
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		parts = append(parts, Partition{Entity: entity, Key: key})
	}
	return parts, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
