package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS partitions (
	entity TEXT NOT NULL,
	partition_key TEXT NOT NULL,
	columns JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (entity, partition_key)
);
CREATE TABLE IF NOT EXISTS partition_rows (
	entity TEXT NOT NULL,
	partition_key TEXT NOT NULL,
	row_index INTEGER NOT NULL,
	cells JSONB NOT NULL,
	PRIMARY KEY (entity, partition_key, row_index)
);`

// PostgresStore keeps partitions in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and ensures the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// ReadAll implements Store.
func (s *PostgresStore) ReadAll(ctx context.Context, p Partition) (*Table, error) {
	var columns []byte
	err := s.pool.QueryRow(ctx,
		`SELECT columns FROM partitions WHERE entity = $1 AND partition_key = $2`,
		p.Entity, p.Key).Scan(&columns)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading partition %s: %w", p, err)
	}
	t := &Table{}
	if err := json.Unmarshal(columns, &t.Columns); err != nil {
		return nil, fmt.Errorf("decoding columns of %s: %w", p, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT cells FROM partition_rows WHERE entity = $1 AND partition_key = $2 ORDER BY row_index`,
		p.Entity, p.Key)
	if err != nil {
		return nil, fmt.Errorf("reading partition %s: %w", p, err)
	}
	defer rows.Close()
	for rows.Next() {
		var cells []byte
		if err := rows.Scan(&cells); err != nil {
			return nil, fmt.Errorf("reading partition %s: %w", p, err)
		}
		var row []string
		if err := json.Unmarshal(cells, &row); err != nil {
			return nil, fmt.Errorf("decoding row of %s: %w", p, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

// WriteAll implements Store. Rows are sent as one batch inside a transaction.
func (s *PostgresStore) WriteAll(ctx context.Context, p Partition, t *Table) error {
	if err := validate(t); err != nil {
		return fmt.Errorf("writing partition %s: %w", p, err)
	}
	columns, err := json.Marshal(t.Columns)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM partition_rows WHERE entity = $1 AND partition_key = $2`, p.Entity, p.Key)
	batch.Queue(`INSERT INTO partitions (entity, partition_key, columns, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity, partition_key) DO UPDATE SET columns = EXCLUDED.columns, updated_at = EXCLUDED.updated_at`,
		p.Entity, p.Key, string(columns), time.Now().UTC())
	for i, row := range t.Rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return err
		}
		batch.Queue(`INSERT INTO partition_rows (entity, partition_key, row_index, cells) VALUES ($1, $2, $3, $4)`,
			p.Entity, p.Key, i, string(cells))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing partition %s: %w", p, err)
	}
	return tx.Commit(ctx)
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, entity string) ([]Partition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT partition_key FROM partitions WHERE entity = $1 ORDER BY partition_key`, entity)
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

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
