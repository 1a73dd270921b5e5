package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/voss/atelier/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	partition  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (partition, key)
);
`

// DB wraps a sql.DB with partitioned key-value operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("kvstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvstore: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the value for key in partition, or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, partition, key string) ([]byte, error) {
	var value []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE partition = ? AND key = ?`, partition, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: get %s/%s: %w", partition, key, err)
	}
	return value, nil
}

// Set stores value under key in partition, overwriting any previous value.
func (db *DB) Set(ctx context.Context, partition, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO kv (partition, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(partition, key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, partition, key, value)
	if err != nil {
		return fmt.Errorf("kvstore: set %s/%s: %w", partition, key, err)
	}
	return nil
}

// Remove deletes key from partition. Absent keys are tolerated.
func (db *DB) Remove(ctx context.Context, partition, key string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM kv WHERE partition = ? AND key = ?`, partition, key)
	if err != nil {
		return fmt.Errorf("kvstore: remove %s/%s: %w", partition, key, err)
	}
	return nil
}

// Clear removes every key in partition.
func (db *DB) Clear(ctx context.Context, partition string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE partition = ?`, partition)
	if err != nil {
		return fmt.Errorf("kvstore: clear %s: %w", partition, err)
	}
	return nil
}

// Keys returns every key in partition.
func (db *DB) Keys(ctx context.Context, partition string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT key FROM kv WHERE partition = ? ORDER BY key`, partition)
	if err != nil {
		return nil, fmt.Errorf("kvstore: keys %s: %w", partition, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
