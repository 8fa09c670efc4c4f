// Package db is the local state store: a small SQLite key/value table
// partitioned by client scope.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for a missing key
var ErrNotFound = errors.New("key not found")

// StorageError wraps a failed store operation
type StorageError struct {
	Op    string // "get", "put", "delete", "clear"
	Scope string
	Key   string
	Err   error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage error: %s [%s]: %v", e.Op, e.Scope, e.Err)
	}
	return fmt.Sprintf("storage error: %s [%s] %s: %v", e.Op, e.Scope, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and initializes the schema
func New(dbPath string) (*DB, error) {
	// Ensure parent directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL lets a second client read while another writes
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1) // SQLite only supports one writer
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Put stores value under scope/key, replacing any previous value
func (db *DB) Put(ctx context.Context, scope, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO local_state (scope, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, scope, key, value, time.Now().UTC())
	if err != nil {
		return &StorageError{Op: "put", Scope: scope, Key: key, Err: err}
	}
	return nil
}

// Get returns the value stored under scope/key, or ErrNotFound
func (db *DB) Get(ctx context.Context, scope, key string) ([]byte, error) {
	var value []byte
	err := db.conn.QueryRowContext(ctx, `
		SELECT value FROM local_state WHERE scope = ? AND key = ?
	`, scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Scope: scope, Key: key, Err: err}
	}
	return value, nil
}

// Delete removes scope/key. Deleting a missing key is not an error.
func (db *DB) Delete(ctx context.Context, scope, key string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM local_state WHERE scope = ? AND key = ?`, scope, key)
	if err != nil {
		return &StorageError{Op: "delete", Scope: scope, Key: key, Err: err}
	}
	return nil
}

// Keys lists the keys stored in scope
func (db *DB) Keys(ctx context.Context, scope string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT key FROM local_state WHERE scope = ? ORDER BY key`, scope)
	if err != nil {
		return nil, &StorageError{Op: "keys", Scope: scope, Err: err}
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, &StorageError{Op: "keys", Scope: scope, Err: err}
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ClearScope removes everything stored in scope
func (db *DB) ClearScope(ctx context.Context, scope string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM local_state WHERE scope = ?`, scope)
	if err != nil {
		return &StorageError{Op: "clear", Scope: scope, Err: err}
	}
	return nil
}

// PruneBefore removes every entry last written before cutoff, which cleans up
// scopes left behind by runs that exited without clearing. Returns the number
// of rows removed.
func (db *DB) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM local_state WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, &StorageError{Op: "prune", Err: err}
	}
	return res.RowsAffected()
}
