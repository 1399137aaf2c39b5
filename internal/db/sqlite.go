package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite" // SQLite driver
)

// DB wraps the SQLite handle and associated metadata.
type DB struct {
	sql  *sql.DB
	path string
}

// Open initialises a SQLite database at the given path, applies the schema
// and returns a DB wrapper.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", path)
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	if err := EnsurePerm0600(path); err != nil {
		handle.Close()
		return nil, err
	}

	d := &DB{sql: handle, path: path}
	if err := Migrate(d); err != nil {
		handle.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the database resources.
func Close(d *DB) error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Path returns the database file location.
func (d *DB) Path() string { return d.path }

// EnsurePerm0600 restricts the database file to its owner on Unix systems.
func EnsurePerm0600(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(path, 0o600); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chmod database: %w", err)
	}
	return nil
}

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS vault_records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ciphertext  BLOB    NOT NULL CHECK (length(ciphertext) > 0),
	iv          BLOB    NOT NULL CHECK (length(iv) > 0),
	created_at  INTEGER NOT NULL,
	modified_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vault_records_modified ON vault_records(modified_at);
`

// Migrate ensures the vault_records table exists.
func Migrate(d *DB) error {
	if d == nil || d.sql == nil {
		return fmt.Errorf("database handle is nil")
	}
	if _, err := d.sql.Exec(createRecordsTable); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
