// Package serverstore is the server-side todo store (S2): a sqlite-backed
// table of todos and tombstones, indexed by server id and by update time,
// plus the user table backing bearer-token authentication (S1).
package serverstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps the server database connection.
type Store struct {
	conn *sql.DB
}

// Open opens the server database, applying WAL mode and the pragmas the
// single-writer model relies on, and ensures the schema exists.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.setSchemaVersion(SchemaVersion); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) setSchemaVersion(v int) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`, fmt.Sprintf("%d", v))
	return err
}

// Ping checks the database connection is alive.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// Close checkpoints the WAL and closes the database connection.
func (s *Store) Close() error {
	s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.conn.Close()
}

// BeginTx starts a transaction that spans an entire push (S3, I5).
func (s *Store) BeginTx() (*sql.Tx, error) {
	return s.conn.Begin()
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back if fn returns an error or panics.
func (s *Store) WithTx(fn func(*sql.Tx) error) (err error) {
	tx, err := s.BeginTx()
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
