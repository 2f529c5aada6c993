// Package store persists sheets and vault records in a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sheets (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	encrypted  INTEGER NOT NULL DEFAULT 0,
	vault_ref  TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sheets_updated ON sheets(updated_at);

CREATE TABLE IF NOT EXISTS secrets (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB implements sheet.Persistence and sheet.Watcher. Vault records live in
// the same file and are reached through Secrets.
type DB struct {
	db   *sql.DB
	path string
	log  *zap.Logger

	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

// Open opens or creates the database at path. Use ":memory:" in tests that
// do not need file watching.
func Open(ctx context.Context, path string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	log.Debug("database ready", zap.String("path", path))
	return &DB{db: db, path: path, log: log, subs: map[int]chan struct{}{}}, nil
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Close releases the database handle.
func (d *DB) Close() error { return d.db.Close() }
