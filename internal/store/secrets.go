package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Secrets is the vault record table of a DB. It implements sheet.SecretStore.
type Secrets struct {
	db *sql.DB
}

// Secrets returns the secret store sharing d's connection.
func (d *DB) Secrets() *Secrets { return &Secrets{db: d.db} }

// Write stores value under key, replacing any previous value.
func (s *Secrets) Write(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO secrets (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("write secret: %w", err)
	}
	return nil
}

// Read returns the value stored under key; ok is false when there is none.
func (s *Secrets) Read(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM secrets WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read secret: %w", err)
	}
	return v, true, nil
}

// Delete removes key. Missing keys are not an error.
func (s *Secrets) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}
