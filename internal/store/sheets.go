package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/sheetloom-cli/internal/sheet"
)

const sheetColumns = `id, name, content, encrypted, vault_ref, tags, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSheet(row scanner) (sheet.Sheet, error) {
	var (
		s                sheet.Sheet
		encrypted        int
		tags             string
		created, updated string
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Content, &encrypted, &s.VaultRef, &tags, &created, &updated); err != nil {
		return sheet.Sheet{}, err
	}
	s.Encrypted = encrypted != 0
	if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
		return sheet.Sheet{}, fmt.Errorf("decode tags for sheet %d: %w", s.ID, err)
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return s, nil
}

// Get loads one sheet by ID.
func (d *DB) Get(ctx context.Context, id int64) (sheet.Sheet, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+sheetColumns+` FROM sheets WHERE id = ?`, id)
	s, err := scanSheet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sheet.Sheet{}, fmt.Errorf("%w: id %d", sheet.ErrNotFound, id)
	}
	if err != nil {
		return sheet.Sheet{}, fmt.Errorf("get sheet %d: %w", id, err)
	}
	return s, nil
}

// Put inserts s when its ID is zero and updates it otherwise. It returns the sheet's ID.
func (d *DB) Put(ctx context.Context, s sheet.Sheet) (int64, error) {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	tagJSON, err := json.Marshal(tags)
	if err != nil {
		return 0, fmt.Errorf("encode tags: %w", err)
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	enc := 0
	if s.Encrypted {
		enc = 1
	}
	created := s.CreatedAt.UTC().Format(time.RFC3339Nano)
	updated := s.UpdatedAt.UTC().Format(time.RFC3339Nano)

	id := s.ID
	if id == 0 {
		res, err := d.db.ExecContext(ctx,
			`INSERT INTO sheets (name, content, encrypted, vault_ref, tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.Name, s.Content, enc, s.VaultRef, string(tagJSON), created, updated)
		if err != nil {
			return 0, fmt.Errorf("insert sheet: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("insert sheet: %w", err)
		}
	} else {
		res, err := d.db.ExecContext(ctx,
			`UPDATE sheets SET name = ?, content = ?, encrypted = ?, vault_ref = ?, tags = ?, updated_at = ? WHERE id = ?`,
			s.Name, s.Content, enc, s.VaultRef, string(tagJSON), updated, id)
		if err != nil {
			return 0, fmt.Errorf("update sheet %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, fmt.Errorf("%w: id %d", sheet.ErrNotFound, id)
		}
	}
	d.notify()
	return id, nil
}

// Delete removes the sheet. Deleting a missing sheet reports ErrNotFound.
func (d *DB) Delete(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM sheets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sheet %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %d", sheet.ErrNotFound, id)
	}
	d.notify()
	return nil
}

// List returns every sheet, most recently updated first.
func (d *DB) List(ctx context.Context) ([]sheet.Sheet, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+sheetColumns+` FROM sheets ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()
	var out []sheet.Sheet
	for rows.Next() {
		s, err := scanSheet(rows)
		if err != nil {
			return nil, fmt.Errorf("list sheets: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
