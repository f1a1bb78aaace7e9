package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/minuta/internal/apperr"
	"github.com/starford/minuta/internal/models"
	"github.com/starford/minuta/internal/render"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category models.Category `json:"category"`
	Snippet  string          `json:"snippet"`
}

const templateColumns = `id, name, category, content, variables, source_path, checksum, created_at, updated_at`

// Upsert inserts or replaces a template and its FTS entry within a
// transaction. fileChecksum is the digest of the library file the template
// was imported from, or "" for templates without one.
func (db *DB) Upsert(ctx context.Context, t models.Template, fileChecksum string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	vars := t.Variables
	if vars == nil {
		vars = []models.Variable{}
	}
	varsJSON, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("store: encode variables: %w", err)
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	body := render.PlainText(t.Content)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO templates (id, name, category, content, body, variables, source_path, file_checksum, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name          = excluded.name,
			category      = excluded.category,
			content       = excluded.content,
			body          = excluded.body,
			variables     = excluded.variables,
			source_path   = excluded.source_path,
			file_checksum = excluded.file_checksum,
			checksum      = excluded.checksum,
			updated_at    = excluded.updated_at
	`, t.ID, t.Name, string(t.Category), t.Content, body, string(varsJSON),
		nullString(t.SourcePath), fileChecksum, t.Checksum, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("store: source path %q: %w", t.SourcePath, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: upsert template: %w", err)
	}

	if err := ftsUpsert(ctx, tx, t.ID, t.Name, body); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns the template with the given id.
func (db *DB) Get(ctx context.Context, id string) (*models.Template, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	return scanTemplate(row)
}

// BySourcePath returns the template imported from a library file.
func (db *DB) BySourcePath(ctx context.Context, path string) (*models.Template, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE source_path = ?`, path)
	return scanTemplate(row)
}

// Delete removes a template and its FTS entry.
func (db *DB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	if err := ftsDelete(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteBySourcePath removes the template imported from path and returns
// its id. A path with no template is not an error; the id is then "".
func (db *DB) DeleteBySourcePath(ctx context.Context, path string) (string, error) {
	var id string
	err := db.conn.QueryRowContext(ctx, `SELECT id FROM templates WHERE source_path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: lookup %s: %w", path, err)
	}
	if err := db.Delete(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// List returns the templates of a category, newest first. An empty category
// lists every template.
func (db *DB) List(ctx context.Context, category models.Category) ([]models.Template, error) {
	q := `SELECT ` + templateColumns + ` FROM templates`
	var args []any
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, string(category))
	}
	q += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list templates: %w", err)
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Count returns the number of stored templates.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM templates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// LibraryChecksums maps each library source path to its file checksum.
func (db *DB) LibraryChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT source_path, file_checksum FROM templates WHERE source_path IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("store: library checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(r rowScanner) (*models.Template, error) {
	var (
		t        models.Template
		category string
		varsJSON string
		source   sql.NullString
	)
	err := r.Scan(&t.ID, &t.Name, &category, &t.Content, &varsJSON, &source, &t.Checksum, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan template: %w", err)
	}
	t.Category = models.Category(category)
	t.SourcePath = source.String
	if err := json.Unmarshal([]byte(varsJSON), &t.Variables); err != nil {
		return nil, fmt.Errorf("store: decode variables of %s: %w", t.ID, err)
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
