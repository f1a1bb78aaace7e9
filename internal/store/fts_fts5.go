//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS templates_fts USING fts5(
			id UNINDEXED,
			name,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, id, name, body string) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM templates_fts WHERE id = ?`, id)
	_, err := tx.ExecContext(ctx, `INSERT INTO templates_fts (id, name, body) VALUES (?, ?, ?)`, id, name, body)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM templates_fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching templates
// with highlighted snippets.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT f.id,
		       f.name,
		       t.category,
		       snippet(templates_fts, 2, '<b>', '</b>', '...', 32)
		FROM templates_fts f
		JOIN templates t ON t.id = f.id
		WHERE templates_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Name, &r.Category, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
