package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/forcegraph/internal/apperr"
)

// SceneRow represents a row in the scenes table.
type SceneRow struct {
	Path      string    `json:"path"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	NodeCount int       `json:"node_count"`
	LinkCount int       `json:"link_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Upsert inserts or replaces the row for r.Path.
func (db *DB) Upsert(r SceneRow) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO scenes (path, id, name, checksum, node_count, link_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id         = excluded.id,
			name       = excluded.name,
			checksum   = excluded.checksum,
			node_count = excluded.node_count,
			link_count = excluded.link_count,
			updated_at = excluded.updated_at
	`, r.Path, r.ID, r.Name, r.Checksum, r.NodeCount, r.LinkCount, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert scene: %w", err)
	}
	return nil
}

// Delete removes the row for path. Deleting an unknown path is not an error.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM scenes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("catalog: delete scene: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for path, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM scenes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalog: get checksum: %w", err)
	}
	return cs, nil
}

// Get returns the scene with the given id. When several files declare the
// same id the lexically first path wins.
func (db *DB) Get(id string) (*SceneRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, id, name, checksum, node_count, link_count, updated_at
		FROM scenes WHERE id = ? ORDER BY path LIMIT 1`, id)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: scene %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get scene: %w", err)
	}
	return r, nil
}

// List returns every catalogued scene ordered by path.
func (db *DB) List() ([]SceneRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, id, name, checksum, node_count, link_count, updated_at
		FROM scenes ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var out []SceneRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every catalogued file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM scenes`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*SceneRow, error) {
	var r SceneRow
	if err := s.Scan(&r.Path, &r.ID, &r.Name, &r.Checksum, &r.NodeCount, &r.LinkCount, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
