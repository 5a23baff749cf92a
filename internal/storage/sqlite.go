package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/dsl"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS flows (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	dsl        TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// SQLiteStore persists flows in a single sqlite file. The DSL document is
// stored as a JSON blob, so the chat-owned pass-through fields survive
// byte-for-byte.
type SQLiteStore struct {
	db *sqlx.DB
}

type flowRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	DSL       []byte    `db:"dsl"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// OpenSQLite opens (creating if needed) the flow database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open flow db %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create flow schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create inserts a new flow and returns it with a generated id.
func (s *SQLiteStore) Create(ctx context.Context, title string, doc *dsl.Document) (*Flow, error) {
	if doc == nil {
		doc = dsl.NewDocument()
	}
	blob, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal flow dsl: %w", err)
	}
	now := time.Now().UTC()
	f := &Flow{
		ID:        uuid.NewString(),
		Title:     title,
		DSL:       doc,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flows (id, title, dsl, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.Title, blob, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert flow: %w", err)
	}
	return f, nil
}

// Load fetches one flow including its DSL document.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*Flow, error) {
	var row flowRow
	err := s.db.GetContext(ctx, &row, `SELECT id, title, dsl, created_at, updated_at FROM flows WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load flow %s: %w", id, err)
	}
	var doc dsl.Document
	if err := json.Unmarshal(row.DSL, &doc); err != nil {
		return nil, fmt.Errorf("decode flow %s dsl: %w", id, err)
	}
	return &Flow{
		ID:        row.ID,
		Title:     row.Title,
		DSL:       &doc,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// Save overwrites a flow's title and DSL document.
func (s *SQLiteStore) Save(ctx context.Context, id, title string, doc *dsl.Document) error {
	blob, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal flow dsl: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE flows SET title = ?, dsl = ?, updated_at = ? WHERE id = ?`,
		title, blob, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("save flow %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFlowNotFound
	}
	return nil
}

// List returns flow summaries ordered by last update, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]*Flow, error) {
	var rows []flowRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, title, created_at, updated_at FROM flows ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	out := make([]*Flow, 0, len(rows))
	for _, r := range rows {
		out = append(out, &Flow{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

// Delete removes a flow.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete flow %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFlowNotFound
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
