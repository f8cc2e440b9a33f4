// Package journal stores the assistant's journal entries. The pattern core
// only consults it to validate entry-link targets; entries themselves are a
// thin append-only log.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is one journal entry.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists journal entries. It shares the pattern store's database
// handle and owns only its own table.
type Store struct {
	db *sql.DB
}

// NewStore attaches the journal tables to an open database.
func NewStore(db *sql.DB) (*Store, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS journal_entries (
			id TEXT PRIMARY KEY,
			title TEXT,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_journal_created ON journal_entries(created_at DESC);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to init journal schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Add appends a journal entry.
func (s *Store) Add(ctx context.Context, title, content string) (*Entry, error) {
	e := &Entry{
		ID:        ulid.Make().String(),
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, title, content, created_at) VALUES (?, ?, ?, ?)
	`, e.ID, e.Title, e.Content, e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}
	return e, nil
}

// Exists reports whether an entry id is valid as a pattern link target.
func (s *Store) Exists(ctx context.Context, entryID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM journal_entries WHERE id = ?`, entryID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the most recent entries.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, created_at FROM journal_entries
		ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var title sql.NullString
		if err := rows.Scan(&e.ID, &title, &e.Content, &e.CreatedAt); err != nil {
			continue
		}
		if title.Valid {
			e.Title = title.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
