package entry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the entry database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL keeps the wizard and the agent from blocking each other.
	dsn := dbPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS entries (
		entry_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		host_url TEXT NOT NULL,
		prompt_context TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Create inserts a new entry record.
func (s *SQLiteStore) Create(ctx context.Context, ent Entry) error {
	now := time.Now()
	if ent.CreatedAt.IsZero() {
		ent.CreatedAt = now
	}
	if ent.UpdatedAt.IsZero() {
		ent.UpdatedAt = now
	}

	query := `
	INSERT INTO entries (entry_id, title, host_url, prompt_context, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		ent.ID, ent.Title, ent.HostURL, ent.Options.PromptContext,
		ent.CreatedAt.Unix(), ent.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by id.
func (s *SQLiteStore) Get(ctx context.Context, entryID string) (Entry, error) {
	query := `
	SELECT entry_id, title, host_url, prompt_context, created_at, updated_at
	FROM entries WHERE entry_id = ?`

	return s.scanEntry(s.db.QueryRowContext(ctx, query, entryID))
}

// List returns all entries in creation order.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	query := `
	SELECT entry_id, title, host_url, prompt_context, created_at, updated_at
	FROM entries ORDER BY created_at, entry_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		ent, err := s.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ent)
	}
	return entries, rows.Err()
}

// UpdateOptions replaces the mutable options of an entry.
func (s *SQLiteStore) UpdateOptions(ctx context.Context, entryID string, opts Options) error {
	query := `UPDATE entries SET prompt_context = ?, updated_at = ? WHERE entry_id = ?`

	res, err := s.db.ExecContext(ctx, query, opts.PromptContext, time.Now().Unix(), entryID)
	if err != nil {
		return fmt.Errorf("update entry options: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry options: %w", err)
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Delete removes an entry record.
func (s *SQLiteStore) Delete(ctx context.Context, entryID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE entry_id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanEntry(row rowScanner) (Entry, error) {
	var ent Entry
	var createdAt, updatedAt int64

	err := row.Scan(&ent.ID, &ent.Title, &ent.HostURL, &ent.Options.PromptContext, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan entry row: %w", err)
	}

	ent.CreatedAt = time.Unix(createdAt, 0)
	ent.UpdatedAt = time.Unix(updatedAt, 0)
	return ent, nil
}
