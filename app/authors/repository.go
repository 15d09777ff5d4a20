package authors

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Repository caches author account creation timestamps between runs so the
// account-age filter does not re-query the same author on every digest.
// A NULL created_at marks an author whose metadata could not be fetched.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the cache database and applies migrations.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Get returns the cached account creation time for an author. The second
// return value reports whether the author is present at all; a present
// author may still carry a nil timestamp (unknown metadata).
func (r *Repository) Get(name string) (*time.Time, bool, error) {
	var createdAt sql.NullInt64
	err := r.db.QueryRow(`
		SELECT created_at FROM authors WHERE name = ?
	`, name).Scan(&createdAt)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get author: %w", err)
	}

	if !createdAt.Valid {
		return nil, true, nil
	}
	t := time.Unix(createdAt.Int64, 0).UTC()
	return &t, true, nil
}

// Put stores or refreshes an author entry. A nil createdAt records the
// author as unknown.
func (r *Repository) Put(name string, createdAt *time.Time) error {
	var value sql.NullInt64
	if createdAt != nil {
		value = sql.NullInt64{Int64: createdAt.Unix(), Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO authors (name, created_at, checked_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			created_at = excluded.created_at,
			checked_at = excluded.checked_at
	`, name, value, time.Now().Unix())

	if err != nil {
		return fmt.Errorf("failed to put author: %w", err)
	}

	return nil
}

// Count returns the number of cached authors.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM authors").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count authors: %w", err)
	}
	return count, nil
}
