package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository persists lock flags in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get reads the flag for key. A missing row means unlocked.
func (r *Repository) Get(ctx context.Context, key string) (bool, error) {
	var locked bool
	err := r.db.QueryRowContext(ctx,
		`SELECT locked FROM lock_states WHERE resource_key = $1`, key,
	).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read lock %s: %w", key, err)
	}
	return locked, nil
}

// Set upserts the flag for key.
func (r *Repository) Set(ctx context.Context, key string, locked bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lock_states (resource_key, locked)
		VALUES ($1, $2)
		ON CONFLICT (resource_key) DO UPDATE SET locked = EXCLUDED.locked
	`, key, locked)
	if err != nil {
		return fmt.Errorf("set lock %s: %w", key, err)
	}
	return nil
}
