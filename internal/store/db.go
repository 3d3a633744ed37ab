package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Every operation here is one short transaction, so a small pool covers the
// request-bound workload.
const (
	maxOpenConns    = 12
	maxIdleConns    = 4
	connMaxLifetime = 30 * time.Minute
)

// DB is the Postgres handle shared by the repositories.
type DB struct {
	Client *sql.DB
}

// NewDB opens a pgx-backed pool and verifies the server is reachable before
// handing it out.
func NewDB(ctx context.Context, connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{Client: db}, nil
}

// Close releases the pool.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
