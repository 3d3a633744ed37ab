package points

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository persists point balances in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Begin opens the batch transaction.
func (r *Repository) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin points batch: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

// PointsByTeacher lists balances ordered by name.
func (r *Repository) PointsByTeacher(ctx context.Context, teacherID int) ([]StudentPoints, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, points
		FROM students
		WHERE teacher_id = $1
		ORDER BY name ASC
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var balances []StudentPoints
	for rows.Next() {
		var sp StudentPoints
		if err := rows.Scan(&sp.Name, &sp.Points); err != nil {
			return nil, err
		}
		balances = append(balances, sp)
	}
	return balances, rows.Err()
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) SetPoints(ctx context.Context, teacherID int, name string, pts int) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE students
		SET points = $1
		WHERE teacher_id = $2 AND name = $3
	`, pts, teacherID, name)
	if err != nil {
		return 0, fmt.Errorf("set points for %s: %w", name, err)
	}
	return res.RowsAffected()
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }
