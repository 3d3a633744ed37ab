package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"classtrack/internal/apperr"
)

const uniqueViolation = "23505"

// Repository persists students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a student.
func (r *Repository) Create(ctx context.Context, teacherID int, name string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (teacher_id, name)
		VALUES ($1, $2)
		RETURNING id, name, points
	`, teacherID, name)

	var student Student
	if err := row.Scan(&student.ID, &student.Name, &student.Points); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Student{}, fmt.Errorf("%w: student %s", apperr.ErrConflict, name)
		}
		return Student{}, fmt.Errorf("create student: %w", err)
	}
	return student, nil
}

// Delete removes a student by (teacher, name). Attendance rows cascade.
func (r *Repository) Delete(ctx context.Context, teacherID int, name string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM students WHERE teacher_id = $1 AND name = $2`, teacherID, name)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: student %s", apperr.ErrNotFound, name)
	}
	return nil
}

// ByTeacher lists students ordered by name.
func (r *Repository) ByTeacher(ctx context.Context, teacherID int) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, points
		FROM students
		WHERE teacher_id = $1
		ORDER BY name
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Points); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}
