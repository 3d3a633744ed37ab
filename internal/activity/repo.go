package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"classtrack/internal/apperr"
)

const uniqueViolation = "23505"

// Repository persists activities in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Catalog lists all activities ordered by name.
func (r *Repository) Catalog(ctx context.Context) ([]Ref, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM activities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// CreateActivity inserts a catalog entry.
func (r *Repository) CreateActivity(ctx context.Context, name string) (Ref, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO activities (name) VALUES ($1) RETURNING id`, name)

	ref := Ref{Name: name}
	if err := row.Scan(&ref.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Ref{}, fmt.Errorf("%w: activity %s", apperr.ErrConflict, name)
		}
		return Ref{}, fmt.Errorf("create activity: %w", err)
	}
	return ref, nil
}

// WeekFor returns a student's day-to-activity map.
func (r *Repository) WeekFor(ctx context.Context, studentID int) (map[string]Ref, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sa.day_of_week, a.id, a.name
		FROM student_activities sa
		JOIN activities a ON sa.activity_id = a.id
		WHERE sa.student_id = $1
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query week: %w", err)
	}
	defer rows.Close()

	week := make(map[string]Ref)
	for rows.Next() {
		var day string
		var ref Ref
		if err := rows.Scan(&day, &ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		week[day] = ref
	}
	return week, rows.Err()
}

// ReplaceWeek applies the map in one transaction: nil clears the day, a set
// id upserts on (student, day).
func (r *Repository) ReplaceWeek(ctx context.Context, studentID int, week map[string]*int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace week: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for day, activityID := range week {
		if activityID == nil {
			_, err = tx.ExecContext(ctx, `
				DELETE FROM student_activities
				WHERE student_id = $1 AND day_of_week = $2
			`, studentID, day)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO student_activities (student_id, activity_id, day_of_week)
				VALUES ($1, $2, $3)
				ON CONFLICT (student_id, day_of_week) DO UPDATE SET activity_id = EXCLUDED.activity_id
			`, studentID, *activityID, day)
		}
		if err != nil {
			return fmt.Errorf("replace %s: %w", day, err)
		}
	}
	return tx.Commit()
}

// ByDay lists assignments for one day across all classes.
func (r *Repository) ByDay(ctx context.Context, day string) ([]DayEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, a.name
		FROM student_activities sa
		JOIN students s ON sa.student_id = s.id
		JOIN activities a ON sa.activity_id = a.id
		WHERE sa.day_of_week = $1
		ORDER BY s.name
	`, day)
	if err != nil {
		return nil, fmt.Errorf("query by day: %w", err)
	}
	defer rows.Close()

	var entries []DayEntry
	for rows.Next() {
		var e DayEntry
		if err := rows.Scan(&e.StudentID, &e.StudentName, &e.ActivityName); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TeacherOverview lists (student, day, activity) rows for a class; students
// with no assignments appear once with empty day and activity.
func (r *Repository) TeacherOverview(ctx context.Context, teacherID int) ([]OverviewRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.name, COALESCE(sa.day_of_week, ''), COALESCE(a.name, '')
		FROM students s
		LEFT JOIN student_activities sa ON sa.student_id = s.id
		LEFT JOIN activities a ON sa.activity_id = a.id
		WHERE s.teacher_id = $1
		ORDER BY s.name, sa.day_of_week
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query overview: %w", err)
	}
	defer rows.Close()

	var out []OverviewRow
	for rows.Next() {
		var row OverviewRow
		if err := rows.Scan(&row.StudentName, &row.DayOfWeek, &row.Activity); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// StudentExists reports whether a student row exists.
func (r *Repository) StudentExists(ctx context.Context, studentID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, studentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check student: %w", err)
	}
	return exists, nil
}
