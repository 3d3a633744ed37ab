package attendance

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertMark provisions the student if needed and writes the (student, date)
// fact as a single conflict-resolving upsert. The provisioning insert ignores
// conflicts so two concurrent first marks for a new student cannot race into
// a duplicate-key failure.
func (r *Repository) UpsertMark(ctx context.Context, teacherID int, studentName, status, date string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (teacher_id, name)
		VALUES ($1, $2)
		ON CONFLICT (teacher_id, name) DO NOTHING
	`, teacherID, studentName)
	if err != nil {
		return fmt.Errorf("provision student: %w", err)
	}

	var studentID int
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM students WHERE teacher_id = $1 AND name = $2`,
		teacherID, studentName,
	).Scan(&studentID)
	if err != nil {
		return fmt.Errorf("resolve student: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, date, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, date) DO UPDATE SET status = EXCLUDED.status
	`, studentID, date, status)
	if err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// AttendanceByTeacher returns every fact for a teacher keyed by student name
// then date.
func (r *Repository) AttendanceByTeacher(ctx context.Context, teacherID int) (map[string]map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.name, to_char(a.date, 'YYYY-MM-DD'), a.status
		FROM attendance a
		JOIN students s ON a.student_id = s.id
		WHERE s.teacher_id = $1
		ORDER BY s.name, a.date
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	records := make(map[string]map[string]string)
	for rows.Next() {
		var name, date, status string
		if err := rows.Scan(&name, &date, &status); err != nil {
			return nil, err
		}
		if records[name] == nil {
			records[name] = make(map[string]string)
		}
		records[name][date] = status
	}
	return records, rows.Err()
}

// RosterWithStatus lists every student of a teacher with their status on the
// given date, nil when unmarked.
func (r *Repository) RosterWithStatus(ctx context.Context, teacherID int, date string) ([]RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.name, a.status
		FROM students s
		LEFT JOIN attendance a ON a.student_id = s.id AND a.date = $2
		WHERE s.teacher_id = $1
		ORDER BY s.name
	`, teacherID, date)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var entries []RosterEntry
	for rows.Next() {
		var entry RosterEntry
		var status sql.NullString
		if err := rows.Scan(&entry.Name, &status); err != nil {
			return nil, err
		}
		if status.Valid {
			entry.Status = &status.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
