package store

import "context"

// schemaDDL bootstraps every table the service touches. Statements are
// idempotent so startup can apply them unconditionally.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS accounts (
	id SERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'teacher' CHECK (role IN ('teacher', 'admin', 'student')),
	class_display_name TEXT,
	last_login_at TIMESTAMPTZ,
	streak_count INTEGER NOT NULL DEFAULT 0,
	best_streak INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS students (
	id SERIAL PRIMARY KEY,
	teacher_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (teacher_id, name)
);

CREATE TABLE IF NOT EXISTS attendance (
	student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	date DATE NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('Present', 'Absent')),
	PRIMARY KEY (student_id, date)
);

CREATE TABLE IF NOT EXISTS activities (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS student_activities (
	student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
	day_of_week TEXT NOT NULL CHECK (day_of_week IN ('Mon', 'Tue', 'Wed', 'Thu', 'Fri', 'Sat', 'Sun')),
	PRIMARY KEY (student_id, day_of_week)
);

CREATE TABLE IF NOT EXISTS lock_states (
	resource_key TEXT PRIMARY KEY,
	locked BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_students_teacher ON students(teacher_id);
CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);
CREATE INDEX IF NOT EXISTS idx_student_activities_day ON student_activities(day_of_week);
`

// EnsureSchema applies the bootstrap DDL.
func (d *DB) EnsureSchema(ctx context.Context) error {
	_, err := d.Client.ExecContext(ctx, schemaDDL)
	return err
}
