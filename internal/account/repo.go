package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"classtrack/internal/apperr"
)

const uniqueViolation = "23505"

// Repository persists accounts in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ByUsername loads one account with its streak state.
func (r *Repository) ByUsername(ctx context.Context, username string) (Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, COALESCE(class_display_name, ''),
		       last_login_at, streak_count, best_streak
		FROM accounts
		WHERE username = $1
	`, username)

	var acct Account
	var lastLogin sql.NullTime
	err := row.Scan(&acct.ID, &acct.Username, &acct.PasswordHash, &acct.Role,
		&acct.DisplayName, &lastLogin, &acct.Streak.Count, &acct.Streak.Best)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: account %s", apperr.ErrNotFound, username)
	}
	if err != nil {
		return Account{}, fmt.Errorf("load account: %w", err)
	}
	if lastLogin.Valid {
		acct.Streak.LastLoginAt = lastLogin.Time
	}
	return acct, nil
}

// Create inserts an account.
func (r *Repository) Create(ctx context.Context, username, passwordHash, role string) (Account, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`, username, passwordHash, role)

	acct := Account{Username: username, Role: role, PasswordHash: passwordHash}
	if err := row.Scan(&acct.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Account{}, fmt.Errorf("%w: username %s", apperr.ErrConflict, username)
		}
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return acct, nil
}

// ApplyLogin advances the streak inside one transaction. The row is re-read
// under FOR UPDATE so two concurrent logins for the same account serialize
// instead of both incrementing from the same previous value.
func (r *Repository) ApplyLogin(ctx context.Context, accountID int, now time.Time) (Streak, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Streak{}, fmt.Errorf("begin login: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT last_login_at, streak_count, best_streak
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)

	var prev Streak
	var lastLogin sql.NullTime
	if err := row.Scan(&lastLogin, &prev.Count, &prev.Best); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Streak{}, fmt.Errorf("%w: account %d", apperr.ErrNotFound, accountID)
		}
		return Streak{}, fmt.Errorf("read streak: %w", err)
	}
	if lastLogin.Valid {
		prev.LastLoginAt = lastLogin.Time
	}

	next := nextStreak(prev, now)
	_, err = tx.ExecContext(ctx, `
		UPDATE accounts
		SET last_login_at = $2, streak_count = $3, best_streak = $4
		WHERE id = $1
	`, accountID, next.LastLoginAt, next.Count, next.Best)
	if err != nil {
		return Streak{}, fmt.Errorf("write streak: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Streak{}, fmt.Errorf("commit login: %w", err)
	}
	return next, nil
}

// UpdatePassword replaces the stored hash.
func (r *Repository) UpdatePassword(ctx context.Context, accountID int, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $1 WHERE id = $2`, passwordHash, accountID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res, accountID)
}

// UpdateDisplayName replaces the class display name.
func (r *Repository) UpdateDisplayName(ctx context.Context, accountID int, displayName string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET class_display_name = $1 WHERE id = $2`, displayName, accountID)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return requireRow(res, accountID)
}

// Teachers lists teacher accounts ordered by id.
func (r *Repository) Teachers(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, COALESCE(class_display_name, '')
		FROM accounts
		WHERE role = 'teacher'
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query teachers: %w", err)
	}
	defer rows.Close()

	var teachers []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Username, &s.DisplayName); err != nil {
			return nil, err
		}
		teachers = append(teachers, s)
	}
	return teachers, rows.Err()
}

// NameMap returns id to class display name for teacher accounts.
func (r *Repository) NameMap(ctx context.Context) (map[int]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, COALESCE(class_display_name, '')
		FROM accounts
		WHERE role = 'teacher'
	`)
	if err != nil {
		return nil, fmt.Errorf("query name map: %w", err)
	}
	defer rows.Close()

	m := make(map[int]string)
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		m[id] = name
	}
	return m, rows.Err()
}

// DeleteClass removes the account and its students in one transaction.
func (r *Repository) DeleteClass(ctx context.Context, accountID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete class: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM students WHERE teacher_id = $1`, accountID); err != nil {
		return fmt.Errorf("delete students: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := requireRow(res, accountID); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result, accountID int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: account %d", apperr.ErrNotFound, accountID)
	}
	return nil
}
