// Package account manages teacher/admin accounts: credentials, roles, and
// the login-streak state machine applied exactly once per successful login.
package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"classtrack/internal/apperr"
)

// Account is one stored account row.
type Account struct {
	ID           int
	Username     string
	Role         string
	DisplayName  string
	PasswordHash string
	Streak       Streak
}

// Summary is the public listing shape for a teacher account.
type Summary struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"class_display_name"`
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	AccountID   int
	Username    string
	Role        string
	StreakCount int
	BestStreak  int
	Level       int
	LastLoginAt time.Time
}

// Store persists accounts. ApplyLogin must serialize concurrent logins for
// the same account: the streak read and write happen under one transaction.
type Store interface {
	ByUsername(ctx context.Context, username string) (Account, error)
	Create(ctx context.Context, username, passwordHash, role string) (Account, error)
	ApplyLogin(ctx context.Context, accountID int, now time.Time) (Streak, error)
	UpdatePassword(ctx context.Context, accountID int, passwordHash string) error
	UpdateDisplayName(ctx context.Context, accountID int, displayName string) error
	Teachers(ctx context.Context) ([]Summary, error)
	NameMap(ctx context.Context) (map[int]string, error)
	DeleteClass(ctx context.Context, accountID int) error
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Service handles account lifecycle and login.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an account service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Login verifies credentials and advances the streak. If persisting the new
// streak fails the login fails with it; success is never reported while the
// computed streak is discarded.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username == "" || password == "" {
		return LoginResult{}, apperr.Validationf("username and password required")
	}

	acct, err := s.store.ByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return LoginResult{}, apperr.ErrCredentials
	}
	if err != nil {
		return LoginResult{}, apperr.Storage(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, apperr.ErrCredentials
	}

	streak, err := s.store.ApplyLogin(ctx, acct.ID, s.now())
	if errors.Is(err, apperr.ErrNotFound) {
		// Account deleted between the credential check and the streak write.
		return LoginResult{}, apperr.ErrCredentials
	}
	if err != nil {
		return LoginResult{}, apperr.Storage(err)
	}

	return LoginResult{
		AccountID:   acct.ID,
		Username:    acct.Username,
		Role:        acct.Role,
		StreakCount: streak.Count,
		BestStreak:  streak.Best,
		Level:       level(streak.Count),
		LastLoginAt: streak.LastLoginAt,
	}, nil
}

// Create registers an account. Role defaults to teacher.
func (s *Service) Create(ctx context.Context, username, password, role string) (Account, error) {
	if !usernamePattern.MatchString(username) {
		return Account{}, apperr.Validationf("username must be 3-32 word characters")
	}
	if len(password) < 1 || len(password) > 128 {
		return Account{}, apperr.Validationf("password must be 1-128 characters")
	}
	if role == "" {
		role = RoleTeacher
	}
	if role != RoleTeacher && role != RoleAdmin && role != RoleStudent {
		return Account{}, apperr.Validationf("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	acct, err := s.store.Create(ctx, username, string(hash), role)
	if errors.Is(err, apperr.ErrConflict) {
		return Account{}, err
	}
	if err != nil {
		return Account{}, apperr.Storage(err)
	}
	return acct, nil
}

// UpdatePassword replaces an account's credential.
func (s *Service) UpdatePassword(ctx context.Context, accountID int, newPassword string) error {
	if accountID <= 0 {
		return apperr.Validationf("account id required")
	}
	if len(newPassword) < 1 || len(newPassword) > 128 {
		return apperr.Validationf("password must be 1-128 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.store.UpdatePassword(ctx, accountID, string(hash))
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// UpdateDisplayName sets the class display name shown to students.
func (s *Service) UpdateDisplayName(ctx context.Context, accountID int, displayName string) error {
	if accountID <= 0 {
		return apperr.Validationf("account id required")
	}
	if displayName == "" {
		return apperr.Validationf("display name required")
	}
	err := s.store.UpdateDisplayName(ctx, accountID, displayName)
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// Teachers lists teacher accounts.
func (s *Service) Teachers(ctx context.Context) ([]Summary, error) {
	teachers, err := s.store.Teachers(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return teachers, nil
}

// NameMap returns account id to class display name for teacher accounts.
func (s *Service) NameMap(ctx context.Context) (map[int]string, error) {
	m, err := s.store.NameMap(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return m, nil
}

// DeleteClass removes a teacher account and every student under it, in one
// transaction.
func (s *Service) DeleteClass(ctx context.Context, accountID int) error {
	if accountID <= 0 {
		return apperr.Validationf("account id required")
	}
	err := s.store.DeleteClass(ctx, accountID)
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}
