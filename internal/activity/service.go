// Package activity manages the weekly activity catalog and per-student
// day-of-week assignments.
package activity

import (
	"context"
	"errors"

	"classtrack/internal/apperr"
)

// Ref identifies a catalog activity.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// DayEntry is one student's assignment on a given day.
type DayEntry struct {
	StudentID    int    `json:"student_id"`
	StudentName  string `json:"student_name"`
	ActivityName string `json:"activity_name"`
}

// OverviewRow is one (student, day, activity) row for a teacher's class.
// Activity is empty for students with no assignments.
type OverviewRow struct {
	StudentName string `json:"name"`
	DayOfWeek   string `json:"day_of_week"`
	Activity    string `json:"activity"`
}

// Store persists the catalog and assignments. ReplaceWeek must apply the
// whole map in one transaction.
type Store interface {
	Catalog(ctx context.Context) ([]Ref, error)
	CreateActivity(ctx context.Context, name string) (Ref, error)
	WeekFor(ctx context.Context, studentID int) (map[string]Ref, error)
	ReplaceWeek(ctx context.Context, studentID int, week map[string]*int) error
	ByDay(ctx context.Context, day string) ([]DayEntry, error)
	TeacherOverview(ctx context.Context, teacherID int) ([]OverviewRow, error)
	StudentExists(ctx context.Context, studentID int) (bool, error)
}

var validDays = map[string]bool{
	"Mon": true, "Tue": true, "Wed": true, "Thu": true,
	"Fri": true, "Sat": true, "Sun": true,
}

// Service validates and applies activity assignments.
type Service struct {
	store Store
}

// NewService creates an activity service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Catalog lists all activities.
func (s *Service) Catalog(ctx context.Context) ([]Ref, error) {
	refs, err := s.store.Catalog(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return refs, nil
}

// CreateActivity adds a catalog entry.
func (s *Service) CreateActivity(ctx context.Context, name string) (Ref, error) {
	if name == "" {
		return Ref{}, apperr.Validationf("activity name required")
	}
	ref, err := s.store.CreateActivity(ctx, name)
	if errors.Is(err, apperr.ErrConflict) {
		return Ref{}, err
	}
	if err != nil {
		return Ref{}, apperr.Storage(err)
	}
	return ref, nil
}

// WeekFor returns a student's day-to-activity map.
func (s *Service) WeekFor(ctx context.Context, studentID int) (map[string]Ref, error) {
	if studentID <= 0 {
		return nil, apperr.Validationf("student id required")
	}
	week, err := s.store.WeekFor(ctx, studentID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return week, nil
}

// ReplaceWeek applies a day-to-activity map for one student. A nil activity
// id clears that day. The whole map is applied atomically.
func (s *Service) ReplaceWeek(ctx context.Context, studentID int, week map[string]*int) error {
	if studentID <= 0 {
		return apperr.Validationf("student id required")
	}
	for day := range week {
		if !validDays[day] {
			return apperr.Validationf("unknown day %q", day)
		}
	}
	exists, err := s.store.StudentExists(ctx, studentID)
	if err != nil {
		return apperr.Storage(err)
	}
	if !exists {
		return apperr.ErrNotFound
	}
	if err := s.store.ReplaceWeek(ctx, studentID, week); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// ByDay lists every student assigned an activity on the given day.
func (s *Service) ByDay(ctx context.Context, day string) ([]DayEntry, error) {
	if !validDays[day] {
		return nil, apperr.Validationf("unknown day %q", day)
	}
	entries, err := s.store.ByDay(ctx, day)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return entries, nil
}

// TeacherOverview lists assignments across a teacher's class.
func (s *Service) TeacherOverview(ctx context.Context, teacherID int) ([]OverviewRow, error) {
	if teacherID <= 0 {
		return nil, apperr.Validationf("teacher id required")
	}
	rows, err := s.store.TeacherOverview(ctx, teacherID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return rows, nil
}
