// Package attendance records one (student, date) attendance fact per call,
// idempotently, behind the attendance lock gate.
package attendance

import (
	"context"
	"fmt"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/lock"
)

// Allowed status values.
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

const dateLayout = "2006-01-02"

// RosterEntry pairs a student with their status on a given date. Status is
// nil when no mark exists for that date.
type RosterEntry struct {
	Name   string  `json:"name"`
	Status *string `json:"status"`
}

// Store persists attendance facts. UpsertMark must be a single
// conflict-resolving write on (student, date), never read-then-insert.
type Store interface {
	UpsertMark(ctx context.Context, teacherID int, studentName, status, date string) error
	AttendanceByTeacher(ctx context.Context, teacherID int) (map[string]map[string]string, error)
	RosterWithStatus(ctx context.Context, teacherID int, date string) ([]RosterEntry, error)
}

// Gate reads a lock flag.
type Gate interface {
	Get(ctx context.Context, key string) (bool, error)
}

// Service validates marks and applies them through the store.
type Service struct {
	store Store
	gate  Gate
	now   func() time.Time
}

// NewService creates an attendance service.
func NewService(store Store, gate Gate) *Service {
	return &Service{store: store, gate: gate, now: time.Now}
}

// Record applies one attendance fact. The date defaults to the current UTC
// day when empty. Re-marking the same (student, date) overwrites the status.
// A set attendance lock refuses the mutation before any write.
func (s *Service) Record(ctx context.Context, teacherID int, studentName, status, date string) error {
	if teacherID <= 0 {
		return apperr.Validationf("teacher id required")
	}
	if studentName == "" {
		return apperr.Validationf("student name required")
	}
	if status != StatusPresent && status != StatusAbsent {
		return apperr.Validationf("status must be %q or %q", StatusPresent, StatusAbsent)
	}
	if date == "" {
		date = s.now().UTC().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return apperr.Validationf("date must be YYYY-MM-DD")
	}

	locked, err := s.gate.Get(ctx, lock.KeyAttendance)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("%w: attendance", apperr.ErrLocked)
	}

	if err := s.store.UpsertMark(ctx, teacherID, studentName, status, date); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// ByTeacher returns every recorded fact for a teacher as name -> date -> status.
func (s *Service) ByTeacher(ctx context.Context, teacherID int) (map[string]map[string]string, error) {
	if teacherID <= 0 {
		return nil, apperr.Validationf("teacher id required")
	}
	records, err := s.store.AttendanceByTeacher(ctx, teacherID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return records, nil
}

// Roster returns the full roster for a teacher with each student's status on
// the given date, nil status for unmarked students.
func (s *Service) Roster(ctx context.Context, teacherID int, date string) ([]RosterEntry, error) {
	if teacherID <= 0 {
		return nil, apperr.Validationf("teacher id required")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, apperr.Validationf("date must be YYYY-MM-DD")
	}
	entries, err := s.store.RosterWithStatus(ctx, teacherID, date)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return entries, nil
}
