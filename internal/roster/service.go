// Package roster manages the students of a classroom. Point balances mutate
// only through the points package; attendance auto-provisions through the
// attendance package. This package covers the explicit create/delete/list
// surface.
package roster

import (
	"context"
	"errors"

	"classtrack/internal/apperr"
)

// Student is one roster entry.
type Student struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Store persists students.
type Store interface {
	Create(ctx context.Context, teacherID int, name string) (Student, error)
	Delete(ctx context.Context, teacherID int, name string) error
	ByTeacher(ctx context.Context, teacherID int) ([]Student, error)
}

// Service validates roster changes.
type Service struct {
	store Store
}

// NewService creates a roster service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create adds a student to a teacher's class with a zero balance.
func (s *Service) Create(ctx context.Context, teacherID int, name string) (Student, error) {
	if teacherID <= 0 {
		return Student{}, apperr.Validationf("teacher id required")
	}
	if name == "" {
		return Student{}, apperr.Validationf("student name required")
	}
	student, err := s.store.Create(ctx, teacherID, name)
	if errors.Is(err, apperr.ErrConflict) {
		return Student{}, err
	}
	if err != nil {
		return Student{}, apperr.Storage(err)
	}
	return student, nil
}

// Delete removes a student and, by cascade, their attendance records.
func (s *Service) Delete(ctx context.Context, teacherID int, name string) error {
	if teacherID <= 0 || name == "" {
		return apperr.Validationf("teacher id and student name required")
	}
	err := s.store.Delete(ctx, teacherID, name)
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// ByTeacher lists a teacher's students ordered by name.
func (s *Service) ByTeacher(ctx context.Context, teacherID int) ([]Student, error) {
	if teacherID <= 0 {
		return nil, apperr.Validationf("teacher id required")
	}
	students, err := s.store.ByTeacher(ctx, teacherID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return students, nil
}
