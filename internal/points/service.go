// Package points applies batches of point-balance writes for a classroom.
// A batch is all-or-nothing: one transaction spans every per-student write.
package points

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"strconv"

	"classtrack/internal/apperr"
)

// Update is one requested balance write. Points is left untyped because
// callers submit anything; Clamp coerces it before the write.
type Update struct {
	Name   string `json:"name"`
	Points any    `json:"points"`
}

// StudentPoints is one stored balance.
type StudentPoints struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Tx is one open batch transaction.
type Tx interface {
	// SetPoints writes one balance and reports how many rows matched.
	SetPoints(ctx context.Context, teacherID int, name string, points int) (int64, error)
	Commit() error
	Rollback() error
}

// Store opens batch transactions and serves balance reads.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	PointsByTeacher(ctx context.Context, teacherID int) ([]StudentPoints, error)
}

// Service coordinates clamped, atomic point updates.
type Service struct {
	store Store
}

// NewService creates a points service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Clamp coerces a requested point value to a non-negative integer:
// max(0, round(numeric(v))), with anything non-numeric reading as 0.
func Clamp(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case json.Number:
		f, _ = x.Float64()
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	// The points column is a 32-bit integer; saturate instead of letting the
	// conversion overflow.
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(f))
}

// ApplyBatch writes every update in one transaction. Either the whole batch
// commits or none of it does. An entry naming an unknown student matches zero
// rows and is not an error; the batch still commits.
func (s *Service) ApplyBatch(ctx context.Context, teacherID int, updates []Update) error {
	if teacherID <= 0 {
		return apperr.Validationf("teacher id required")
	}
	if updates == nil {
		return apperr.Validationf("updates required")
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return apperr.Storage(err)
	}

	skipped := 0
	for _, u := range updates {
		matched, err := tx.SetPoints(ctx, teacherID, u.Name, Clamp(u.Points))
		if err != nil {
			_ = tx.Rollback()
			return apperr.Storage(err)
		}
		if matched == 0 {
			skipped++
		}
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return apperr.Storage(err)
	}

	if skipped > 0 {
		log.Printf("points: %d of %d updates matched no student for teacher %d", skipped, len(updates), teacherID)
	}
	return nil
}

// ByTeacher lists stored balances ordered by student name.
func (s *Service) ByTeacher(ctx context.Context, teacherID int) ([]StudentPoints, error) {
	if teacherID <= 0 {
		return nil, apperr.Validationf("teacher id required")
	}
	balances, err := s.store.PointsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return balances, nil
}
