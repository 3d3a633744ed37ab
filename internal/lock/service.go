// Package lock implements the boolean gate consulted before mutations on
// gated resources. Reads are unrestricted; writes require a privileged role.
package lock

import (
	"context"
	"fmt"

	"classtrack/internal/apperr"
)

// KeyAttendance gates attendance marking globally. Exam locks use the exam
// slug as their key; every key is independent.
const KeyAttendance = "attendance"

// Store persists lock flags.
type Store interface {
	Get(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, locked bool) error
}

// Cache is an optional read-through cache for lock flags. A lock read may be
// stale by up to one request, so short TTLs are fine.
type Cache interface {
	Get(ctx context.Context, key string) (locked, ok bool)
	Put(ctx context.Context, key string, locked bool)
}

var privileged = map[string]bool{
	"admin":   true,
	"teacher": true,
}

// Service answers lock reads and role-gates lock writes.
type Service struct {
	store Store
	cache Cache
}

// NewService creates a lock service. cache may be nil.
func NewService(store Store, cache Cache) *Service {
	return &Service{store: store, cache: cache}
}

// Get returns the current flag for key. Unknown keys read as unlocked.
func (s *Service) Get(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, apperr.Validationf("resource key required")
	}
	if s.cache != nil {
		if locked, ok := s.cache.Get(ctx, key); ok {
			return locked, nil
		}
	}
	locked, err := s.store.Get(ctx, key)
	if err != nil {
		return false, apperr.Storage(err)
	}
	if s.cache != nil {
		s.cache.Put(ctx, key, locked)
	}
	return locked, nil
}

// Set flips the flag for key. Only privileged roles may write; on a failed
// role check the stored value is left untouched.
func (s *Service) Set(ctx context.Context, key string, locked bool, callerRole string) error {
	if key == "" {
		return apperr.Validationf("resource key required")
	}
	if !privileged[callerRole] {
		return fmt.Errorf("%w: role %q may not change locks", apperr.ErrUnauthorized, callerRole)
	}
	if err := s.store.Set(ctx, key, locked); err != nil {
		return apperr.Storage(err)
	}
	if s.cache != nil {
		s.cache.Put(ctx, key, locked)
	}
	return nil
}
