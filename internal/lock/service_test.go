package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/apperr"
)

type fakeStore struct {
	flags map[string]bool
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{flags: make(map[string]bool)}
}

func (f *fakeStore) Get(_ context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.flags[key], nil
}

func (f *fakeStore) Set(_ context.Context, key string, locked bool) error {
	if f.err != nil {
		return f.err
	}
	f.flags[key] = locked
	return nil
}

type fakeCache struct {
	flags map[string]bool
	puts  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{flags: make(map[string]bool)}
}

func (f *fakeCache) Get(_ context.Context, key string) (bool, bool) {
	locked, ok := f.flags[key]
	return locked, ok
}

func (f *fakeCache) Put(_ context.Context, key string, locked bool) {
	f.flags[key] = locked
	f.puts++
}

func TestGetDefaultsToUnlocked(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	locked, err := svc.Get(context.Background(), "attendance")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestSetRequiresPrivilegedRole(t *testing.T) {
	store := newFakeStore()
	store.flags["exam-midterm"] = false
	svc := NewService(store, nil)

	err := svc.Set(context.Background(), "exam-midterm", true, "student")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.False(t, store.flags["exam-midterm"], "failed role check must leave the flag untouched")

	require.NoError(t, svc.Set(context.Background(), "exam-midterm", true, "teacher"))
	assert.True(t, store.flags["exam-midterm"])

	require.NoError(t, svc.Set(context.Background(), "exam-midterm", false, "admin"))
	assert.False(t, store.flags["exam-midterm"])
}

func TestKeysAreIndependent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	require.NoError(t, svc.Set(context.Background(), "exam-a", true, "admin"))

	lockedA, err := svc.Get(context.Background(), "exam-a")
	require.NoError(t, err)
	lockedB, err := svc.Get(context.Background(), "exam-b")
	require.NoError(t, err)
	assert.True(t, lockedA)
	assert.False(t, lockedB)
}

func TestGetReadsThroughCache(t *testing.T) {
	store := newFakeStore()
	store.flags["attendance"] = true
	cache := newFakeCache()
	svc := NewService(store, cache)

	locked, err := svc.Get(context.Background(), "attendance")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, 1, cache.puts)

	// A stale cache entry wins until it expires; the store is not consulted.
	store.flags["attendance"] = false
	locked, err = svc.Get(context.Background(), "attendance")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, 1, cache.puts)
}

func TestSetWritesThroughCache(t *testing.T) {
	store := newFakeStore()
	cache := newFakeCache()
	svc := NewService(store, cache)

	require.NoError(t, svc.Set(context.Background(), "attendance", true, "admin"))

	locked, ok := cache.Get(context.Background(), "attendance")
	assert.True(t, ok)
	assert.True(t, locked)
}

func TestStorageFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	store.err = assert.AnError
	svc := NewService(store, nil)

	_, err := svc.Get(context.Background(), "attendance")
	require.ErrorIs(t, err, apperr.ErrStorage)

	err = svc.Set(context.Background(), "attendance", true, "admin")
	require.ErrorIs(t, err, apperr.ErrStorage)
}

func TestEmptyKeyRejected(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	_, err := svc.Get(context.Background(), "")
	require.ErrorIs(t, err, apperr.ErrValidation)

	err = svc.Set(context.Background(), "", true, "admin")
	require.ErrorIs(t, err, apperr.ErrValidation)
}
