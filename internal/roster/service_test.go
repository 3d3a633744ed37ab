package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/apperr"
)

type rosterKey struct {
	teacherID int
	name      string
}

type fakeStore struct {
	students map[rosterKey]Student
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{students: make(map[rosterKey]Student), nextID: 1}
}

func (f *fakeStore) Create(_ context.Context, teacherID int, name string) (Student, error) {
	key := rosterKey{teacherID, name}
	if _, ok := f.students[key]; ok {
		return Student{}, apperr.ErrConflict
	}
	s := Student{ID: f.nextID, Name: name}
	f.nextID++
	f.students[key] = s
	return s, nil
}

func (f *fakeStore) Delete(_ context.Context, teacherID int, name string) error {
	key := rosterKey{teacherID, name}
	if _, ok := f.students[key]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.students, key)
	return nil
}

func (f *fakeStore) ByTeacher(_ context.Context, teacherID int) ([]Student, error) {
	var out []Student
	for k, s := range f.students {
		if k.teacherID == teacherID {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestCreateEnforcesUniqueNamePerTeacher(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	student, err := svc.Create(ctx, 1, "Ada")
	require.NoError(t, err)
	assert.Equal(t, 0, student.Points, "new students start at zero points")

	_, err = svc.Create(ctx, 1, "Ada")
	require.ErrorIs(t, err, apperr.ErrConflict)

	// Same name under another teacher is a different roster entry.
	_, err = svc.Create(ctx, 2, "Ada")
	require.NoError(t, err)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newFakeStore())

	_, err := svc.Create(context.Background(), 0, "Ada")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(context.Background(), 1, "")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteMissingStudent(t *testing.T) {
	svc := NewService(newFakeStore())

	err := svc.Delete(context.Background(), 1, "Nobody")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
