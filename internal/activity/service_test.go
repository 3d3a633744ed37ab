package activity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/apperr"
)

type weekKey struct {
	studentID int
	day       string
}

type fakeStore struct {
	catalog  map[int]string
	weeks    map[weekKey]int
	students map[int]bool
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		catalog:  make(map[int]string),
		weeks:    make(map[weekKey]int),
		students: make(map[int]bool),
		nextID:   1,
	}
}

func (f *fakeStore) Catalog(context.Context) ([]Ref, error) {
	var refs []Ref
	for id, name := range f.catalog {
		refs = append(refs, Ref{ID: id, Name: name})
	}
	return refs, nil
}

func (f *fakeStore) CreateActivity(_ context.Context, name string) (Ref, error) {
	for _, existing := range f.catalog {
		if existing == name {
			return Ref{}, apperr.ErrConflict
		}
	}
	id := f.nextID
	f.nextID++
	f.catalog[id] = name
	return Ref{ID: id, Name: name}, nil
}

func (f *fakeStore) WeekFor(_ context.Context, studentID int) (map[string]Ref, error) {
	week := make(map[string]Ref)
	for k, activityID := range f.weeks {
		if k.studentID == studentID {
			week[k.day] = Ref{ID: activityID, Name: f.catalog[activityID]}
		}
	}
	return week, nil
}

func (f *fakeStore) ReplaceWeek(_ context.Context, studentID int, week map[string]*int) error {
	for day, activityID := range week {
		key := weekKey{studentID, day}
		if activityID == nil {
			delete(f.weeks, key)
		} else {
			f.weeks[key] = *activityID
		}
	}
	return nil
}

func (f *fakeStore) ByDay(context.Context, string) ([]DayEntry, error) { return nil, nil }

func (f *fakeStore) TeacherOverview(context.Context, int) ([]OverviewRow, error) { return nil, nil }

func (f *fakeStore) StudentExists(_ context.Context, studentID int) (bool, error) {
	return f.students[studentID], nil
}

func TestReplaceWeekValidatesDays(t *testing.T) {
	store := newFakeStore()
	store.students[1] = true
	svc := NewService(store)
	three := 3

	err := svc.ReplaceWeek(context.Background(), 1, map[string]*int{"Monday": &three})
	require.ErrorIs(t, err, apperr.ErrValidation)

	err = svc.ReplaceWeek(context.Background(), 1, map[string]*int{"Mon": &three})
	require.NoError(t, err)
}

func TestReplaceWeekUnknownStudent(t *testing.T) {
	svc := NewService(newFakeStore())

	err := svc.ReplaceWeek(context.Background(), 7, map[string]*int{})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReplaceWeekUpsertsAndClears(t *testing.T) {
	store := newFakeStore()
	store.students[1] = true
	svc := NewService(store)
	ctx := context.Background()

	chess, err := svc.CreateActivity(ctx, "Chess")
	require.NoError(t, err)
	soccer, err := svc.CreateActivity(ctx, "Soccer")
	require.NoError(t, err)

	require.NoError(t, svc.ReplaceWeek(ctx, 1, map[string]*int{"Mon": &chess.ID, "Tue": &soccer.ID}))
	require.NoError(t, svc.ReplaceWeek(ctx, 1, map[string]*int{"Mon": &soccer.ID, "Tue": nil}))

	week, err := svc.WeekFor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]Ref{"Mon": {ID: soccer.ID, Name: "Soccer"}}, week)
}

func TestCreateActivityRejectsDuplicates(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	_, err := svc.CreateActivity(ctx, "Chess")
	require.NoError(t, err)
	_, err = svc.CreateActivity(ctx, "Chess")
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.CreateActivity(ctx, "")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestByDayValidatesDay(t *testing.T) {
	svc := NewService(newFakeStore())

	_, err := svc.ByDay(context.Background(), "Funday")
	require.ErrorIs(t, err, apperr.ErrValidation)
}
