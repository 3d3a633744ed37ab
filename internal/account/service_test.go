package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"classtrack/internal/apperr"
)

// fakeStore runs the real transition function against in-memory rows, the
// same way the SQL repo does under its transaction.
type fakeStore struct {
	accounts map[string]*Account
	nextID   int
	loginErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*Account), nextID: 1}
}

func (f *fakeStore) seed(username, password, role string) *Account {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	acct := &Account{ID: f.nextID, Username: username, Role: role, PasswordHash: string(hash)}
	f.nextID++
	f.accounts[username] = acct
	return acct
}

func (f *fakeStore) ByUsername(_ context.Context, username string) (Account, error) {
	if acct, ok := f.accounts[username]; ok {
		return *acct, nil
	}
	return Account{}, apperr.ErrNotFound
}

func (f *fakeStore) Create(_ context.Context, username, passwordHash, role string) (Account, error) {
	if _, ok := f.accounts[username]; ok {
		return Account{}, apperr.ErrConflict
	}
	acct := &Account{ID: f.nextID, Username: username, Role: role, PasswordHash: passwordHash}
	f.nextID++
	f.accounts[username] = acct
	return *acct, nil
}

func (f *fakeStore) ApplyLogin(_ context.Context, accountID int, now time.Time) (Streak, error) {
	if f.loginErr != nil {
		return Streak{}, f.loginErr
	}
	for _, acct := range f.accounts {
		if acct.ID == accountID {
			acct.Streak = nextStreak(acct.Streak, now)
			return acct.Streak, nil
		}
	}
	return Streak{}, apperr.ErrNotFound
}

func (f *fakeStore) UpdatePassword(_ context.Context, accountID int, hash string) error {
	for _, acct := range f.accounts {
		if acct.ID == accountID {
			acct.PasswordHash = hash
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeStore) UpdateDisplayName(_ context.Context, accountID int, name string) error {
	for _, acct := range f.accounts {
		if acct.ID == accountID {
			acct.DisplayName = name
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeStore) Teachers(context.Context) ([]Summary, error) { return nil, nil }

func (f *fakeStore) NameMap(context.Context) (map[int]string, error) { return nil, nil }

func (f *fakeStore) DeleteClass(_ context.Context, accountID int) error {
	for username, acct := range f.accounts {
		if acct.ID == accountID {
			delete(f.accounts, username)
			return nil
		}
	}
	return apperr.ErrNotFound
}

func serviceAt(store *fakeStore, now time.Time) *Service {
	svc := NewService(store)
	svc.now = func() time.Time { return now }
	return svc
}

func TestLoginAdvancesStreakOncePerLogin(t *testing.T) {
	store := newFakeStore()
	store.seed("msfrizzle", "busdriver", RoleTeacher)
	ctx := context.Background()

	res, err := serviceAt(store, t0).Login(ctx, "msfrizzle", "busdriver")
	require.NoError(t, err)
	assert.Equal(t, 1, res.StreakCount)
	assert.Equal(t, 1, res.BestStreak)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, t0, res.LastLoginAt)

	// 10 hours later the streak holds.
	res, err = serviceAt(store, t0.Add(10*time.Hour)).Login(ctx, "msfrizzle", "busdriver")
	require.NoError(t, err)
	assert.Equal(t, 1, res.StreakCount)

	// 30 hours after that it extends.
	res, err = serviceAt(store, t0.Add(40*time.Hour)).Login(ctx, "msfrizzle", "busdriver")
	require.NoError(t, err)
	assert.Equal(t, 2, res.StreakCount)
	assert.Equal(t, 2, res.BestStreak)

	// 50 hours after that it resets, best stays.
	res, err = serviceAt(store, t0.Add(90*time.Hour)).Login(ctx, "msfrizzle", "busdriver")
	require.NoError(t, err)
	assert.Equal(t, 1, res.StreakCount)
	assert.Equal(t, 2, res.BestStreak)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := newFakeStore()
	store.seed("msfrizzle", "busdriver", RoleTeacher)
	svc := serviceAt(store, t0)
	ctx := context.Background()

	_, err := svc.Login(ctx, "msfrizzle", "wrong")
	require.ErrorIs(t, err, apperr.ErrCredentials)

	_, err = svc.Login(ctx, "nobody", "busdriver")
	require.ErrorIs(t, err, apperr.ErrCredentials)

	_, err = svc.Login(ctx, "", "")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLoginFailsWhenStreakPersistFails(t *testing.T) {
	store := newFakeStore()
	store.seed("msfrizzle", "busdriver", RoleTeacher)
	store.loginErr = errors.New("write timeout")

	_, err := serviceAt(store, t0).Login(context.Background(), "msfrizzle", "busdriver")
	require.ErrorIs(t, err, apperr.ErrStorage, "login must not succeed while the streak update is discarded")
}

func TestLoginAccountDeletedMidLogin(t *testing.T) {
	store := newFakeStore()
	store.seed("msfrizzle", "busdriver", RoleTeacher)
	store.loginErr = apperr.ErrNotFound

	_, err := serviceAt(store, t0).Login(context.Background(), "msfrizzle", "busdriver")
	require.ErrorIs(t, err, apperr.ErrCredentials,
		"a vanished account reads as bad credentials, not a storage fault")
}

func TestCreateValidatesAndHashes(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, "ab", "pw", "")
	require.ErrorIs(t, err, apperr.ErrValidation, "username too short")

	_, err = svc.Create(ctx, "has space", "pw", "")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, "msfrizzle", "", "")
	require.ErrorIs(t, err, apperr.ErrValidation, "empty password")

	_, err = svc.Create(ctx, "msfrizzle", "pw", "principal")
	require.ErrorIs(t, err, apperr.ErrValidation, "unknown role")

	acct, err := svc.Create(ctx, "msfrizzle", "busdriver", "")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, acct.Role, "role defaults to teacher")
	assert.NotEqual(t, "busdriver", acct.PasswordHash, "password is never stored verbatim")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte("busdriver")))

	_, err = svc.Create(ctx, "msfrizzle", "other", "")
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestDeleteClassMissingAccount(t *testing.T) {
	svc := NewService(newFakeStore())

	err := svc.DeleteClass(context.Background(), 99)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdatePasswordRehashes(t *testing.T) {
	store := newFakeStore()
	acct := store.seed("msfrizzle", "busdriver", RoleTeacher)
	svc := NewService(store)

	require.NoError(t, svc.UpdatePassword(context.Background(), acct.ID, "newpass"))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte("newpass")))

	err := svc.UpdatePassword(context.Background(), 42, "x")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
