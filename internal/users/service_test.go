package users

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"papertrade/internal/errs"
	"papertrade/internal/models"
)

type fakeStore struct {
	byUsername map[string]*models.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{byUsername: map[string]*models.User{}}
}

func (f *fakeStore) CreateUser(ctx context.Context, username, passwordHash string, startingCash decimal.Decimal) (*models.User, error) {
	if _, ok := f.byUsername[username]; ok {
		return nil, errs.New(errs.KindValidation, "there is already a user with the given username")
	}
	u := &models.User{ID: "id-" + username, Username: username, PasswordHash: passwordHash, Cash: startingCash}
	f.byUsername[username] = u
	return u, nil
}

func (f *fakeStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := f.byUsername[username]
	if !ok {
		return nil, errs.New(errs.KindValidation, "no user found with username %s", username)
	}
	return u, nil
}

func (f *fakeStore) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	u, ok := f.byUsername[username]
	if !ok {
		return errs.New(errs.KindPersistence, "failed to update user %s", username)
	}
	u.PasswordHash = passwordHash
	return nil
}

func newTestService(store Store) *Service {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewService(store, log)
}

func TestRegister_StartsWithTenThousand(t *testing.T) {
	s := newTestService(newFakeStore())

	u, err := s.Register(context.Background(), "Alice42", "hunter22")
	require.NoError(t, err)

	assert.Equal(t, "alice42", u.Username, "usernames are normalized to lowercase")
	assert.True(t, decimal.NewFromInt(10000).Equal(u.Cash))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter22")))
	assert.NotEqual(t, "hunter22", u.PasswordHash)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)

	_, err := s.Register(context.Background(), "alice42", "hunter22")
	require.NoError(t, err)

	_, err = s.Register(context.Background(), "alice42", "different1")
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestRegister_RejectsBadInputs(t *testing.T) {
	s := newTestService(newFakeStore())

	_, err := s.Register(context.Background(), "ab", "hunter22")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = s.Register(context.Background(), "alice42", "short")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestAuthenticate(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)

	_, err := s.Register(context.Background(), "alice42", "hunter22")
	require.NoError(t, err)

	u, err := s.Authenticate(context.Background(), "alice42", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alice42", u.Username)

	// Wrong password and unknown user produce the same message.
	_, badPass := s.Authenticate(context.Background(), "alice42", "wrongpass")
	require.Error(t, badPass)
	_, badUser := s.Authenticate(context.Background(), "nobody99", "hunter22")
	require.Error(t, badUser)
	assert.Equal(t, badPass.Error(), badUser.Error())
	assert.Equal(t, "either the username or password is invalid", badPass.Error())
}

func TestChangePassword(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)

	_, err := s.Register(context.Background(), "alice42", "hunter22")
	require.NoError(t, err)

	require.NoError(t, s.ChangePassword(context.Background(), "alice42", "newsecret9"))

	_, err = s.Authenticate(context.Background(), "alice42", "hunter22")
	assert.Error(t, err, "old password no longer works")

	_, err = s.Authenticate(context.Background(), "alice42", "newsecret9")
	assert.NoError(t, err)
}
