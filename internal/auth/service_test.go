package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memUserStore struct {
	byEmail map[string]*UserRecord
	byID    map[uuid.UUID]*UserRecord
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byEmail: map[string]*UserRecord{}, byID: map[uuid.UUID]*UserRecord{}}
}

func (s *memUserStore) Create(_ context.Context, u *UserRecord) error {
	if _, ok := s.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	clone := *u
	s.byEmail[u.Email] = &clone
	s.byID[u.ID] = &clone
	return nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*UserRecord, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*UserRecord, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func newTestService(t *testing.T) (*Service, *memUserStore) {
	t.Helper()
	store := newMemUserStore()
	svc, err := NewService(Config{Users: store, Secret: "test-secret-for-signing"})
	require.NoError(t, err)
	return svc, store
}

func seedUser(t *testing.T, store *memUserStore, email, password string, roles []string) *UserRecord {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	require.NoError(t, err)
	u := &UserRecord{Name: "Office User", Email: email, PasswordHash: hash, Roles: roles}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestLoginIssuesTokenWithRoles(t *testing.T) {
	svc, store := newTestService(t)
	u := seedUser(t, store, "billing@yard.test", "correct horse", []string{RoleBilling, RoleViewer})

	result, err := svc.Login(context.Background(), "billing@yard.test", "correct horse")
	require.NoError(t, err)
	require.Equal(t, u.ID.String(), result.User.ID)
	require.NotEmpty(t, result.AccessToken)

	identity, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID.String(), identity.UserID)
	require.ElementsMatch(t, []string{RoleBilling, RoleViewer}, identity.Roles)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "gate@yard.test", "correct horse", []string{RoleGate})

	_, err := svc.Login(context.Background(), "gate@yard.test", "battery staple")
	require.Error(t, err)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "nobody@yard.test", "whatever")
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "viewer@yard.test", "correct horse", []string{RoleViewer})

	past := time.Now().Add(-2 * time.Hour)
	svc.WithNow(func() time.Time { return past })
	result, err := svc.Login(context.Background(), "viewer@yard.test", "correct horse")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ParseAccessToken("not-a-token")
	require.Error(t, err)

	_, err = svc.ParseAccessToken("")
	require.Error(t, err)
}

func TestRegisterValidatesRoles(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "New User", "new@yard.test", "long enough pw", []string{"superuser"})
	require.Error(t, err)

	user, err := svc.Register(context.Background(), "New User", "new@yard.test", "long enough pw", nil)
	require.NoError(t, err)
	require.Equal(t, []string{RoleViewer}, user.Roles)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "dup@yard.test", "correct horse", []string{RoleViewer})

	_, err := svc.Register(context.Background(), "Dup", "dup@yard.test", "long enough pw", nil)
	require.Error(t, err)
}
