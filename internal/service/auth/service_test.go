package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todolist/internal/apperr"
	"todolist/internal/model"
	"todolist/internal/repository"
	"todolist/pkg/util"
)

const testSecret = "test-secret"

type fakeUsers struct {
	users map[string]*model.User
	err   error
}

func (f *fakeUsers) CreateUser(_ context.Context, u *model.User) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[u.Username]; ok {
		return repository.ErrDuplicate
	}
	u.ID = len(f.users) + 1
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.Username] = &cp
	return nil
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type fakeRevocations struct {
	cutoff map[int]time.Time
	err    error
}

func (f *fakeRevocations) RevokedBefore(_ context.Context, userID int) (time.Time, error) {
	if f.err != nil {
		return time.Time{}, f.err
	}
	return f.cutoff[userID], nil
}

func newTestService() (*Service, *fakeUsers, *fakeRevocations) {
	users := &fakeUsers{users: map[string]*model.User{}}
	rev := &fakeRevocations{cutoff: map[int]time.Time{}}
	return NewService(users, rev, testSecret, time.Hour, zap.NewNop()), users, rev
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, " alice ", "password1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "user", u.Role)
	assert.NotEqual(t, "password1", users.users["alice"].PasswordHash)

	token, err := svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	p, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "user", p.Role)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantMsg  string
	}{
		{name: "empty username", username: " ", password: "password1", wantMsg: MsgInvalidFields},
		{name: "empty password", username: "bob", password: "", wantMsg: MsgInvalidFields},
		{name: "short password", username: "bob", password: "short", wantMsg: MsgPasswordTooShort},
		{name: "seven characters", username: "bob", password: "passwor", wantMsg: MsgPasswordTooShort},
		{name: "four multibyte runes", username: "bob", password: "çççç", wantMsg: MsgPasswordTooShort},
		{name: "73 bytes", username: "bob", password: strings.Repeat("a", 73), wantMsg: MsgPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password)
			assert.True(t, apperr.IsValidation(err))
			assert.Equal(t, tt.wantMsg, apperr.Message(err))
		})
	}

	_, err := svc.Register(ctx, "bob", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "password2")
	assert.Equal(t, MsgUsernameTaken, apperr.Message(err))
}

func TestLogin_Failures(t *testing.T) {
	svc, users, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrong-password")
	assert.True(t, apperr.IsUnauthenticated(err))
	assert.Equal(t, MsgInvalidCredentials, apperr.Message(err))

	_, err = svc.Login(ctx, "nobody", "password1")
	assert.Equal(t, MsgInvalidCredentials, apperr.Message(err), "unknown user looks like a wrong password")

	users.err = errors.New("db down")
	_, err = svc.Login(ctx, "alice", "password1")
	assert.True(t, apperr.IsSystem(err))
}

func TestAuthenticate(t *testing.T) {
	svc, _, rev := newTestService()
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "not-a-token")
	assert.True(t, apperr.IsUnauthenticated(err))

	foreign, err := util.GenerateJWT(1, "alice", "user", "other-secret", time.Hour)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, foreign)
	assert.True(t, apperr.IsUnauthenticated(err))

	token, err := svc.IssueToken(&model.Principal{UserID: 1, Username: "alice", Role: "bogus"})
	require.NoError(t, err)
	p, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user", p.Role, "unknown roles are downgraded")

	rev.cutoff[1] = time.Now().Add(time.Hour)
	_, err = svc.Authenticate(ctx, token)
	assert.True(t, apperr.IsUnauthenticated(err), "token older than password change")

	rev.err = errors.New("redis down")
	_, err = svc.Authenticate(ctx, token)
	assert.NoError(t, err, "revocation store outage fails open")
}
