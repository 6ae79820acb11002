package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "todolist/contracts/mq"
	"todolist/internal/apperr"
	"todolist/internal/model"
	"todolist/internal/repository"
	"todolist/pkg/util"
)

type fakeUsers struct {
	byName    map[string]*model.User
	updateErr error
	findErr   error
}

var _ UserStore = (*fakeUsers)(nil)

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int, hash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, u := range f.byName {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeRevoker struct {
	revoked map[int]time.Time
	err     error
}

func (f *fakeRevoker) RevokeBefore(_ context.Context, userID int, at time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.revoked[userID] = at
	return nil
}

type fakePublisher struct {
	keys []string
}

func (p *fakePublisher) Publish(_ context.Context, key string, _ any) error {
	p.keys = append(p.keys, key)
	return nil
}

const oldHash = "old-hash"

func newTestService() (*Service, *fakeUsers, *fakeRevoker, *fakePublisher) {
	users := &fakeUsers{byName: map[string]*model.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: oldHash, Role: "user"},
	}}
	revoker := &fakeRevoker{revoked: map[int]time.Time{}}
	pub := &fakePublisher{}
	svc := NewService(users, revoker, pub, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC) }
	return svc, users, revoker, pub
}

var alice = &model.Principal{UserID: 1, Username: "alice", Role: "user"}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		wantMsg  string
	}{
		{name: "empty password", password: "", confirm: "abcdefgh", wantMsg: MsgInvalidFields},
		{name: "blank confirm", password: "abcdefgh", confirm: "   ", wantMsg: MsgInvalidFields},
		{name: "too short", password: "abc", confirm: "abc", wantMsg: MsgTooShort},
		{name: "seven characters", password: "abcdefg", confirm: "abcdefg", wantMsg: MsgTooShort},
		{name: "eight characters", password: "abcdefgh", confirm: "abcdefgh"},
		{name: "four multibyte runes", password: "çççç", confirm: "çççç", wantMsg: MsgTooShort},
		{name: "eight multibyte runes", password: "çççççççç", confirm: "çççççççç"},
		{name: "72 bytes", password: strings.Repeat("a", 72), confirm: strings.Repeat("a", 72)},
		{name: "73 bytes", password: strings.Repeat("a", 73), confirm: strings.Repeat("a", 73), wantMsg: MsgTooLong},
		{name: "long and mismatched reports length first", password: strings.Repeat("a", 73), confirm: "abcdefgh", wantMsg: MsgTooLong},
		{name: "short and mismatched reports length first", password: "abc", confirm: "xyz", wantMsg: MsgTooShort},
		{name: "mismatch", password: "abcdefgh", confirm: "abcdefgX", wantMsg: MsgMismatch},
		{name: "ok", password: "abcdefgh", confirm: "abcdefgh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.password, tt.confirm)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))
			assert.Equal(t, tt.wantMsg, apperr.Message(err))
		})
	}
}

func TestChangePassword(t *testing.T) {
	svc, users, revoker, pub := newTestService()

	res, err := svc.ChangePassword(context.Background(), alice, "s3cretpass", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, 1, res.UserID)

	stored := users.byName["alice"].PasswordHash
	assert.NotEqual(t, oldHash, stored)
	assert.NotEqual(t, "s3cretpass", stored, "password is stored hashed")
	assert.True(t, util.CheckPassword("s3cretpass", stored))

	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), revoker.revoked[1])
	assert.Equal(t, []string{mqcontracts.RoutingKeyPasswordChanged}, pub.keys)
}

func TestChangePassword_Rejected(t *testing.T) {
	svc, users, revoker, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ChangePassword(ctx, nil, "s3cretpass", "s3cretpass")
	var unauth *apperr.UnauthenticatedError
	assert.ErrorAs(t, err, &unauth)
	assert.Equal(t, OutcomeRejected, OutcomeOf(err))

	_, err = svc.ChangePassword(ctx, alice, "short", "short")
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, OutcomeRejected, OutcomeOf(err))

	long := strings.Repeat("a", 73)
	_, err = svc.ChangePassword(ctx, alice, long, long)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, MsgTooLong, apperr.Message(err))
	assert.Equal(t, OutcomeRejected, OutcomeOf(err))

	_, err = svc.ChangePasswordByUsername(ctx, "alice", long, long)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, MsgTooLong, apperr.Message(err))

	assert.Equal(t, oldHash, users.byName["alice"].PasswordHash)
	assert.Empty(t, revoker.revoked)
}

func TestChangePassword_MultibyteAtMaxLength(t *testing.T) {
	svc, users, _, _ := newTestService()

	// 24 runes of 3 bytes each: 72 bytes
	pw := strings.Repeat("密", 24)
	_, err := svc.ChangePassword(context.Background(), alice, pw, pw)
	require.NoError(t, err)
	assert.True(t, util.CheckPassword(pw, users.byName["alice"].PasswordHash))
}

func TestChangePassword_StoreFailure(t *testing.T) {
	svc, users, _, pub := newTestService()
	users.updateErr = errors.New("db down")

	_, err := svc.ChangePassword(context.Background(), alice, "s3cretpass", "s3cretpass")
	require.Error(t, err)
	assert.True(t, apperr.IsSystem(err))
	assert.Equal(t, MsgNotChanged, apperr.Message(err))
	assert.Equal(t, OutcomeFailed, OutcomeOf(err))
	assert.Empty(t, pub.keys)
}

func TestChangePassword_RevokeFailureStillCommits(t *testing.T) {
	svc, users, revoker, _ := newTestService()
	revoker.err = errors.New("redis down")

	_, err := svc.ChangePassword(context.Background(), alice, "s3cretpass", "s3cretpass")
	require.NoError(t, err)
	assert.True(t, util.CheckPassword("s3cretpass", users.byName["alice"].PasswordHash))
}

func TestChangePasswordByUsername(t *testing.T) {
	svc, users, _, pub := newTestService()
	ctx := context.Background()

	_, err := svc.ChangePasswordByUsername(ctx, "alice", "n3wpassword", "n3wpassword")
	require.NoError(t, err)
	assert.True(t, util.CheckPassword("n3wpassword", users.byName["alice"].PasswordHash))
	assert.Equal(t, []string{mqcontracts.RoutingKeyPasswordChanged}, pub.keys)

	_, err = svc.ChangePasswordByUsername(ctx, "  ", "n3wpassword", "n3wpassword")
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, MsgInvalidFields, apperr.Message(err))

	_, err = svc.ChangePasswordByUsername(ctx, "alice", "n3wpassword", "other-password")
	assert.Equal(t, MsgMismatch, apperr.Message(err))
}

func TestChangePasswordByUsername_UnknownUserLooksLikeFailure(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, missingErr := svc.ChangePasswordByUsername(ctx, "ghost", "n3wpassword", "n3wpassword")
	require.Error(t, missingErr)
	assert.True(t, apperr.IsNotFound(missingErr))

	svc.users.(*fakeUsers).updateErr = errors.New("db down")
	_, failErr := svc.ChangePasswordByUsername(ctx, "alice", "n3wpassword", "n3wpassword")
	require.Error(t, failErr)

	assert.Equal(t, apperr.Message(failErr), apperr.Message(missingErr))
	assert.Equal(t, MsgNotChanged, apperr.Message(missingErr))
	assert.Equal(t, OutcomeFailed, OutcomeOf(missingErr))
}
