// Package account changes user passwords, either for the logged-in caller
// or for a user named by username.
package account

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	mqcontracts "todolist/contracts/mq"
	"todolist/internal/apperr"
	"todolist/internal/model"
	"todolist/internal/repository"
	"todolist/pkg/logger"
	"todolist/pkg/metrics"
	"todolist/pkg/util"
)

// MinPasswordLength is the shortest accepted new password.
const MinPasswordLength = 8

const (
	MsgInvalidFields = "Invalid fields."
	MsgTooShort      = "Password shorter than 8 characters."
	MsgTooLong       = "Password longer than 72 bytes."
	MsgMismatch      = "Passwords do not match."
	MsgNotChanged    = "Password not changed. Try again later."
	MsgChanged       = "Password changed successfully."
)

// Flows, used as metric and event labels.
const (
	FlowLoggedIn   = "logged_in"
	FlowByUsername = "by_username"
)

// Outcome is the terminal state of a password change.
type Outcome string

const (
	OutcomeRejected  Outcome = "rejected"
	OutcomeCommitted Outcome = "committed"
	OutcomeFailed    Outcome = "failed"
)

// OutcomeOf maps the error returned by a change to its terminal state.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCommitted
	case apperr.IsValidation(err), apperr.IsUnauthenticated(err):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

// UserStore is implemented by *repository.UserRepository.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

// SessionRevoker invalidates tokens issued before a point in time.
type SessionRevoker interface {
	RevokeBefore(ctx context.Context, userID int, at time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Result describes a committed change.
type Result struct {
	UserID    int
	ChangedAt time.Time
}

type Service struct {
	users    UserStore
	sessions SessionRevoker
	events   EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the account service. sessions and events may be nil.
func NewService(users UserStore, sessions SessionRevoker, events EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// ChangePassword sets a new password for the logged-in actor.
func (s *Service) ChangePassword(ctx context.Context, actor *model.Principal, newPassword, confirmPassword string) (res *Result, err error) {
	defer func() { metrics.IncrementPasswordChange(FlowLoggedIn, string(OutcomeOf(err))) }()

	if actor == nil {
		return nil, apperr.Unauthenticated()
	}
	if err := validate(newPassword, confirmPassword); err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, actor.Username)
	if err != nil {
		return nil, s.failed(ctx, FlowLoggedIn, err)
	}
	return s.apply(ctx, FlowLoggedIn, user, newPassword)
}

// ChangePasswordByUsername sets a new password for the user named username
// without requiring a login. A missing user and a failed save produce the
// same message.
func (s *Service) ChangePasswordByUsername(ctx context.Context, username, newPassword, confirmPassword string) (res *Result, err error) {
	defer func() { metrics.IncrementPasswordChange(FlowByUsername, string(OutcomeOf(err))) }()

	if strings.TrimSpace(username) == "" {
		return nil, apperr.Validation(MsgInvalidFields)
	}
	if err := validate(newPassword, confirmPassword); err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		logger.WithTrace(ctx, s.logger).Info("Password reset for unknown user")
		return nil, &apperr.NotFoundError{Resource: "user", ID: username, Message: MsgNotChanged}
	}
	if err != nil {
		return nil, s.failed(ctx, FlowByUsername, err)
	}
	return s.apply(ctx, FlowByUsername, user, newPassword)
}

// validate checks blank fields, then length, then confirmation. The minimum
// counts characters, the maximum counts bytes.
func validate(newPassword, confirmPassword string) error {
	if strings.TrimSpace(newPassword) == "" || strings.TrimSpace(confirmPassword) == "" {
		return apperr.Validation(MsgInvalidFields)
	}
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return apperr.Validation(MsgTooShort)
	}
	if len(newPassword) > util.MaxPasswordBytes {
		return apperr.Validation(MsgTooLong)
	}
	if newPassword != confirmPassword {
		return apperr.Validation(MsgMismatch)
	}
	return nil
}

func (s *Service) apply(ctx context.Context, flow string, user *model.User, newPassword string) (*Result, error) {
	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return nil, s.failed(ctx, flow, err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, s.failed(ctx, flow, err)
	}

	// jwt iat has second precision
	changedAt := s.now().Truncate(time.Second)
	if s.sessions != nil {
		if err := s.sessions.RevokeBefore(ctx, user.ID, changedAt); err != nil {
			logger.WithTrace(ctx, s.logger).Warn("Password changed but old tokens were not revoked",
				zap.Int("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	if s.events != nil {
		payload := mqcontracts.PasswordChangedPayload{UserID: user.ID, Flow: flow, ChangedAt: changedAt}
		if err := s.events.Publish(ctx, mqcontracts.RoutingKeyPasswordChanged, payload); err != nil {
			logger.WithTrace(ctx, s.logger).Warn("Failed to publish password change event",
				zap.Int("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	logger.WithTrace(ctx, s.logger).Info("Password changed",
		zap.Int("user_id", user.ID),
		zap.String("flow", flow),
	)
	return &Result{UserID: user.ID, ChangedAt: changedAt}, nil
}

func (s *Service) failed(ctx context.Context, flow string, err error) error {
	logger.WithTrace(ctx, s.logger).Error("Password change failed",
		zap.String("flow", flow),
		zap.String("error_type", util.ClassifyError(err)),
		zap.Error(err),
	)
	return apperr.System(MsgNotChanged, err)
}
