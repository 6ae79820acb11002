package auth

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"todolist/internal/apperr"
	"todolist/internal/model"
	"todolist/internal/repository"
	"todolist/pkg/logger"
	"todolist/pkg/rbac"
	"todolist/pkg/util"
)

const (
	MinPasswordLength = 8

	MsgInvalidFields      = "Invalid fields."
	MsgPasswordTooShort   = "Password shorter than 8 characters."
	MsgPasswordTooLong    = "Password longer than 72 bytes."
	MsgUsernameTaken      = "Username already taken."
	MsgInvalidCredentials = "Invalid username or password."
	MsgInvalidToken       = "Session expired. Please log in again."
	MsgRegistered         = "Account created successfully."
	MsgInternalError      = "Internal system error."
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// RevocationStore reports the cut-off before which a user's tokens are void.
type RevocationStore interface {
	RevokedBefore(ctx context.Context, userID int) (time.Time, error)
}

type Service struct {
	users     UserStore
	sessions  RevocationStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// NewService wires authentication. sessions may be nil, in which case
// tokens are never revoked.
func NewService(users UserStore, sessions RevocationStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// Register creates a new user with the default role.
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, apperr.Validation(MsgInvalidFields)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperr.Validation(MsgPasswordTooShort)
	}
	if len(password) > util.MaxPasswordBytes {
		return nil, apperr.Validation(MsgPasswordTooLong)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, apperr.System(MsgInternalError, err)
	}

	u := &model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         rbac.RoleUser,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Validation(MsgUsernameTaken)
		}
		logger.WithTrace(ctx, s.logger).Error("Failed to register user",
			zap.String("error_type", util.ClassifyError(err)),
			zap.Error(err),
		)
		return nil, apperr.System(MsgInternalError, err)
	}
	return u, nil
}

// Login checks user credentials and returns JWT.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperr.InvalidCredentials(MsgInvalidCredentials)
	}
	if err != nil {
		logger.WithTrace(ctx, s.logger).Error("Failed to load user for login", zap.Error(err))
		return "", apperr.System(MsgInternalError, err)
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", apperr.InvalidCredentials(MsgInvalidCredentials)
	}

	return s.IssueToken(&model.Principal{UserID: u.ID, Username: u.Username, Role: u.Role})
}

// IssueToken signs a fresh token for p.
func (s *Service) IssueToken(p *model.Principal) (string, error) {
	token, err := util.GenerateJWT(p.UserID, p.Username, rbac.NormalizeRole(p.Role), s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", apperr.System(MsgInternalError, err)
	}
	return token, nil
}

// Authenticate verifies token and returns its principal. Tokens issued
// before the user's last password change are rejected. If the revocation
// store is unreachable the token is accepted.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	claims, err := util.ParseJWT(token, s.jwtSecret)
	if err != nil {
		return nil, apperr.InvalidCredentials(MsgInvalidToken)
	}

	if s.sessions != nil {
		cutoff, err := s.sessions.RevokedBefore(ctx, claims.UserID)
		if err != nil {
			logger.WithTrace(ctx, s.logger).Warn("Revocation check unavailable, accepting token",
				zap.Int("user_id", claims.UserID),
				zap.Error(err),
			)
		} else if claims.IssuedAt.Before(cutoff) {
			return nil, apperr.InvalidCredentials(MsgInvalidToken)
		}
	}

	return &model.Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     rbac.NormalizeRole(claims.Role),
	}, nil
}
