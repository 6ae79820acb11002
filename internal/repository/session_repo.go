package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionRepository remembers, per user, the moment before which issued
// tokens are no longer accepted. Keys expire with the token lifetime since
// older tokens cannot verify past that point anyway.
type SessionRepository struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewSessionRepository(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{rdb: rdb, ttl: ttl, logger: logger}
}

func revokedKey(userID int) string {
	return fmt.Sprintf("session:revoked_before:%d", userID)
}

// RevokeBefore rejects every token of userID issued before at.
func (r *SessionRepository) RevokeBefore(ctx context.Context, userID int, at time.Time) error {
	err := r.rdb.Set(ctx, revokedKey(userID), at.Unix(), r.ttl).Err()
	if err != nil {
		r.logger.Warn("Failed to store token revocation",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return err
	}
	r.logger.Info("Tokens revoked", zap.Int("user_id", userID), zap.Time("before", at))
	return nil
}

// RevokedBefore returns the revocation cut-off for userID, or the zero time
// when no revocation is recorded.
func (r *SessionRepository) RevokedBefore(ctx context.Context, userID int) (time.Time, error) {
	raw, err := r.rdb.Get(ctx, revokedKey(userID)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed revocation value %q: %w", raw, err)
	}
	return time.Unix(sec, 0), nil
}
