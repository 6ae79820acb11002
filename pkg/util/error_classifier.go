package util

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// ClassifyError labels an infrastructure failure for logs and metrics.
// It never decides behaviour; callers still return a SystemError.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "context_canceled"
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return "not_found"
	}
	if errors.Is(err, redis.Nil) {
		return "cache_miss"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return "duplicate_key"
		case pgErr.Code == "23514" || pgErr.Code == "23502":
			return "constraint_violation"
		case pgErr.Code == "23503":
			return "foreign_key_violation"
		case strings.HasPrefix(pgErr.Code, "08"):
			return "db_connection_error"
		default:
			return "db_error"
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "network_timeout"
		}
		return "network_error"
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection") {
		return "db_connection_error"
	}

	return "unknown_error"
}
