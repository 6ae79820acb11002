package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todolist/internal/apperr"
	"todolist/internal/handler"
	"todolist/internal/model"
	"todolist/pkg/logger"
	"todolist/pkg/metrics"
	"todolist/pkg/rbac"
	"todolist/pkg/trace"
	"todolist/pkg/util"
)

// Authenticator turns a bearer token into the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Principal, error)
}

func abortFlash(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"flash": handler.Flash{Level: handler.LevelError, Message: message, Redirect: handler.RedirectLogin},
	})
}

// TraceMiddleware 为每个请求分配 trace_id 并回写到响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeader(c.GetHeader(trace.HeaderName()), c.GetHeader("X-Request-ID"))
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	}
}

// RequestLogger logs every request and records its latency.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(status), duration)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
		}
		l := logger.WithTrace(c.Request.Context(), log)
		if status >= http.StatusInternalServerError {
			l.Warn("HTTP request failed", fields...)
			return
		}
		l.Info("HTTP request", fields...)
	}
}

// AuthMiddleware requires a valid bearer token and stores the caller in
// the gin context under handler.PrincipalKey.
func AuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			abortFlash(c, http.StatusUnauthorized, apperr.Message(apperr.Unauthenticated()))
			return
		}

		p, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortFlash(c, apperr.HTTPStatus(err), apperr.Message(err))
			return
		}

		c.Set(handler.PrincipalKey, p)
		c.Next()
	}
}

// RequirePermission 中间件：要求用户具有指定权限
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := handler.CurrentPrincipal(c)
		if p == nil {
			abortFlash(c, http.StatusUnauthorized, apperr.Message(apperr.Unauthenticated()))
			return
		}

		if err := rbac.CheckPermission(p.UserID, p.Role, permission); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"flash": handler.Flash{Level: handler.LevelError, Message: err.Error(), Redirect: handler.RedirectHome},
			})
			return
		}

		c.Next()
	}
}
