package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"todolist/internal/handler"
	"todolist/pkg/otel"
	"todolist/pkg/rbac"
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
	accountHandler *handler.AccountHandler,
	authn Authenticator,
	checks []ReadinessCheck,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(otel.GinMiddleware())
	r.Use(RequestLogger(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, rc := range checks {
			if err := rc.Check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": rc.Name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.GET("/", authHandler.Landing)
	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)
	r.POST("/tasks/:id/toggle", taskHandler.ToggleTask)
	r.GET("/password/reset", accountHandler.ResetPasswordForm)
	r.POST("/password/reset", accountHandler.ResetPassword)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(authn))
	{
		auth.GET("/home", taskHandler.Home)
		auth.POST("/home", taskHandler.Search)
		auth.GET("/tasks/new", taskHandler.NewTaskForm)
		auth.POST("/tasks/new", taskHandler.CreateTask)
		auth.GET("/tasks/:id", taskHandler.ViewTask)
		auth.GET("/tasks/:id/edit", taskHandler.EditTaskForm)
		auth.POST("/tasks/:id/edit", taskHandler.EditTask)
		auth.POST("/tasks/:id/delete", taskHandler.DeleteTask)
		auth.GET("/password", accountHandler.ChangePasswordForm)
		auth.POST("/password", accountHandler.ChangePassword)

		auth.GET("/admin/tasks", RequirePermission(rbac.PermissionListAllTasks), taskHandler.AllTasks)
	}

	return &Router{Engine: r}
}

// Server wraps the engine in an http.Server listening on addr.
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
