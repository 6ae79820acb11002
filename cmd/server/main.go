package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"

	"todolist/internal/config"
	"todolist/internal/handler"
	"todolist/internal/httpserver"
	"todolist/internal/repository"
	"todolist/internal/service/account"
	"todolist/internal/service/auth"
	"todolist/internal/service/task"
	"todolist/pkg/db"
	pkglogger "todolist/pkg/logger"
	"todolist/pkg/mq"
	"todolist/pkg/otel"
	"todolist/pkg/redis"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := pkglogger.NewLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()

	// 2. Init tracing
	shutdownOtel, err := otel.Init(cfg.Otel, logger)
	if err != nil {
		logger.Fatal("OpenTelemetry initialization failed", zap.Error(err))
	}

	// 3. Init DB
	dbConn, err := db.NewConnection(ctx, cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	if cfg.DB.Migrate {
		if err := db.Migrate(ctx, dbConn); err != nil {
			logger.Fatal("DB migration failed", zap.Error(err))
		}
	}

	// 4. Init Redis (token revocation)
	rdb, err := redis.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Redis initialization failed", zap.Error(err))
	}

	// 5. Init RabbitMQ publisher, optional
	var (
		publisher     *mq.Publisher
		taskEvents    task.EventPublisher
		accountEvents account.EventPublisher
	)
	if cfg.MQ.URL != "" {
		publisher, err = mq.NewPublisher(cfg.MQ.URL, logger)
		if err != nil {
			logger.Warn("MQ publisher unavailable, events disabled", zap.Error(err))
		} else {
			taskEvents = publisher
			accountEvents = publisher
		}
	}

	// 6. Init repositories
	userRepo := repository.NewUserRepository(dbConn, logger)
	taskRepo := repository.NewTaskRepository(dbConn, logger)
	sessionRepo := repository.NewSessionRepository(rdb, cfg.JWT.TTL, logger)

	// 7. Init services
	authService := auth.NewService(userRepo, sessionRepo, cfg.JWT.Secret, cfg.JWT.TTL, logger)
	taskService := task.NewService(taskRepo, taskEvents, logger)
	accountService := account.NewService(userRepo, sessionRepo, accountEvents, logger)

	// 8. Init handlers and router
	checks := []httpserver.ReadinessCheck{
		{Name: "db", Check: dbConn.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}
	if publisher != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "mq", Check: func(context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("amqp connection closed")
			}
			return nil
		}})
	}

	router := httpserver.NewRouter(
		handler.NewAuthHandler(authService, logger),
		handler.NewTaskHandler(taskService, logger),
		handler.NewAccountHandler(accountService, authService, logger),
		authService,
		checks,
		logger,
	)
	srv := router.Server(cfg.Server.Port)

	// 9. Run server
	go func() {
		logger.Info("Starting todolist server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server start failed", zap.Error(err))
		}
	}()

	// 10. Graceful shutdown: stop accepting requests, then close backends
	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"server": func(ctx context.Context) error {
			httpErr := srv.Shutdown(ctx)
			if publisher != nil {
				publisher.Close()
			}
			dbConn.Close()
			return errors.Join(httpErr, rdb.Close(), shutdownOtel(ctx))
		},
	})

	exitCode := <-wait
	logger.Info("Server exited", zap.Int("exit_code", exitCode))
	_ = logger.Sync()
	os.Exit(exitCode)
}
