package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/gotodo/internal/auth"
	"github.com/abduss/gotodo/internal/config"
	"github.com/abduss/gotodo/internal/events"
	"github.com/abduss/gotodo/internal/logger"
	"github.com/abduss/gotodo/internal/ratelimit"
	"github.com/abduss/gotodo/internal/server"
	"github.com/abduss/gotodo/internal/storage"
	"github.com/abduss/gotodo/internal/todo"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.Init(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.Migrate {
		if err := storage.Migrate(ctx, cfg.Postgres.DSN()); err != nil {
			zl.Fatal("apply migrations", zap.Error(err))
		}
	}

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	rdb, err := storage.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		zl.Fatal("connect redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQ)
		if err != nil {
			zl.Fatal("connect rabbitmq", zap.Error(err))
		}
		publisher = amqpPublisher
	}
	defer publisher.Close()

	authService := auth.NewService(auth.NewRepository(dbPool), cfg.Auth,
		auth.WithPublisher(publisher),
		auth.WithLogger(zl.Named("auth")),
	)
	todoService := todo.NewService(todo.NewRepository(dbPool), zl.Named("todo"))

	router := server.NewRouter(server.Dependencies{
		Config:      cfg,
		Logger:      zl,
		DB:          dbPool,
		Redis:       rdb,
		Limiter:     ratelimit.New(cfg.RateLimit, rdb),
		AuthService: authService,
		TodoService: todoService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zl.Info("gotodo API listening",
			zap.String("addr", cfg.Server.Address()),
			zap.Bool("cookie_tokens", cfg.Cookie.Enabled),
			zap.Bool("redis", rdb != nil),
			zap.Bool("rabbitmq", cfg.RabbitMQ.Enabled),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zl.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}
