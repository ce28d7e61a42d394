package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo/backend/internal/config"
	authdomain "todo/backend/internal/domain/auth"
	taskdomain "todo/backend/internal/domain/task"
	"todo/backend/internal/httpserver"
	"todo/backend/internal/infrastructure/hash"
	"todo/backend/internal/infrastructure/memory"
	"todo/backend/internal/infrastructure/postgres"
	"todo/backend/internal/infrastructure/redis"
	"todo/backend/internal/infrastructure/token"
	"todo/backend/internal/pkg/logger"
	authusecase "todo/backend/internal/usecase/auth"
	taskusecase "todo/backend/internal/usecase/task"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

type storage struct {
	users authdomain.UserRepository
	tasks taskdomain.Repository
	close func()
}

func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		logger.Warnf(ctx, "using in-memory storage; data is lost on restart")
		return storage{users: memory.NewUserRepository(), tasks: memory.NewTaskRepository(), close: func() {}}, nil

	case config.StorageRedis:
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return storage{}, err
		}
		logger.Infof(ctx, "connected to redis")
		return storage{
			users: redis.NewUserRepository(client),
			tasks: redis.NewTaskRepository(client),
			close: func() { _ = client.Close() },
		}, nil

	default:
		db, err := postgres.Open(ctx, postgres.Options{
			URL:             cfg.DatabaseURL,
			MaxConns:        int32(cfg.DBMaxConns),
			MaxConnLifetime: cfg.DBConnLifetime,
			MaxConnIdleTime: cfg.DBConnIdleTime,
		})
		if err != nil {
			return storage{}, fmt.Errorf("open database: %w", err)
		}
		logger.Infof(ctx, "connected to postgres, max %d connections", db.Pool.Config().MaxConns)
		return storage{
			users: postgres.NewUserRepository(db.Pool),
			tasks: postgres.NewTaskRepository(db.Pool),
			close: db.Close,
		}, nil
	}
}

func run(cfg config.Config, log *zap.SugaredLogger) error {
	rootCtx := logger.ToContext(context.Background(), log)

	store, err := openStorage(rootCtx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	tokenManager := token.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL, cfg.JWTIssuer)
	authService := authusecase.NewService(store.users, tokenManager, hash.NewBcryptHasher(cfg.BcryptCost))
	taskService := taskusecase.NewService(store.tasks)

	server := httpserver.NewServer(cfg, authService, taskService, log)
	log.Infow("HTTP server listening", "addr", server.Addr(), "storage", cfg.StorageDriver)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		logger.Infof(rootCtx, "HTTP server stopped accepting new connections")
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-shutdownCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf(rootCtx, "graceful shutdown failed: %v", err)
		return nil
	}
	logger.Infof(rootCtx, "graceful shutdown completed")
	return nil
}
