// @title                       Todo System API
// @version                     1.0
// @description                 Todo CRUD protected by JWT access and refresh tokens.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/rs/zerolog"

	"github.com/99minutos/todo-system/internal/api"
	"github.com/99minutos/todo-system/internal/api/handler"
	"github.com/99minutos/todo-system/internal/core/domain"
	"github.com/99minutos/todo-system/internal/core/ports"
	"github.com/99minutos/todo-system/internal/core/security"
	"github.com/99minutos/todo-system/internal/core/service"
	mongostore "github.com/99minutos/todo-system/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/todo-system/internal/infrastructure/db/redis"
	"github.com/99minutos/todo-system/internal/pkg/config"
	"github.com/99minutos/todo-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "todo-system",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	roles := mongostore.NewRoleRepository(db)
	users := mongostore.NewUserRepository(db, roles)
	mongoRefresh := mongostore.NewRefreshTokenRepository(db)
	todos := mongostore.NewTodoRepository(db)

	if err := mongostore.EnsureIndexes(ctx, roles, users, mongoRefresh); err != nil {
		return err
	}
	if cfg.Auth.SeedRoles {
		if err := roles.Seed(ctx, domain.RoleAdmin, domain.RoleUser); err != nil {
			return err
		}
	}

	var refresh ports.RefreshTokenRepository = mongoRefresh
	if cfg.Auth.RefreshTokenStore == config.RefreshStoreRedis {
		refresh = redisstore.NewRefreshTokenStore(rdb, cfg.Auth.RefreshTokenTTL)
	}

	codec, err := security.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	authService := service.NewAuthService(users, roles, refresh, codec,
		security.NewBcryptHasher(cfg.Auth.BcryptCost), logger.Component("auth"))
	todoService := service.NewTodoService(todos, logger.Component("todos"))

	var limiter handler.LoginLimiter
	if cfg.Auth.LoginMaxFailures > 0 {
		limiter = redisstore.NewLoginThrottle(rdb, cfg.Auth.LoginMaxFailures, cfg.Auth.LoginLockout)
	}

	e := api.NewRouter(api.Dependencies{
		Auth:    authService,
		Todos:   todoService,
		Limiter: limiter,
		Checks: map[string]handler.Check{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(rdb),
		},
		Log: logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("refresh_store", cfg.Auth.RefreshTokenStore).
			Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
