package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/link-shortener/internal/cache"
	"github.com/vadimbarashkov/link-shortener/internal/cache/memory"
	"github.com/vadimbarashkov/link-shortener/internal/config"
	"github.com/vadimbarashkov/link-shortener/internal/database/postgres"
	"github.com/vadimbarashkov/link-shortener/internal/service"
	"github.com/vadimbarashkov/link-shortener/internal/shortcode"
	"github.com/vadimbarashkov/link-shortener/migrations"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/vadimbarashkov/link-shortener/internal/api/http"
	rediscache "github.com/vadimbarashkov/link-shortener/internal/cache/redis"
	pgpool "github.com/vadimbarashkov/link-shortener/pkg/postgres"
)

func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	db, err := pgpool.New(
		ctx,
		cfg.Postgres.DSN(),
		pgpool.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pgpool.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pgpool.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pgpool.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := pgpool.RunMigrationsFS(migrations.FS, ".", cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	c, closeCache := newCache(ctx, cfg, logger.Logger)
	defer closeCache()

	linkSvc := service.NewLinkService(
		postgres.NewLinkRepository(db),
		cache.WithTimeout(c, cfg.Cache.Timeout),
		shortcode.NewGenerator(cfg.ShortCode.Length),
		logger.Logger,
		service.LinkServiceConfig{
			LinkTTL:    cfg.Cache.LinkTTL,
			SearchTTL:  cfg.Cache.SearchTTL,
			StatsTTL:   cfg.Cache.StatsTTL,
			MaxRetries: cfg.ShortCode.MaxRetries,
		},
	)

	authSvc := service.NewAuthService(postgres.NewUserRepository(db), service.AuthServiceConfig{
		Secret:     []byte(cfg.Auth.JWTSecret),
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	})

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        myhttp.NewRouter(logger, linkSvc, authSvc),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

// newCache builds the configured cache backend. An unreachable redis is
// logged and kept, since the client reconnects and the link service treats
// cache errors as misses.
func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, func()) {
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		return memory.New(memory.Config{
			Capacity:  cfg.Cache.Capacity,
			NumShards: cfg.Cache.NumShards,
			MaxTTL:    max(cfg.Cache.LinkTTL, cfg.Cache.SearchTTL, cfg.Cache.StatsTTL),
		}), func() {}
	case config.CacheBackendNone:
		return cache.Nop{}, func() {}
	}

	client := rediscache.NewClient(rediscache.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis is unreachable, serving from database",
			slog.String("addr", cfg.Redis.Addr), slog.Any("err", err))
	}

	return rediscache.New(client), func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", slog.Any("err", err))
		}
	}
}
