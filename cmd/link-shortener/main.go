package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/httplog/v2"
	"github.com/joho/godotenv"
	"github.com/vadimbarashkov/link-shortener/internal/app"
	"github.com/vadimbarashkov/link-shortener/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	return app.Run(ctx, cfg, newLogger(cfg))
}

func newLogger(cfg *config.Config) *httplog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	return httplog.NewLogger("link-shortener", httplog.Options{
		LogLevel:        level,
		JSON:            cfg.Log.JSON,
		Concise:         cfg.Log.Concise,
		RequestHeaders:  cfg.Env != config.EnvProd,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})
}
