package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/gradereport/internal/cache"
	"github.com/pavelanni/gradereport/internal/handler"
	appI18n "github.com/pavelanni/gradereport/internal/i18n"
	"github.com/pavelanni/gradereport/internal/observability"
	"github.com/pavelanni/gradereport/internal/store"
)

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(ctx, db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if err := importDatasets(ctx, db, v.GetStringSlice("dataset")); err != nil {
		return fmt.Errorf("import datasets: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	reportCache, closeCache, err := openCache(ctx, v)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer closeCache()

	observability.RegisterMetrics()

	h, err := handler.New(db, reportCache, handler.Config{
		Lang:           lang,
		CacheTTL:       v.GetDuration("cache-ttl"),
		MaxUploadBytes: v.GetInt64("max-upload"),
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(observability.Middleware)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"lang", lang,
			"cache", v.GetString("cache"),
			"cache_ttl", v.GetDuration("cache-ttl"),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), v.GetDuration("shutdown-timeout"))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		return srv.Close()
	}
	slog.Info("server stopped")
	return nil
}

// openCache builds the report cache selected by --cache. The returned
// function releases its connections.
func openCache(ctx context.Context, v *viper.Viper) (cache.Cache, func(), error) {
	switch kind := strings.ToLower(v.GetString("cache")); kind {
	case "", "memory":
		return cache.NewMemory(v.GetInt("cache-size")), func() {}, nil
	case "redis":
		client, err := cache.Connect(ctx, v.GetString("redis-url"))
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedis(client), func() { _ = client.Close() }, nil
	case "off", "none":
		return cache.Noop{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", kind)
	}
}
