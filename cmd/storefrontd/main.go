package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"e2estore/internal/config"
	"e2estore/internal/db"
	"e2estore/internal/notify"
	"e2estore/internal/observability/logging"
	"e2estore/internal/observability/metrics"
	"e2estore/internal/opauth"
	"e2estore/internal/service"
	"e2estore/internal/store"
	transport "e2estore/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: "storefrontd",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)
	metrics.MustRegister("storefrontd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("storefrontd exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	dsn := cfg.DatabaseURL
	if cfg.UsesSQLite() {
		dsn = cfg.SQLitePath()
	}
	gdb, err := db.OpenGorm(db.Config{DSN: dsn, SQLite: cfg.UsesSQLite(), LogSQL: cfg.LogSQL})
	if err != nil {
		return err
	}
	st := store.New(gdb)
	if err := st.AutoMigrate(ctx); err != nil {
		return err
	}

	var broker notify.Broker
	if cfg.UsesSQLite() {
		broker = notify.NewHub(0)
		slog.Info("record notifications are in-process only")
	} else {
		pg := notify.NewPGBroker(cfg.DatabaseURL, cfg.NotifyChannel, func(ctx context.Context, sql string, args ...any) error {
			return gdb.WithContext(ctx).Exec(sql, args...).Error
		})
		go func() {
			if err := pg.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("notification listener stopped", "error", err)
			}
		}()
		broker = pg
	}

	opts := transport.Options{
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		PingInterval:       cfg.EventsPingInterval,
	}
	if cfg.OperatorTokenPublicKey != "" {
		v, err := opauth.NewValidator(cfg.OperatorTokenPublicKey, cfg.OperatorTokenIssuer)
		if err != nil {
			return err
		}
		opts.OperatorAuth = v.Middleware
	} else {
		slog.Warn("OPERATOR_TOKEN_PUBLIC_KEY unset: operator key writes are unauthenticated")
	}

	svc := service.New(st, broker)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           transport.NewRouter(svc, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("storefrontd listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
