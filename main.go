package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concert-manager/config"
	"concert-manager/driver"
	"concert-manager/metrics"
	"concert-manager/schemas"
	"concert-manager/utils"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "reason", err.Error())
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.SlogLevel(),
			TimeFormat: time.RFC1123Z,
		}),
	))
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := driver.ConnectDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("can't connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database", "host", cfg.Database.Host, "database", cfg.Database.Name)

	if cfg.Database.Migrate {
		if err := driver.Migrate(db, cfg.Database.Name); err != nil {
			slog.Error("can't migrate database", "error", err)
			os.Exit(1)
		}
	}

	m := metrics.New()
	m.RegisterDBStats(db)

	srv := &http.Server{
		Addr:         net.JoinHostPort("", cfg.Server.Port),
		Handler:      newRouter(db, cfg, utils.NewJSONSchemaValidator(schemas.FS), m),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("cannot start HTTP server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}
