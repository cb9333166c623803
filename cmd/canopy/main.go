// cmd/canopy is the application entry point.
// It wires together all layers and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/auth"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/config"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/database"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/handler"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/repository"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/service"
	"github.com/mama165/sdk-go/logs"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "canopy",
		Usage: "Per-user calendar API with conflict-free scheduling.",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Apply the schema and start the HTTP server.",
		Action: func(c *cli.Context) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			return serve(c.Context, cfg, log)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the schema to the configured store and exit.",
		Action: func(c *cli.Context) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			st, err := openStores(c.Context, cfg, log)
			if err != nil {
				return err
			}
			defer st.close()
			log.Info("schema applied", "driver", cfg.StoreDriver)
			return nil
		},
	}
}

func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logs.GetLoggerFromString(cfg.LogLevel), nil
}

// stores bundles the repositories for the configured driver.
type stores struct {
	events repository.Store
	users  repository.UserStore
	close  func()
}

// openStores connects to the configured driver and applies its schema.
func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("connected to SQLite", "path", cfg.SQLitePath)
		return &stores{
			events: repository.NewSQLiteStore(db),
			users:  repository.NewSQLiteUserRepository(db),
			close:  func() { _ = db.Close() },
		}, nil
	default:
		pool, err := database.NewPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := database.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("connected to PostgreSQL", "host", cfg.DBHost, "database", cfg.DBName)
		return &stores{
			events: repository.NewPostgresStore(pool),
			users:  repository.NewPostgresUserRepository(pool),
			close:  pool.Close,
		}, nil
	}
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// ── 1. Connect to the store ──────────────────────────────────────────
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer st.close()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AuthTokenDuration)
	scheduler := service.NewScheduler(st.events, log)
	users := service.NewUserService(st.users, tokens, log)
	router := handler.NewRouter(
		handler.NewEventHandler(scheduler, log),
		handler.NewUserHandler(users, log),
		tokens, log, cfg.RequestTimeout,
	)

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Block until SIGINT/SIGTERM or a listener failure.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
