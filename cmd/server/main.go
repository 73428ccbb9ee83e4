/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the repboard server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional), then config (defaults < file < environment)
  2. Initialize the global zerolog logger
  3. Open the SQLite store and run migrations
  4. Wire archive engine, session registry, ledgers and cookies
  5. Seed the admin credential if none is stored
  6. Configure HTTP router and start server with graceful shutdown

CONFIGURATION:
  See config/config.go. Common overrides:
    REPBOARD_SERVER_PORT=8080
    REPBOARD_DATABASE_PATH=:memory:
    REPBOARD_DATABASE_DRIVER=sqlite          (pure Go, no cgo)
    REPBOARD_SECURITY_ADMIN_PASSWORD=...
    REPBOARD_SECURITY_COOKIE_HASH_KEY=...    (32+ bytes)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration layers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	_ "time/tzdata" // zone database for minimal containers

	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/warp/repboard/api"
	"github.com/warp/repboard/archive"
	"github.com/warp/repboard/config"
	"github.com/warp/repboard/exercise"
	"github.com/warp/repboard/generic"
	"github.com/warp/repboard/logging"
	"github.com/warp/repboard/session"
	"github.com/warp/repboard/store/sqlite"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(cfg.Logging)

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// Initialize store
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return err
		}
	}
	store, err := sqlite.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	logging.Info().Str("driver", cfg.Database.Driver).Str("path", cfg.Database.Path).Msg("database ready")

	dates, err := generic.NewDateResolver(cfg.Ledger.Timezone)
	if err != nil {
		return err
	}
	defaultTarget := decimal.NewFromInt(int64(cfg.Ledger.DefaultDailyGoal))

	registry := session.NewRegistry(store, archive.NewEngine(store, store), dates,
		session.WithBcryptCost(cfg.Security.BcryptCost))
	if wrote, err := registry.BootstrapAdminPassword(ctx, cfg.Security.AdminPassword); err != nil {
		return err
	} else if wrote {
		logging.Info().Msg("admin password initialized from configuration")
	}

	hashKey := []byte(cfg.Security.CookieHashKey)
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		logging.Warn().Msg("security.cookie_hash_key not set, active sessions will not survive a restart")
	}
	cookies, err := session.NewCookies(session.CookieConfig{
		HashKey:  hashKey,
		BlockKey: []byte(cfg.Security.CookieBlockKey),
		Secure:   cfg.Security.CookieSecure,
	})
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.Deps{
		Sessions:  registry,
		Cookies:   cookies,
		Recorder:  exercise.NewRecorder(store, dates, exercise.WithDefaultTarget(defaultTarget)),
		Goals:     exercise.NewGoals(store, dates, defaultTarget),
		Roster:    exercise.NewRoster(store),
		Health:    store,
		PublicURL: cfg.Server.PublicURL,
	})
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins:     cfg.Security.CORSOrigins,
		RateLimitReqs:   cfg.Security.RateLimitReqs,
		RateLimitWindow: cfg.Security.RateLimitWindow,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Str("timezone", cfg.Ledger.Timezone).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Info().Msg("server stopped")
	return nil
}
