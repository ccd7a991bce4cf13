/*
main.go - Application entry point

PURPOSE:
  Starts the leave engine HTTP server. Loads configuration, opens the
  selected store, wires calculator, synchronizer and service, and shuts
  down gracefully.

STARTUP SEQUENCE:
  1. Load config (.env, environment) and apply flag overrides
  2. Configure slog and i18n
  3. Open the store (memory, sqlite or mongo)
  4. Wire leave.Calculator, attendance.Synchronizer, leave.Service
  5. Optionally load a demo scenario
  6. Start the attendance reconciler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (overrides PORT)
  -store     memory | sqlite | mongo (overrides STORE_DRIVER)
  -db        SQLite database path (overrides SQLITE_PATH)
             Use ":memory:" for an in-memory database
  -scenario  Demo scenario to load at startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the reconciler
  4. Close the store

EXAMPLES:
  ./server -db="./data/leave.db"
  ./server -store=memory -scenario=carry-forward
  STORE_DRIVER=mongo MONGODB_URI=mongodb://localhost:27017 ./server

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/attendance"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/i18n"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
	"github.com/warp/leave-engine/store/mongo"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	port := flag.String("port", cfg.Port, "HTTP server port")
	driver := flag.String("store", cfg.StoreDriver, "Store driver: memory, sqlite or mongo")
	dbPath := flag.String("db", cfg.SQLitePath, "SQLite database path")
	scenario := flag.String("scenario", "", "Demo scenario to load at startup")
	flag.Parse()

	cfg.Port = *port
	cfg.StoreDriver = *driver
	cfg.SQLitePath = *dbPath

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := i18n.Init(cfg.DefaultLocale); err != nil {
		logger.Error("failed to load locales", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	calc := leave.NewCalculator(store, cfg.AlwaysAllowed)
	sync := attendance.NewSynchronizer(store, store, calc, logger)
	svc := leave.NewService(store, store, calc, sync, logger)
	handler := api.NewHandler(svc, store, logger)

	reconciler := attendance.NewReconciler(store, sync, logger)
	reconciler.Interval = cfg.ReconcileInterval

	if *scenario != "" {
		if err := handler.LoadScenarioByID(ctx, *scenario); err != nil {
			logger.Error("failed to load scenario", "scenario", *scenario, "error", err)
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	reconciler.Start(runCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr, "store", cfg.StoreDriver, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	reconciler.Stop()
	logger.Info("server stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openStore returns the configured backend and its cleanup.
func openStore(ctx context.Context, cfg config.Config) (api.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), func() {}, nil
	case config.DriverMongo:
		store, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(closeCtx)
		}, nil
	default:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
}
