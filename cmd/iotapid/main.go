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

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"iot-telemetry-api/config"
	"iot-telemetry-api/internal/api"
	"iot-telemetry-api/internal/db"
	"iot-telemetry-api/internal/export"
	"iot-telemetry-api/internal/ingest"
	"iot-telemetry-api/internal/logging"
	"iot-telemetry-api/internal/metrics"
	"iot-telemetry-api/internal/query"
	"iot-telemetry-api/internal/session"
	"iot-telemetry-api/internal/store"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		os.Exit(1)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, version)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "path", configPath)

	if err := run(cfg, logger); err != nil {
		logger.Error("iotapid stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	m := metrics.New()

	sessions := session.NewMemoryStore(cfg.Auth.SessionTTL)
	defer sessions.Close()
	manager := session.NewManager(appStore, sessions, session.Options{
		Secret:     []byte(cfg.Auth.JWTSecret),
		TTL:        cfg.Auth.SessionTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, logger)

	var dispatcher ingest.Dispatcher
	var pool *export.WorkerPool
	if cfg.Export.Enabled {
		sink, err := export.NewInfluxSink(ctx, cfg.Export)
		if err != nil {
			return fmt.Errorf("failed to connect export sink: %w", err)
		}
		defer sink.Close()

		pool = export.NewWorkerPool(cfg.Export.Workers, cfg.Export.QueueSize, sink, m, logger)
		pool.SetDrainTimeout(cfg.Server.ShutdownGrace)
		pool.Start(ctx)
		dispatcher = pool
		logger.Info("reading export enabled", "url", cfg.Export.URL, "bucket", cfg.Export.Bucket, "workers", cfg.Export.Workers)
	}

	handler := api.NewHandler(
		appStore,
		manager,
		ingest.NewService(appStore, dispatcher, m, logger),
		query.NewService(appStore, m),
		logger,
		cfg.Server.RequestTimeout,
	)
	router := api.NewRouter(handler, m, cfg)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", cfg.Auth.SessionHeader},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutdown signal received, stopping services", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	// Workers export what is still queued, bounded by the shutdown grace, then exit.
	cancel()
	if pool != nil {
		pool.Wait()
	}

	logger.Info("server gracefully stopped")
	return nil
}
