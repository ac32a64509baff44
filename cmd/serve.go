package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/waymark/internal/api"
	"github.com/UnknownOlympus/waymark/internal/cache"
	"github.com/UnknownOlympus/waymark/internal/config"
	"github.com/UnknownOlympus/waymark/internal/geocoding"
	"github.com/UnknownOlympus/waymark/internal/interaction"
	"github.com/UnknownOlympus/waymark/internal/mapview"
	"github.com/UnknownOlympus/waymark/internal/metrics"
	"github.com/UnknownOlympus/waymark/internal/pointstore"
	"github.com/UnknownOlympus/waymark/internal/relay"
	"github.com/UnknownOlympus/waymark/internal/repository"
	"github.com/UnknownOlympus/waymark/internal/service"
	"github.com/UnknownOlympus/waymark/internal/surface"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the map view",
	Long: `Start the waymark server.

The server will:
  - Open the configured point backend (postgres or memory)
  - Put the Valkey read cache in front of it when valkey.addr is set
  - Relay changes to other instances over NATS when nats.url is set
  - Keep the server-side map view attached and serve the HTTP API

The server runs until interrupted (Ctrl+C) or receives SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Env)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	var checks []api.Pinger

	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()
	if pinger, ok := backend.(api.Pinger); ok {
		checks = append(checks, pinger)
	}

	if cfg.Valkey.Addr != "" {
		valkey, errCache := cache.NewValkey(cfg.Valkey.Addr)
		if errCache != nil {
			return errCache
		}
		defer valkey.Close()
		checks = append(checks, valkey)
		backend = cache.NewRepository(backend, valkey, cfg.Valkey.TTL, logger, appMetrics)
		logger.InfoContext(ctx, "Point cache enabled", "addr", cfg.Valkey.Addr, "ttl", cfg.Valkey.TTL)
	}

	var (
		opts     []pointstore.Option
		listener service.ChangeListener
	)
	if cfg.NATS.URL != "" {
		conn, errConn := relay.Connect(cfg.NATS.URL)
		if errConn != nil {
			return errConn
		}
		defer conn.Close()
		changes := relay.New(conn, cfg.NATS.Subject, logger)
		opts = append(opts, pointstore.WithRelay(changes))
		listener = changes
		logger.InfoContext(ctx, "Change relay enabled", "subject", cfg.NATS.Subject, "origin", changes.Origin())
	}

	store := pointstore.New(backend, logger, appMetrics, opts...)

	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Geocoder.Provider),
		APIKey:    cfg.Geocoder.APIKey,
		RateLimit: cfg.Geocoder.RateLimit,
		Logger:    logger,
		Metrics:   appMetrics,
	})
	switch {
	case errors.Is(err, geocoding.ErrDisabled):
		geoProvider = nil
		logger.InfoContext(ctx, "Address search disabled")
	case err != nil:
		return fmt.Errorf("failed to create geocoding provider: %w", err)
	default:
		logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Geocoder.Provider)
	}

	layer := surface.NewLayer()
	controller := mapview.NewController(
		store,
		interaction.NewHeadlessPrompter(logger, true),
		interaction.NewHeadlessNavigator(logger),
		logger,
		appMetrics,
	)
	mapService := service.NewMapService(logger, controller, layer, store, listener, cfg.Map.ResyncInterval)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      api.NewServer(store, controller, layer, geoProvider, reg, appMetrics, logger, checks...).Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	mapDone := make(chan struct{})
	go func() {
		defer close(mapDone)
		mapService.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "Starting API server", "port", cfg.HTTP.Port)
		serveErr <- server.ListenAndServe()
	}()

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		logger.WarnContext(shutdownCtx, "API server shutdown failed", "error", errShutdown)
	}

	select {
	case <-mapDone:
	case <-shutdownCtx.Done():
		logger.WarnContext(shutdownCtx, "Shutdown timed out", "timeout", shutdownTimeout)
	}

	if err != nil {
		return fmt.Errorf("api server failed: %w", err)
	}
	logger.InfoContext(ctx, "Application stopped gracefully.")
	return nil
}

// openBackend returns the configured point backend and a function releasing it.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Interface, func(), error) {
	if cfg.Store.Backend == config.BackendMemory {
		logger.WarnContext(ctx, "Using in-memory point store; points are lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	dtb, err := repository.NewDatabase(ctx, repository.PoolConfig{DSN: cfg.Postgres.DSN(), MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	repo := repository.NewRepository(dtb, logger)
	if err = repo.EnsureSchema(ctx); err != nil {
		dtb.Close()
		return nil, nil, err
	}

	return pingingRepository{Repository: repo, db: dtb}, dtb.Close, nil
}

// pingingRepository lets the health check reach the pool behind a repository.
type pingingRepository struct {
	*repository.Repository
	db interface{ Ping(ctx context.Context) error }
}

func (p pingingRepository) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}
