package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"airbnb-harvester/config"
	"airbnb-harvester/monitoring"
	"airbnb-harvester/scraper/airbnb"
	"airbnb-harvester/scraper/render"
	"airbnb-harvester/services"
	"airbnb-harvester/storage"
	"airbnb-harvester/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	logger := utils.NewLoggerWith(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		return 1
	}

	logger.Info("=== Airbnb Listing Harvester starting ===")
	logger.Info("Config — limit: %.1f min | quota: %d | max pages: %d | concurrency: %d | rate: %dms",
		cfg.TimeLimitMinutes, cfg.MaxNewListings, cfg.MaxPages, cfg.MaxConcurrency, cfg.RateLimitMs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strategies, err := airbnb.LoadStrategies(cfg.SelectorsFile)
	if err != nil {
		logger.Error("Failed to load strategies: %v", err)
		return 1
	}
	canon, err := airbnb.NewCanonicalizer(cfg.SiteOrigin, strategies.ListingPathMarker)
	if err != nil {
		logger.Error("Invalid site origin: %v", err)
		return 1
	}
	harvester, err := airbnb.NewHarvester(cfg.SearchURL, cfg.PageSize, strategies, canon, logger)
	if err != nil {
		logger.Error("Invalid harvest pattern: %v", err)
		return 1
	}

	var hosts *airbnb.HostEnricher
	if cfg.HostEnrichment {
		hosts = airbnb.NewHostEnricher(strategies, canon, cfg.HostMaxScrolls, logger)
	}

	renderer := render.NewChromeRenderer(render.ChromeOptions{
		ExecPath:       cfg.ChromeBin,
		Headless:       cfg.Headless,
		BlockResources: cfg.BlockResources,
		NavTimeout:     cfg.NavTimeout,
		SettleDelay:    cfg.SettleDelay,
		Disguise:       render.NewDisguise(cfg.Locale),
		Logger:         logger,
	})

	checkpoint, closeCheckpoint, err := openCheckpoint(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open checkpoint backend: %v", err)
		return 1
	}
	defer closeCheckpoint()

	var mirror storage.Mirror
	if cfg.PostgresEnabled {
		pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN())
		if err != nil {
			logger.Warn("PostgreSQL mirror disabled: %v", err)
		} else {
			defer pgWriter.Close()
			mirror = pgWriter
		}
	}

	metrics := monitoring.NewMetrics()
	controller := services.NewController(cfg, services.Dependencies{
		Renderer:   renderer,
		Harvester:  harvester,
		Extractor:  airbnb.NewExtractor(strategies, canon, logger),
		Hosts:      hosts,
		Store:      storage.NewCSVStore(logger),
		Checkpoint: checkpoint,
		Mirror:     mirror,
		Metrics:    metrics,
	}, logger)

	report, runErr := controller.Run(ctx)
	if report != nil {
		controller.Insights().Print(report)
	}

	if cfg.MetricsPath != "" {
		if err := metrics.WriteTextfile(cfg.MetricsPath); err != nil {
			logger.Warn("Failed to write metrics to %s: %v", cfg.MetricsPath, err)
		}
	}

	if runErr != nil {
		var pe *storage.PersistenceError
		switch {
		case errors.As(runErr, &pe):
			logger.Error("Persistence failed: %v", runErr)
		case errors.Is(runErr, services.ErrSessionCreate):
			logger.Error("Browser unavailable: %v", runErr)
		default:
			logger.Error("Run failed: %v", runErr)
		}
		return 1
	}

	fmt.Printf("  Done. Run output → %s | Master → %s\n\n", cfg.RunOutputPath, cfg.MasterPath)
	return 0
}

func openCheckpoint(ctx context.Context, cfg *config.Config) (storage.Checkpointer, func(), error) {
	switch cfg.CheckpointBackend {
	case "redis":
		rc, err := storage.NewRedisCheckpoint(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey)
		if err != nil {
			return nil, nil, err
		}
		return rc, func() { _ = rc.Close() }, nil
	case "none":
		return storage.NopCheckpoint{}, func() {}, nil
	default:
		return storage.NewFileCheckpoint(cfg.CheckpointPath), func() {}, nil
	}
}
