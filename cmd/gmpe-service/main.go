package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/EdenYYT/RapidGMPE/internal/adapter/artifacts"
	"github.com/EdenYYT/RapidGMPE/internal/adapter/geotiff"
	httpadapter "github.com/EdenYYT/RapidGMPE/internal/adapter/http"
	kafkaadapter "github.com/EdenYYT/RapidGMPE/internal/adapter/kafka"
	"github.com/EdenYYT/RapidGMPE/internal/adapter/mapbox"
	"github.com/EdenYYT/RapidGMPE/internal/config"
	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/engine"
	"github.com/EdenYYT/RapidGMPE/internal/gmpe"
	"github.com/EdenYYT/RapidGMPE/internal/grid"
	"github.com/EdenYYT/RapidGMPE/internal/observability"
	"github.com/EdenYYT/RapidGMPE/internal/pipeline"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	metrics := observability.NewMetrics()

	builder, err := grid.NewBuilder(geotiff.NewOpener(logger), logger)
	if err != nil {
		logger.Error("failed to create grid builder", "error", err)
		os.Exit(1)
	}
	grids := grid.NewCachedBuilder(builder, cfg.GridCacheSize)
	grids.OnLookup = func(hit bool) {
		if hit {
			metrics.GridCache.WithLabelValues("hit").Inc()
		} else {
			metrics.GridCache.WithLabelValues("miss").Inc()
		}
	}

	catalog := gmpe.Default()
	eng := engine.New(grids, catalog, logger)
	store := artifacts.NewStore(cfg.OutputDir, geotiff.NewWriter(), artifacts.Options{
		SavePerModel:       cfg.SavePerModel,
		ConvertToIntensity: cfg.ConvertToIntensity,
	}, logger)

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	transformer := pipeline.NewEstimateTransformer(eng, store, geocoder, pipeline.Defaults{
		SitePath:     cfg.SiteRasterPath,
		ResolutionKm: cfg.GridResolutionKm,
		Models:       cfg.Models,
	}, metrics, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, httpadapter.API{
		Models:    catalog,
		Estimator: transformer,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting rapid-gmpe",
		"site_raster", cfg.SiteRasterPath,
		"output_dir", cfg.OutputDir,
		"models", catalog.Names(),
		"source_topic", cfg.KafkaSourceTopic,
		"sink_topic", cfg.KafkaSinkTopic,
	)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
