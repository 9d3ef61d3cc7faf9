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

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-overlay/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/hazard-overlay/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-overlay/internal/config"
	"github.com/couchcryptid/hazard-overlay/internal/correlate"
	"github.com/couchcryptid/hazard-overlay/internal/engine"
	"github.com/couchcryptid/hazard-overlay/internal/observability"
	"github.com/couchcryptid/hazard-overlay/internal/render"
	"github.com/couchcryptid/hazard-overlay/internal/sequence"
	"github.com/couchcryptid/hazard-overlay/internal/temporal"
	"github.com/couchcryptid/hazard-overlay/internal/timecursor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The service owns the shared time cursor; the engine only consumes it.
	cursor := timecursor.NewClocked(clockwork.NewRealClock(), cfg.CursorTick, cfg.CursorSpeed, time.Now().UTC())
	go cursor.Run(ctx)

	sink := render.NewMemorySink()
	recency := temporal.RecencyPolicy{Peak: cfg.RecencyPeak, Floor: 1.0, Window: cfg.RecencyWindow}
	eng := engine.New(sink, recency, cursor, logger, metrics)

	// Correlation lookups are feature-flagged; without them sequence
	// playback still works for intra-type families.
	var finder correlate.Finder
	if cfg.CorrelationEnabled {
		client := correlate.NewClient(cfg.CorrelationBaseURL, cfg.CorrelationTimeout, logger, metrics)
		finder = correlate.NewCachedFinder(client, cfg.CorrelationCacheSize, metrics)
		logger.Info("correlation queries enabled", "base_url", cfg.CorrelationBaseURL, "cache_size", cfg.CorrelationCacheSize)
	} else {
		logger.Info("correlation queries disabled")
	}

	player := sequence.NewPlayer(eng.OverlaysView(), finder, cursor, func(e sequence.Event) {
		logger.Info("sequence event", "kind", e.Kind, "seed_id", e.SeedID, "members", e.Members)
	}, logger, metrics)
	eng.AttachPlayer(player)

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, sink, cursor, logger)

	var reader *kafkaadapter.Reader
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, eng, logger)
		go func() {
			if err := reader.Run(ctx); err != nil {
				logger.Error("kafka ingest error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka ingest disabled")
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	eng.Close()

	logger.Info("shutdown complete")
}
