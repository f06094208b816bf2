package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/covid-projection-etl/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/covid-projection-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/covid-projection-etl/internal/adapter/kafka"
	"github.com/couchcryptid/covid-projection-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/covid-projection-etl/internal/config"
	"github.com/couchcryptid/covid-projection-etl/internal/observability"
	"github.com/couchcryptid/covid-projection-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// sink is a batch loader that owns a connection.
type sink interface {
	pipeline.BatchLoader
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	projector := pipeline.NewTransformer(logger, metrics)

	// Wrap the transformer in an LRU cache (disabled via PROJECTION_CACHE_SIZE=0).
	var transformer pipeline.Transformer = projector
	if cfg.ProjectionCacheSize > 0 {
		cached, err := cache.NewCachedTransformer(projector, cfg.ProjectionCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create projection cache", "error", err)
			os.Exit(1)
		}
		transformer = cached
		logger.Info("projection cache enabled", "size", cfg.ProjectionCacheSize)
	} else {
		logger.Info("projection cache disabled")
	}

	loader, err := openSink(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open sink", "driver", cfg.SinkDriver, "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, projector, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
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
	if err := loader.Close(); err != nil {
		logger.Error("sink close error", "driver", cfg.SinkDriver, "error", err)
	}

	logger.Info("shutdown complete")
}

func openSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sink, error) {
	if cfg.SinkDriver == config.SinkSQLite {
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath, "run_id", store.RunID())
		return store, nil
	}
	logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	return kafkaadapter.NewWriter(cfg, logger), nil
}
