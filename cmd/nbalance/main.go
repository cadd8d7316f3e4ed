package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/nutrient-balance/nbalance/internal/adapter/http"
	kafkaadapter "github.com/nutrient-balance/nbalance/internal/adapter/kafka"
	"github.com/nutrient-balance/nbalance/internal/adapter/raster"
	"github.com/nutrient-balance/nbalance/internal/config"
	"github.com/nutrient-balance/nbalance/internal/nitrogen"
	"github.com/nutrient-balance/nbalance/internal/observability"
	"github.com/nutrient-balance/nbalance/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("nbalance exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	// One raster cache per process; every request shares the opened deposition maps.
	rasters := raster.NewCache(raster.NewClient(cfg.RasterTimeout, metrics, logger), metrics)
	calculator := nitrogen.NewCalculator(rasters, cfg.FieldConcurrency, logger)
	transformer := pipeline.NewTransformer(calculator, cfg.PublicDataURL, metrics, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	defer closeLogged(logger, "kafka reader", reader.Close)
	writer := kafkaadapter.NewWriter(cfg, logger)
	defer closeLogged(logger, "kafka writer", writer.Close)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize,
		pipeline.WithRequestConcurrency(cfg.RequestConcurrency))
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	logger.Info("nbalance starting",
		"http_addr", cfg.HTTPAddr,
		"source_topic", cfg.KafkaSourceTopic,
		"sink_topic", cfg.KafkaSinkTopic,
		"public_data_url", cfg.PublicDataURL,
		"field_concurrency", cfg.FieldConcurrency,
		"request_concurrency", cfg.RequestConcurrency,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline stopped", "error", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serveErr:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}

	// Let an in-flight batch finish publishing before the Kafka clients close.
	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	logger.Info("shutdown complete")
	return runErr
}

func closeLogged(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("close "+name, "error", err)
	}
}
