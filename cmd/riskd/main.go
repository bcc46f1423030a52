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

	httpadapter "github.com/zonewatch/riskcore/internal/adapter/http"
	kafkaadapter "github.com/zonewatch/riskcore/internal/adapter/kafka"
	"github.com/zonewatch/riskcore/internal/adapter/mlhttp"
	"github.com/zonewatch/riskcore/internal/allocate"
	"github.com/zonewatch/riskcore/internal/config"
	"github.com/zonewatch/riskcore/internal/domain"
	"github.com/zonewatch/riskcore/internal/engine"
	"github.com/zonewatch/riskcore/internal/observability"
	"github.com/zonewatch/riskcore/internal/predictor"
	"github.com/zonewatch/riskcore/internal/provider"
	"github.com/zonewatch/riskcore/internal/risk"
	"github.com/zonewatch/riskcore/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	riskCfg := risk.DefaultConfig()
	if err := riskCfg.Validate(); err != nil {
		logger.Error("invalid risk configuration", "error", err)
		os.Exit(1)
	}
	needCfg := allocate.DefaultNeedConfig()
	if err := needCfg.Validate(); err != nil {
		logger.Error("invalid need configuration", "error", err)
		os.Exit(1)
	}

	db, err := store.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}

	// Layer-2 predictor (feature-flagged via ML_ENABLED / ML_ENDPOINT).
	// Without a remote endpoint the rule-based stub fills in.
	var pred domain.Predictor
	if cfg.MLEnabled {
		pred = mlhttp.NewClient(cfg.MLEndpoint, cfg.MLTimeout, logger)
		logger.Info("ml predictions enabled", "endpoint", cfg.MLEndpoint, "timeout", cfg.MLTimeout)
	} else {
		pred = predictor.NewRuleBased()
		logger.Info("ml endpoint not configured, using rule-based predictions")
	}

	var publisher engine.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	inputs := provider.NewFile(cfg.ZonesPath, cfg.ResourcesPath, cfg.ObservationsPath, logger)

	eng := engine.New(inputs, pred, db, publisher,
		risk.NewEngine(riskCfg), allocate.NewNeedScorer(needCfg),
		logger, metrics, engine.Options{
			Workers:   cfg.WorkerCount,
			MLTimeout: cfg.MLTimeout,
			Interval:  cfg.CycleInterval,
		})

	// Seed spillover and surge context from the last run before starting.
	if prior, err := db.LatestRecords(context.Background()); err != nil {
		logger.Warn("could not load prior records, starting cold", "error", err)
	} else if len(prior) > 0 {
		eng.Seed(prior)
		logger.Info("restored prior cycle snapshot", "zones", len(prior))
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, db, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := eng.Run(ctx); err != nil {
			logger.Error("engine error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
