package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/fraud-screening/internal/api"
	"github.com/dvloznov/fraud-screening/internal/api/handlers"
	"github.com/dvloznov/fraud-screening/internal/classifier"
	"github.com/dvloznov/fraud-screening/internal/config"
	"github.com/dvloznov/fraud-screening/internal/gcsuploader"
	infraBQ "github.com/dvloznov/fraud-screening/internal/infra/bigquery"
	"github.com/dvloznov/fraud-screening/internal/logger"
	"github.com/dvloznov/fraud-screening/internal/metrics"
	"github.com/dvloznov/fraud-screening/internal/pipeline"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	ctx := logger.WithContext(context.Background(), log)

	// Object storage is needed for a gs:// model or the result archive.
	var storage *gcsuploader.GCSStorageService
	if gcsuploader.IsGCSURI(cfg.ModelURI) || cfg.ArchiveEnabled() {
		storage, err = gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()
	}

	// Load the classifier once; it is shared read-only by all requests.
	var fetcher classifier.Fetcher
	if storage != nil {
		fetcher = storage
	}
	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.ModelLoadTimeout)
	model, err := classifier.Load(loadCtx, cfg.ModelURI, fetcher)
	cancelLoad()
	if err != nil {
		log.Fatal().Err(err).Str("model_uri", cfg.ModelURI).Msg("Failed to load model")
	}

	m := metrics.New()
	svcOpts := []pipeline.Option{pipeline.WithObserver(m)}

	var runs handlers.RunLister
	if cfg.LedgerEnabled() {
		repo, err := infraBQ.NewBigQueryRunRepository(ctx, cfg.GCPProjectID, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create run repository")
		}
		defer repo.Close()
		runs = repo
		svcOpts = append(svcOpts, pipeline.WithRunRecorder(repo))
	} else {
		log.Warn().Msg("No GCP project configured - run ledger disabled")
	}

	if cfg.ArchiveEnabled() {
		svcOpts = append(svcOpts, pipeline.WithArchive(storage, cfg.ArchiveBucket))
	}

	handler := api.NewRouter(api.Deps{
		Scorer:         pipeline.NewService(model, svcOpts...),
		Runs:           runs,
		Model:          model.Info(),
		Metrics:        m.Handler(),
		Limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Log:            log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
