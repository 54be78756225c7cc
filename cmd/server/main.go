// Package main provides the entry point for the citation linker service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/clients/crossref"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/clients/zotero"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/config"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/disambig"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/duplicates"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/observability"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/server"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/similarity"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("citation-linker starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("citelink")
	}

	// External collaborators.
	zoteroClient := zotero.New(zotero.Config{
		BaseURL:   cfg.Zotero.BaseURL,
		UserID:    cfg.Zotero.UserID,
		APIKey:    cfg.Zotero.APIKey,
		Timeout:   cfg.Zotero.Timeout,
		RateLimit: cfg.Zotero.RateLimit,
		BurstSize: cfg.Zotero.BurstSize,
	}, logger)

	crossrefClient := crossref.New(crossref.Config{
		BaseURL:   cfg.CrossRef.BaseURL,
		Email:     cfg.CrossRef.Email,
		Timeout:   cfg.CrossRef.Timeout,
		RateLimit: cfg.CrossRef.RateLimit,
		BurstSize: cfg.CrossRef.BurstSize,
	}, logger)
	defer crossrefClient.Close()

	// Core pipelines.
	detector := duplicates.NewDetector(zoteroClient, duplicates.DetectorConfig{
		Weights: similarity.Weights{
			Title:  cfg.Matching.TitleWeight,
			Author: cfg.Matching.AuthorWeight,
			Year:   cfg.Matching.YearWeight,
		},
		MinTitleSimilarity: cfg.Matching.MinTitleSimilarity,
		MaxCandidates:      cfg.Matching.MaxCandidates,
	}, logger, metrics)

	disambiguator := disambig.New(crossrefClient, disambig.Config{
		MaxCandidates:          cfg.Disambiguation.MaxCandidates,
		TitleSimilarityWeight:  cfg.Disambiguation.TitleSimilarityWeight,
		URLPriorityWeight:      cfg.Disambiguation.URLPriorityWeight,
		ContentPositionWeight:  cfg.Disambiguation.ContentPositionWeight,
		MinimumConfidenceScore: cfg.Disambiguation.MinimumConfidenceScore,
	}, logger, metrics)

	srvCfg := server.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RequestTimeout:  cfg.Server.RequestTimeout,
	}
	if cfg.Metrics.Enabled {
		srvCfg.MetricsPath = cfg.Metrics.Path
	}

	srv := server.NewServer(
		srvCfg,
		detector,
		disambiguator,
		[]server.ReadinessChecker{crossrefClient},
		logger,
		metrics,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", srvCfg.Address).
		Msg("citation-linker is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down citation-linker")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("citation-linker shutdown complete")
	return nil
}
