// Package main runs the stock advisor backend: HTTP/WS API, the
// recommendation engine and the periodic scan scheduler.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stock-advisor/internal/api"
	"stock-advisor/internal/config"
	"stock-advisor/internal/engine"
	"stock-advisor/internal/providers"
	"stock-advisor/internal/reasoning"
	"stock-advisor/internal/scheduler"
	"stock-advisor/internal/status"
	"stock-advisor/internal/storage"
	"stock-advisor/internal/storage/memory"
	"stock-advisor/internal/storage/migrations"
	"stock-advisor/internal/storage/postgres"
	"stock-advisor/internal/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	settings := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := settings.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	repo, cleanup, err := buildRepository(ctx, settings, logger)
	if err != nil {
		logger.Fatal("storage setup failed", zap.Error(err))
	}
	defer cleanup()

	wsManager := ws.NewManager(logger)
	reasoner := reasoning.NewHTTPClient(reasoning.HTTPClientConfig{
		BaseURL:        settings.LLMBaseURL,
		APIKey:         settings.LLMAPIKey,
		Model:          settings.LLMModel,
		Timeout:        settings.LLMTimeout,
		MaxConcurrency: settings.LLMMaxConcurrency,
	}, logger)

	eng := engine.New(
		repo,
		providers.NewAlpacaProvider(),
		providers.NewFinvizNewsProvider(0),
		reasoner,
		status.NewScanTracker(),
		status.NewDiscoverTracker(),
		&api.RecommendationNotifier{Manager: wsManager, Logger: logger},
		engine.Options{
			Cooldown:                settings.Cooldown,
			EvidenceMinItems:        settings.EvidenceMinItems,
			MaxPositionAggressive:   settings.MaxPositionAggressive,
			MaxPositionNeutral:      settings.MaxPositionNeutral,
			MaxPositionConservative: settings.MaxPositionConservative,
			MinTurnover20d:          settings.MinTurnover20d,
		},
		logger,
	)

	if settings.SchedulerEnabled {
		go scheduler.New(eng, settings.ScanInterval, logger).Run(ctx)
	} else {
		logger.Info("scheduler disabled")
	}

	server := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           api.NewServer(eng, repo, wsManager, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", settings.ListenAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

// buildRepository selects postgres when a DSN is configured and the
// in-memory stores otherwise.
func buildRepository(ctx context.Context, settings config.Settings, logger *zap.Logger) (storage.Repository, func(), error) {
	if settings.PostgresDSN == "" {
		logger.Info("using in-memory storage")
		recs := memory.NewRecommendationStore()
		return storage.Repository{
			Watchlist:       memory.NewWatchlistStore(),
			Preferences:     memory.NewPreferenceStore(),
			Recommendations: recs,
			Feedback:        memory.NewFeedbackStore(recs),
		}, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, settings.PostgresDSN)
	if err != nil {
		return storage.Repository{}, nil, err
	}
	if err := migrations.RunPostgres(ctx, pool); err != nil {
		pool.Close()
		return storage.Repository{}, nil, err
	}
	logger.Info("using postgres storage")
	return storage.Repository{
		Watchlist:       postgres.NewWatchlistStore(pool),
		Preferences:     postgres.NewPreferenceStore(pool),
		Recommendations: postgres.NewRecommendationStore(pool),
		Feedback:        postgres.NewFeedbackStore(pool),
	}, pool.Close, nil
}
