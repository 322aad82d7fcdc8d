package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/personashop/backend/config"
	httpDelivery "github.com/personashop/backend/internal/delivery/http"
	"github.com/personashop/backend/internal/domain"
	"github.com/personashop/backend/internal/infrastructure/cache"
	"github.com/personashop/backend/internal/infrastructure/llm"
	"github.com/personashop/backend/internal/infrastructure/rules"
	"github.com/personashop/backend/internal/infrastructure/store"
	"github.com/personashop/backend/internal/metrics"
	"github.com/personashop/backend/internal/usecase"
	"github.com/personashop/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	logger.Info("Starting PersonaShop Backend v1.0.0",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache", cfg.Cache.Type),
		zap.String("store", cfg.Store.Driver),
		zap.String("explanation_provider", cfg.Explanation.Provider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	rulebook, err := rules.Load(cfg.Recommendation.RulesPath)
	if err != nil {
		return fmt.Errorf("failed to load rulebook: %w", err)
	}

	// Initialize infrastructure dependencies
	db, err := store.Open(cfg.Store.Driver, cfg.Store.DSN, cfg.Store.AutoMigrate)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(db); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}()

	profiles := store.NewProfileRepository(db)
	products := store.NewProductRepository(db)
	if cfg.Store.SeedPath != "" {
		if err := store.SeedFromFile(ctx, cfg.Store.SeedPath, profiles, products); err != nil {
			return err
		}
	}

	var cacheRepo domain.CacheRepository
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		cacheRepo = redisCache
	default:
		cacheRepo = cache.NewMemoryCache(ctx)
	}
	logger.Info("Cache configured", zap.String("type", cfg.Cache.Type), zap.Duration("ttl", cfg.Cache.TTL))

	var generator domain.ExplanationGenerator
	if cfg.Explanation.Enabled() {
		client, err := llm.NewClient(llm.Config{
			Provider:          cfg.Explanation.Provider,
			APIKey:            cfg.Explanation.APIKey,
			BaseURL:           cfg.Explanation.BaseURL,
			Model:             cfg.Explanation.Model,
			MaxTokens:         cfg.Explanation.MaxTokens,
			Temperature:       cfg.Explanation.Temperature,
			RequestsPerSecond: cfg.Explanation.RequestsPerSecond,
			Burst:             cfg.Explanation.Burst,
			MaxRetries:        cfg.Explanation.MaxRetries,
		})
		if err != nil {
			return fmt.Errorf("failed to create explanation client: %w", err)
		}
		generator = client
	} else {
		logger.Info("No explanation provider configured, using template explanations")
	}

	// Initialize usecase layer
	filter := usecase.NewSafetyFilter(rulebook, usecase.SafetyFilterConfig{
		EnableFuzzyMatching: cfg.Recommendation.FuzzyAllergenMatching,
	})
	explainer := usecase.NewExplainer(generator, products, cfg.Explanation.Timeout)

	recommendations := usecase.NewRecommendationService(
		profiles, products, cacheRepo, rulebook, filter, explainer,
		usecase.RecommendationConfig{
			DefaultLimit:    cfg.Recommendation.DefaultLimit,
			MaxLimit:        cfg.Recommendation.MaxLimit,
			MaxConcurrency:  cfg.Recommendation.MaxConcurrency,
			CatalogPageSize: cfg.Recommendation.CatalogPageSize,
			CacheTTL:        cfg.Cache.TTL,
		},
	)
	comparisons := usecase.NewComparisonService(
		profiles, products, rulebook, filter, explainer, cfg.Recommendation.MaxConcurrency,
	)

	handler := httpDelivery.NewHandler(recommendations, comparisons)
	router := httpDelivery.SetupRouter(cfg, handler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
