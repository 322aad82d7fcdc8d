package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/personashop/backend/internal/domain"
	"github.com/personashop/backend/internal/metrics"
	"github.com/personashop/backend/internal/validation"
	"github.com/personashop/backend/pkg/logger"
)

// RecommendationConfig holds configuration for the recommendation assembler
type RecommendationConfig struct {
	DefaultLimit    int
	MaxLimit        int
	MaxConcurrency  int
	CatalogPageSize int
	CacheTTL        time.Duration
}

func (c *RecommendationConfig) applyDefaults() {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 50
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.CatalogPageSize <= 0 {
		c.CatalogPageSize = 500
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 7 * 24 * time.Hour
	}
}

// RecommendationService assembles ranked, explained recommendations for a profile
type RecommendationService struct {
	profiles domain.ProfileRepository
	products domain.ProductRepository
	cache    domain.CacheRepository
	eval     *evaluator
	config   RecommendationConfig
	rulesSum uint64
	log      *zap.Logger
	now      func() time.Time
}

// NewRecommendationService creates the assembler. cache may be nil to disable caching.
func NewRecommendationService(
	profiles domain.ProfileRepository,
	products domain.ProductRepository,
	cache domain.CacheRepository,
	rules *domain.Rulebook,
	filter *SafetyFilter,
	explainer *Explainer,
	config RecommendationConfig,
) *RecommendationService {
	config.applyDefaults()
	return &RecommendationService{
		profiles: profiles,
		products: products,
		cache:    cache,
		eval: &evaluator{
			filter:         filter,
			scorer:         NewMatchScorer(rules),
			explainer:      explainer,
			maxConcurrency: config.MaxConcurrency,
		},
		config:   config,
		rulesSum: rulebookChecksum(rules),
		log:      logger.Named("recommendation"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Recommend returns the top safe products for a profile. The boolean reports a cache hit.
func (s *RecommendationService) Recommend(ctx context.Context, req domain.RecommendRequest) (*domain.RecommendationResponse, bool, error) {
	start := time.Now()
	resp, cached, err := s.recommend(ctx, req)
	observe("recommend", start, err)
	return resp, cached, err
}

func (s *RecommendationService) recommend(ctx context.Context, req domain.RecommendRequest) (*domain.RecommendationResponse, bool, error) {
	if err := validation.Struct(req); err != nil {
		return nil, false, err
	}
	limit := s.resolveLimit(req.Limit)

	profile, err := s.loadProfile(ctx, req.ProfileID)
	if err != nil {
		return nil, false, err
	}

	catalog, err := s.loadCatalog(ctx, profile.Category)
	if err != nil {
		return nil, false, err
	}

	key := s.cacheKey(profile, catalog, limit)
	if req.ForceRefresh {
		s.evict(ctx, key)
	} else if resp, ok := s.cached(ctx, key); ok {
		return resp, true, nil
	}

	safe, excluded := s.eval.filter.Filter(profile, catalog)
	if len(excluded) > 0 {
		metrics.ProductsFiltered.WithLabelValues(string(profile.Category)).Add(float64(len(excluded)))
	}

	results := make([]domain.RecommendationResult, len(safe))
	breakdowns := make(map[string]domain.ScoreBreakdown, len(safe))
	for i, p := range safe {
		bd := s.eval.scorer.Score(profile, &p)
		results[i] = domain.RecommendationResult{Product: p, IsSafe: true, MatchScore: bd.Score}
		breakdowns[p.ID] = bd
	}
	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}

	ordered := make([]domain.ScoreBreakdown, len(results))
	for i := range results {
		ordered[i] = breakdowns[results[i].Product.ID]
	}

	generatedAt := s.now()
	if err := s.eval.explainAll(ctx, profile, results, ordered, generatedAt); err != nil {
		return nil, false, err
	}

	resp := &domain.RecommendationResponse{
		Profile:           *profile,
		Recommendations:   results,
		TotalSafeProducts: len(safe),
		TotalFilteredOut:  len(excluded),
		FilteredOut:       excluded,
		GeneratedAt:       generatedAt,
	}

	s.store(ctx, key, resp)

	s.log.Debug("recommendations computed",
		zap.String("profile_id", profile.ID),
		zap.Int("catalog", len(catalog)),
		zap.Int("safe", len(safe)),
		zap.Int("filtered_out", len(excluded)),
		zap.Int("returned", len(results)),
	)
	return resp, false, nil
}

// Evaluate scores and explains a single product for a profile, reporting
// safety problems instead of dropping the product
func (s *RecommendationService) Evaluate(ctx context.Context, req domain.EvaluateRequest) (*domain.RecommendationResult, error) {
	start := time.Now()
	result, err := s.evaluate(ctx, req)
	observe("evaluate", start, err)
	return result, err
}

func (s *RecommendationService) evaluate(ctx context.Context, req domain.EvaluateRequest) (*domain.RecommendationResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, req.ProfileID)
	if err != nil {
		return nil, err
	}

	products, err := s.products.GetByIDs(ctx, []string{req.ProductID})
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if len(products) == 0 {
		return nil, domain.NewNotFoundError("product", req.ProductID)
	}

	result, bd := s.eval.score(profile, products[0])
	results := []domain.RecommendationResult{result}
	if err := s.eval.explainAll(ctx, profile, results, []domain.ScoreBreakdown{bd}, s.now()); err != nil {
		return nil, err
	}
	return &results[0], nil
}

func (s *RecommendationService) resolveLimit(limit *int) int {
	if limit == nil {
		return s.config.DefaultLimit
	}
	if *limit > s.config.MaxLimit {
		return s.config.MaxLimit
	}
	return *limit
}

func (s *RecommendationService) loadProfile(ctx context.Context, id string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// loadCatalog reads the whole active catalog of a category, page by page
func (s *RecommendationService) loadCatalog(ctx context.Context, category domain.ProfileCategory) ([]domain.Product, error) {
	size := s.config.CatalogPageSize
	var catalog []domain.Product
	for offset := 0; ; offset += size {
		page, err := s.products.ListByCategory(ctx, category, offset, size)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		catalog = append(catalog, page...)
		if len(page) < size {
			return catalog, nil
		}
	}
}

func (s *RecommendationService) cached(ctx context.Context, key string) (*domain.RecommendationResponse, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			metrics.CacheRequests.WithLabelValues("miss").Inc()
		} else {
			metrics.CacheRequests.WithLabelValues("error").Inc()
			s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var resp domain.RecommendationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		s.log.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		s.evict(ctx, key)
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return &resp, true
}

// evict drops an entry so that a refresh that never completes cannot leave it behind
func (s *RecommendationService) evict(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// store writes the response only when the request completed; a canceled
// computation never reaches the cache
func (s *RecommendationService) store(ctx context.Context, key string, resp *domain.RecommendationResponse) {
	if s.cache == nil || ctx.Err() != nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn("failed to encode recommendations for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data, s.config.CacheTTL); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// cacheKey fingerprints the profile, the catalog and the rulebook. Generated
// key features are left out so that writing them back does not invalidate entries.
func (s *RecommendationService) cacheKey(profile *domain.Profile, catalog []domain.Product, limit int) string {
	h := xxhash.New()
	fmt.Fprintf(h, "rules:%x\n", s.rulesSum)

	if data, err := json.Marshal(profile); err == nil {
		_, _ = h.Write(data)
	}
	for _, p := range catalog {
		p.Attributes = withoutKeyFeatures(p.Attributes)
		if data, err := json.Marshal(p); err == nil {
			_, _ = h.Write(data)
		}
	}
	return fmt.Sprintf("recommendations:%s:%016x:%d", profile.ID, h.Sum64(), limit)
}

func withoutKeyFeatures(attrs domain.ProductAttributes) domain.ProductAttributes {
	attrs.AIKeyFeatures = nil
	if _, ok := attrs.Extra["ai_key_features"]; ok {
		extra := make(map[string]interface{}, len(attrs.Extra))
		for k, v := range attrs.Extra {
			if k != "ai_key_features" {
				extra[k] = v
			}
		}
		attrs.Extra = extra
	}
	return attrs
}

func rulebookChecksum(rules *domain.Rulebook) uint64 {
	if rules == nil {
		return 0
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}

// observe records the outcome of an engine operation
func observe(operation string, start time.Time, err error) {
	metrics.RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	metrics.RequestsTotal.WithLabelValues(operation, statusOf(err)).Inc()
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}
