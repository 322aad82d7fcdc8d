package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/personashop/backend/internal/domain"
	"github.com/personashop/backend/internal/validation"
	"github.com/personashop/backend/pkg/logger"
)

const noSafeChoiceCaveat = "None of the compared products is safe for this profile; the best choice is ranked by score only."

// ComparisonService compares 2-4 explicitly chosen products for a profile.
// Unlike recommendations, unsafe products stay in the output, flagged.
type ComparisonService struct {
	profiles domain.ProfileRepository
	products domain.ProductRepository
	eval     *evaluator
	log      *zap.Logger
	now      func() time.Time
}

// NewComparisonService creates the comparator
func NewComparisonService(
	profiles domain.ProfileRepository,
	products domain.ProductRepository,
	rules *domain.Rulebook,
	filter *SafetyFilter,
	explainer *Explainer,
	maxConcurrency int,
) *ComparisonService {
	return &ComparisonService{
		profiles: profiles,
		products: products,
		eval: &evaluator{
			filter:         filter,
			scorer:         NewMatchScorer(rules),
			explainer:      explainer,
			maxConcurrency: maxConcurrency,
		},
		log: logger.Named("comparison"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Compare scores and explains the requested products in input order and picks a best choice
func (s *ComparisonService) Compare(ctx context.Context, req domain.CompareRequest) (*domain.ComparisonResult, error) {
	start := time.Now()
	result, err := s.compare(ctx, req)
	observe("compare", start, err)
	return result, err
}

func (s *ComparisonService) compare(ctx context.Context, req domain.CompareRequest) (*domain.ComparisonResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, req.ProfileID)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(profile); err != nil {
		return nil, err
	}

	found, err := s.products.GetByIDs(ctx, req.ProductIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	products := make([]domain.Product, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		p, ok := byID[id]
		if !ok {
			return nil, domain.NewNotFoundError("product", id)
		}
		products = append(products, p)
	}

	results := make([]domain.RecommendationResult, len(products))
	breakdowns := make([]domain.ScoreBreakdown, len(products))
	for i, p := range products {
		results[i], breakdowns[i] = s.eval.score(profile, p)
	}

	generatedAt := s.now()
	if err := s.eval.explainAll(ctx, profile, results, breakdowns, generatedAt); err != nil {
		return nil, err
	}

	best, bestIsSafe := pickBest(results)
	out := &domain.ComparisonResult{
		Profile:          *profile,
		Products:         make([]domain.Product, len(results)),
		Recommendations:  results,
		BestChoice:       best.Product.ID,
		BestChoiceIsSafe: bestIsSafe,
		GeneratedAt:      generatedAt,
	}
	for i := range results {
		out.Products[i] = results[i].Product
	}
	if !bestIsSafe {
		out.Caveat = noSafeChoiceCaveat
	}
	out.ComparisonSummary = s.eval.explainer.Summarize(ctx, profile, results, best)

	s.log.Debug("comparison computed",
		zap.String("profile_id", profile.ID),
		zap.Strings("product_ids", req.ProductIDs),
		zap.String("best_choice", out.BestChoice),
		zap.Bool("best_choice_is_safe", bestIsSafe),
	)
	return out, nil
}

// pickBest returns the best safe result by ranking order, or the best overall
// when none is safe. results must not be empty.
func pickBest(results []domain.RecommendationResult) (*domain.RecommendationResult, bool) {
	var best, bestSafe *domain.RecommendationResult
	for i := range results {
		r := &results[i]
		if best == nil || rankLess(r, best) {
			best = r
		}
		if r.IsSafe && (bestSafe == nil || rankLess(r, bestSafe)) {
			bestSafe = r
		}
	}
	if bestSafe != nil {
		return bestSafe, true
	}
	return best, false
}
