package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/personashop/backend/internal/domain"
)

// evaluator runs the filter -> score -> explain pipeline shared by the
// recommendation assembler and the comparator
type evaluator struct {
	filter         *SafetyFilter
	scorer         *MatchScorer
	explainer      *Explainer
	maxConcurrency int
}

// score checks safety and scores one product without explaining it
func (ev *evaluator) score(profile *domain.Profile, product domain.Product) (domain.RecommendationResult, domain.ScoreBreakdown) {
	notes := ev.filter.Check(profile, &product)
	breakdown := ev.scorer.Score(profile, &product)
	return domain.RecommendationResult{
		Product:     product,
		IsSafe:      len(notes) == 0,
		MatchScore:  breakdown.Score,
		SafetyNotes: notes,
	}, breakdown
}

// explainAll fills explanation fields of results concurrently, bounded by maxConcurrency.
// breakdowns[i] belongs to results[i].
func (ev *evaluator) explainAll(
	ctx context.Context,
	profile *domain.Profile,
	results []domain.RecommendationResult,
	breakdowns []domain.ScoreBreakdown,
	generatedAt time.Time,
) error {
	var g errgroup.Group
	limit := ev.maxConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range results {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := &results[i]
			exp := ev.explainer.Explain(ctx, profile, &r.Product, breakdowns[i], r.SafetyNotes)
			r.Explanation = exp.Text
			r.Pros = exp.Pros
			r.Cons = exp.Cons
			r.ExplanationSource = exp.Source
			r.GeneratedAt = generatedAt
			if len(exp.KeyFeatures) > 0 {
				r.Product.Attributes.AIKeyFeatures = exp.KeyFeatures
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
