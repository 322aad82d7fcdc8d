package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/personashop/backend/internal/domain"
	"github.com/personashop/backend/internal/metrics"
	"github.com/personashop/backend/pkg/logger"
)

const (
	defaultGeneratorTimeout = 4 * time.Second
	maxKeyFeatures          = 3
	keyFeatureWriteTimeout  = 2 * time.Second
)

// Explainer turns score breakdowns into explanations, delegating to a generative
// backend when one is configured and falling back to templates otherwise
type Explainer struct {
	generator domain.ExplanationGenerator
	features  domain.KeyFeatureWriter
	timeout   time.Duration
	log       *zap.Logger
}

// NewExplainer creates an explainer. generator and features may be nil.
func NewExplainer(generator domain.ExplanationGenerator, features domain.KeyFeatureWriter, timeout time.Duration) *Explainer {
	if timeout <= 0 {
		timeout = defaultGeneratorTimeout
	}
	return &Explainer{
		generator: generator,
		features:  features,
		timeout:   timeout,
		log:       logger.Named("explainer"),
	}
}

// Explain never fails: generator errors, timeouts and empty replies are
// replaced by the template explanation. The returned pros and cons are never empty.
func (e *Explainer) Explain(
	ctx context.Context,
	profile *domain.Profile,
	product *domain.Product,
	breakdown domain.ScoreBreakdown,
	safetyNotes []string,
) domain.Explanation {
	tmpl := templateExplanation(profile, product, breakdown, safetyNotes)

	if e.generator == nil {
		metrics.Explanations.WithLabelValues(domain.SourceTemplate).Inc()
		return tmpl
	}

	prompt := domain.ExplainPrompt{
		Profile:   *profile,
		Product:   *product,
		Score:     breakdown.Score,
		Breakdown: breakdown,
		IsSafe:    len(safetyNotes) == 0,
		Safety:    safetyNotes,
	}
	gen, err := callWithTimeout(ctx, e.timeout, func(cctx context.Context) (*domain.GeneratedExplanation, error) {
		return e.generator.Explain(cctx, prompt)
	})
	if err == nil && (gen == nil || strings.TrimSpace(gen.Explanation) == "") {
		err = errEmptyReply
	}
	if err != nil {
		e.fallback("explain", product.ID, err)
		metrics.Explanations.WithLabelValues(domain.SourceTemplate).Inc()
		return tmpl
	}

	out := domain.Explanation{
		Text:   strings.TrimSpace(gen.Explanation),
		Pros:   nonEmpty(gen.Pros),
		Cons:   nonEmpty(gen.Cons),
		Source: domain.SourceAI,
	}
	if len(out.Pros) > 0 && len(product.Attributes.AIKeyFeatures) == 0 {
		out.KeyFeatures = firstN(out.Pros, maxKeyFeatures)
		e.storeKeyFeatures(ctx, product.ID, out.KeyFeatures)
	}
	if len(out.Pros) == 0 {
		out.Pros = tmpl.Pros
	}
	if len(out.Cons) == 0 {
		out.Cons = tmpl.Cons
	} else if len(safetyNotes) > 0 {
		out.Cons = append(append([]string{}, safetyNotes...), out.Cons...)
	}

	metrics.Explanations.WithLabelValues(domain.SourceAI).Inc()
	return out
}

// Summarize synthesizes the comparison summary. best must be one of results.
func (e *Explainer) Summarize(
	ctx context.Context,
	profile *domain.Profile,
	results []domain.RecommendationResult,
	best *domain.RecommendationResult,
) string {
	tmpl := templateSummary(profile, results, best)
	if e.generator == nil {
		return tmpl
	}

	prompt := domain.ComparePrompt{Profile: *profile, Results: results, Best: *best}
	summary, err := callWithTimeout(ctx, e.timeout, func(cctx context.Context) (string, error) {
		return e.generator.Summarize(cctx, prompt)
	})
	if err == nil && strings.TrimSpace(summary) == "" {
		err = errEmptyReply
	}
	if err != nil {
		e.fallback("summarize", best.Product.ID, err)
		return tmpl
	}
	return strings.TrimSpace(summary)
}

var errEmptyReply = errors.New("empty generator reply")

func (e *Explainer) fallback(op, productID string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(err, context.Canceled):
		reason = "canceled"
	case errors.Is(err, domain.ErrGeneratorUnavailable):
		reason = "unavailable"
	case errors.Is(err, errEmptyReply):
		reason = "empty"
	}
	metrics.GeneratorFallbacks.WithLabelValues(reason).Inc()
	e.log.Warn("generator failed, using template",
		zap.String("operation", op),
		zap.String("product_id", productID),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// storeKeyFeatures is best-effort; a failed write only logs
func (e *Explainer) storeKeyFeatures(ctx context.Context, productID string, features []string) {
	if e.features == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), keyFeatureWriteTimeout)
	defer cancel()
	if err := e.features.UpdateKeyFeatures(wctx, productID, features); err != nil {
		e.log.Warn("failed to store key features", zap.String("product_id", productID), zap.Error(err))
	}
}

// callWithTimeout bounds fn by timeout even when fn ignores its context
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		val T
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		v, err := fn(cctx)
		ch <- reply{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-cctx.Done():
		var zero T
		return zero, cctx.Err()
	}
}

// templateExplanation is built only from the scoring signals, so it always agrees with the score
func templateExplanation(profile *domain.Profile, product *domain.Product, b domain.ScoreBreakdown, safetyNotes []string) domain.Explanation {
	pros := b.Pros()
	cons := b.Cons()

	var text strings.Builder
	fmt.Fprintf(&text, "%s is a %s match for %s (%d/100).", product.DisplayName(), matchStrength(b.Score), profile.DisplayName(), b.Score)
	if len(pros) > 0 {
		fmt.Fprintf(&text, " %s.", pros[0])
	}
	if len(cons) > 0 {
		fmt.Fprintf(&text, " Keep in mind: %s.", lowerFirst(cons[0]))
	}
	if len(safetyNotes) > 0 {
		fmt.Fprintf(&text, " Not recommended: %s.", lowerFirst(safetyNotes[0]))
	}

	if len(pros) == 0 {
		pros = []string{fmt.Sprintf("Overall match score of %d/100", b.Score)}
	}
	cons = append(append([]string{}, safetyNotes...), cons...)
	if len(cons) == 0 {
		cons = []string{fmt.Sprintf("No notable drawbacks found for %s", profile.DisplayName())}
	}

	return domain.Explanation{
		Text:   text.String(),
		Pros:   pros,
		Cons:   cons,
		Source: domain.SourceTemplate,
	}
}

// templateSummary contrasts the best choice with the strongest alternative
func templateSummary(profile *domain.Profile, results []domain.RecommendationResult, best *domain.RecommendationResult) string {
	var runnerUp *domain.RecommendationResult
	for i := range results {
		r := &results[i]
		if r.Product.ID == best.Product.ID {
			continue
		}
		if runnerUp == nil || rankLess(r, runnerUp) {
			runnerUp = r
		}
	}

	var sb strings.Builder
	if runnerUp == nil {
		fmt.Fprintf(&sb, "%s scores %d/100 for %s.", best.Product.DisplayName(), best.MatchScore, profile.DisplayName())
		return sb.String()
	}

	switch {
	case best.MatchScore > runnerUp.MatchScore:
		fmt.Fprintf(&sb, "%s (%d/100) is a better match for %s than %s (%d/100).",
			best.Product.DisplayName(), best.MatchScore, profile.DisplayName(),
			runnerUp.Product.DisplayName(), runnerUp.MatchScore)
	case best.MatchScore == runnerUp.MatchScore:
		fmt.Fprintf(&sb, "%s and %s both score %d/100 for %s; %s wins on rating and price.",
			best.Product.DisplayName(), runnerUp.Product.DisplayName(), best.MatchScore,
			profile.DisplayName(), best.Product.DisplayName())
	default:
		fmt.Fprintf(&sb, "%s (%d/100) is the safer choice for %s, although %s scores higher (%d/100).",
			best.Product.DisplayName(), best.MatchScore, profile.DisplayName(),
			runnerUp.Product.DisplayName(), runnerUp.MatchScore)
	}

	if len(best.Pros) > 0 {
		fmt.Fprintf(&sb, " Its main strength: %s.", lowerFirst(best.Pros[0]))
	}
	if !runnerUp.IsSafe {
		fmt.Fprintf(&sb, " %s is flagged as unsafe.", runnerUp.Product.DisplayName())
	} else if len(runnerUp.Cons) > 0 {
		fmt.Fprintf(&sb, " %s falls short on: %s.", runnerUp.Product.DisplayName(), lowerFirst(runnerUp.Cons[0]))
	}
	return sb.String()
}

func matchStrength(score int) string {
	switch {
	case score >= 85:
		return "strong"
	case score >= 70:
		return "good"
	case score >= 50:
		return "fair"
	}
	return "weak"
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstN(in []string, n int) []string {
	if len(in) > n {
		in = in[:n]
	}
	return append([]string{}, in...)
}
