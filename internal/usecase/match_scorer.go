package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/personashop/backend/internal/domain"
)

// Sub-score values used when the product carries no data for a signal
const (
	neutralScore       = 0.5
	lifeStageMismatch  = 0.2
	sizeMismatch       = 0.4
	bandDecayDeviation = 0.5 // relative deviation at which a band score reaches 0
	highRating         = 4.5
	lowRating          = 3.5
)

// MatchScorer computes a 0-100 compatibility score from four weighted sub-scores.
// The result is a pure function of (profile, product, rulebook).
type MatchScorer struct {
	rules *domain.Rulebook
}

// NewMatchScorer creates a scorer over the given rulebook
func NewMatchScorer(rules *domain.Rulebook) *MatchScorer {
	return &MatchScorer{rules: rules}
}

// Score computes the breakdown of product against profile
func (s *MatchScorer) Score(profile *domain.Profile, product *domain.Product) domain.ScoreBreakdown {
	rules := s.rules.For(profile.Category)
	weights := s.weightsFor(profile, rules)

	sc := &scoreCollector{}
	b := domain.ScoreBreakdown{Weights: weights}

	sc.weight = weights.CategoryFit
	b.CategoryFit = categoryFit(sc, profile, product, rules)
	sc.weight = weights.NutritionFit
	b.NutritionFit = nutritionFit(sc, profile, product, rules)
	sc.weight = weights.PreferenceFit
	b.PreferenceFit = preferenceFit(sc, profile, product, rules)
	sc.weight = weights.Quality
	b.Quality = quality(sc, product)

	total := weights.CategoryFit*b.CategoryFit +
		weights.NutritionFit*b.NutritionFit +
		weights.PreferenceFit*b.PreferenceFit +
		weights.Quality*b.Quality
	b.Score = clampScore(int(math.Round(100 * total / weights.Sum())))

	sort.SliceStable(sc.signals, func(i, j int) bool {
		return sc.signals[i].Weight > sc.signals[j].Weight
	})
	b.Signals = sc.signals

	return b
}

// weightsFor picks the health-condition or budget weight table when it applies
func (s *MatchScorer) weightsFor(profile *domain.Profile, rules domain.CategoryRules) domain.ScoreWeights {
	w := rules.Weights
	if w.IsZero() {
		w = domain.DefaultWeights
	}
	if len(profile.NormalizedConditions()) > 0 && !rules.HealthConditionWeights.IsZero() {
		return rules.HealthConditionWeights
	}
	if profile.Preferences.String(domain.PrefPriceRange) == "budget" && !rules.BudgetWeights.IsZero() {
		return rules.BudgetWeights
	}
	return w
}

// scoreCollector records signals weighted by the sub-score they belong to
type scoreCollector struct {
	weight  float64
	signals []domain.Signal
}

func (c *scoreCollector) pro(strength float64, format string, args ...interface{}) {
	c.signals = append(c.signals, domain.Signal{
		Kind:   domain.SignalPro,
		Text:   fmt.Sprintf(format, args...),
		Weight: c.weight * strength,
	})
}

func (c *scoreCollector) con(strength float64, format string, args ...interface{}) {
	c.signals = append(c.signals, domain.Signal{
		Kind:   domain.SignalCon,
		Text:   fmt.Sprintf(format, args...),
		Weight: c.weight * strength,
	})
}

func categoryFit(sc *scoreCollector, profile *domain.Profile, product *domain.Product, rules domain.CategoryRules) float64 {
	var parts []float64

	switch {
	case product.Category == "":
		parts = append(parts, neutralScore)
	case product.Category == profile.Category:
		parts = append(parts, 1)
	default:
		parts = append(parts, 0)
		sc.con(1, "Made for %s, not %s", plural(product.Category), plural(profile.Category))
	}

	stage := rules.LifeStageFor(profile.AgeYears)
	parts = append(parts, lifeStageFit(sc, stage, product.Attributes.LifeStage, rules.UniversalStages))

	if profile.Category == domain.CategoryDog {
		if size := profile.EffectiveSizeCategory(); size != "" && len(product.Attributes.SizeSuitability) > 0 {
			parts = append(parts, sizeFit(sc, size, product.Attributes.SizeSuitability))
		}
	}

	return mean(parts)
}

func lifeStageFit(sc *scoreCollector, stage string, productStages, universal []string) float64 {
	if stage == "" || len(productStages) == 0 {
		return neutralScore
	}
	for _, ps := range productStages {
		ps = normalizeLabel(ps)
		for _, u := range universal {
			if ps == normalizeLabel(u) {
				sc.pro(1, "Suitable for all life stages")
				return 1
			}
		}
		if ps == stage {
			sc.pro(1, "Formulated for the %s life stage", stage)
			return 1
		}
	}
	sc.con(1-lifeStageMismatch, "Formulated for %s, not the %s life stage",
		strings.ReplaceAll(strings.Join(productStages, "/"), "_", " "), stage)
	return lifeStageMismatch
}

func sizeFit(sc *scoreCollector, size string, suitability []string) float64 {
	for _, s := range suitability {
		s = normalizeLabel(s)
		if s == size || s == "all_sizes" || s == "all" {
			sc.pro(0.5, "Suitable for %s breeds", size)
			return 1
		}
	}
	sc.con(1-sizeMismatch, "Sized for %s breeds rather than %s", strings.Join(suitability, "/"), size)
	return sizeMismatch
}

type namedBand struct {
	nutrient string
	band     domain.Band
	context  string
}

func nutritionFit(sc *scoreCollector, profile *domain.Profile, product *domain.Product, rules domain.CategoryRules) float64 {
	stage := rules.LifeStageFor(profile.AgeYears)

	var bands []namedBand
	for _, key := range sortedKeys(rules.NutritionBands[stage]) {
		bands = append(bands, namedBand{nutrient: key, band: rules.NutritionBands[stage][key], context: "the " + stage + " life stage"})
	}
	for _, condition := range profile.NormalizedConditions() {
		cb := rules.ConditionBands[rules.CanonicalCondition(normalizeLabel(condition))]
		for _, key := range sortedKeys(cb) {
			bands = append(bands, namedBand{nutrient: key, band: cb[key], context: strings.ReplaceAll(condition, "_", " ")})
		}
	}
	if len(bands) == 0 {
		return neutralScore
	}

	parts := make([]float64, 0, len(bands))
	for _, nb := range bands {
		v, ok := product.Attributes.Nutrient(nb.nutrient)
		if !ok {
			parts = append(parts, neutralScore)
			continue
		}
		score := bandScore(v, nb.band)
		parts = append(parts, score)

		label := fmt.Sprintf("%s %s%s", humanize(nb.nutrient), formatAmount(v), unitFor(nb.nutrient))
		switch {
		case score == 1:
			sc.pro(0.75, "%s suits %s", label, nb.context)
		case nb.band.Min != nil && v < *nb.band.Min:
			sc.con(1-score, "%s is below the recommended level for %s", label, nb.context)
		default:
			sc.con(1-score, "%s is above the recommended level for %s", label, nb.context)
		}
	}
	return mean(parts)
}

// bandScore is 1 inside the band and decays linearly to 0 at 50% relative deviation
func bandScore(v float64, band domain.Band) float64 {
	var deviation float64
	switch {
	case band.Min != nil && v < *band.Min:
		if *band.Min <= 0 {
			return 0
		}
		deviation = (*band.Min - v) / *band.Min
	case band.Max != nil && v > *band.Max:
		if *band.Max <= 0 {
			return 0
		}
		deviation = (v - *band.Max) / *band.Max
	default:
		return 1
	}
	return math.Max(0, 1-deviation/bandDecayDeviation)
}

func preferenceFit(sc *scoreCollector, profile *domain.Profile, product *domain.Product, rules domain.CategoryRules) float64 {
	prefs := profile.Preferences
	attrs := &product.Attributes
	var parts []float64

	if want, ok := prefs.Bool(domain.PrefGrainFree); ok && want {
		switch {
		case attrs.GrainFree == nil:
			parts = append(parts, neutralScore)
		case *attrs.GrainFree:
			parts = append(parts, 1)
			sc.pro(1, "Grain-free, as preferred")
		default:
			parts = append(parts, 0)
			sc.con(1, "Contains grain despite a grain-free preference")
		}
	}

	if pr := prefs.String(domain.PrefPriceRange); pr != "" {
		if band, ok := rules.PriceRanges[normalizeLabel(pr)]; ok {
			switch {
			case product.Price <= 0:
				parts = append(parts, neutralScore)
			case bandScore(product.Price, band) == 1:
				parts = append(parts, 1)
				sc.pro(1, "Fits the %s price range at $%.2f", pr, product.Price)
			default:
				parts = append(parts, 0)
				sc.con(1, "Priced at $%.2f, outside the %s range", product.Price, pr)
			}
		}
	}

	for _, key := range []string{domain.PrefDietaryPreference, domain.PrefFeedingType} {
		label := prefs.String(key)
		if label == "" || label == "none" || label == "no_preference" {
			continue
		}
		parts = append(parts, labelFit(sc, product, label))
	}

	if want, ok := prefs.Bool(domain.PrefHypoallergenic); ok && want {
		switch {
		case len(attrs.Features) == 0:
			parts = append(parts, neutralScore)
		case hasLabel(product, "hypoallergenic") || hasLabel(product, "limited ingredient"):
			parts = append(parts, 1)
			sc.pro(1, "Hypoallergenic formula")
		default:
			parts = append(parts, 0)
			sc.con(1, "Not labeled hypoallergenic")
		}
	}

	if len(parts) == 0 {
		return 1
	}
	return mean(parts)
}

func labelFit(sc *scoreCollector, product *domain.Product, label string) float64 {
	pretty := strings.ReplaceAll(label, "_", " ")
	if hasLabel(product, label) {
		sc.pro(1, "Matches the %s preference", pretty)
		return 1
	}
	if len(product.Attributes.Features) == 0 && product.ProductCategory == "" {
		return neutralScore
	}
	sc.con(1, "Not labeled %s", pretty)
	return 0
}

// hasLabel looks for label among features, the product sub-category and the product name
func hasLabel(product *domain.Product, label string) bool {
	want := normalizeLabel(label)
	if want == "" {
		return false
	}
	for _, f := range product.Attributes.Features {
		if normalizeLabel(f) == want || containsWord(f, label) {
			return true
		}
	}
	if normalizeLabel(product.ProductCategory) == want {
		return true
	}
	return containsWord(product.Name, label)
}

func quality(sc *scoreCollector, product *domain.Product) float64 {
	r := product.Rating
	if r <= 0 {
		sc.con(0.25, "No customer reviews yet")
		return neutralScore
	}
	r = math.Min(r, 5)
	switch {
	case r >= highRating:
		sc.pro(r/5, "Highly rated by customers (%.1f/5)", r)
	case r < lowRating:
		sc.con(1-r/5, "Below-average customer rating (%.1f/5)", r)
	}
	return r / 5
}

// rankLess orders results by score desc, rating desc, price asc, id asc
func rankLess(a, b *domain.RecommendationResult) bool {
	if a.MatchScore != b.MatchScore {
		return a.MatchScore > b.MatchScore
	}
	if a.Product.Rating != b.Product.Rating {
		return a.Product.Rating > b.Product.Rating
	}
	if a.Product.Price != b.Product.Price {
		return a.Product.Price < b.Product.Price
	}
	return a.Product.ID < b.Product.ID
}

func sortResults(results []domain.RecommendationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return rankLess(&results[i], &results[j])
	})
}

func plural(c domain.ProfileCategory) string {
	switch c {
	case domain.CategoryBaby:
		return "babies"
	case domain.CategoryHuman:
		return "people"
	case "":
		return "other categories"
	}
	return string(c) + "s"
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return neutralScore
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
