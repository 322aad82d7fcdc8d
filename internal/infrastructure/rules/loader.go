package rules

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/personashop/backend/internal/domain"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Default returns the rulebook embedded in the binary
func Default() (*domain.Rulebook, error) {
	return Parse(defaultRules)
}

// Load reads a rulebook from path, or returns the embedded default when path is empty
func Load(path string) (*domain.Rulebook, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and normalizes a YAML rulebook
func Parse(data []byte) (*domain.Rulebook, error) {
	var rb domain.Rulebook
	if err := yaml.Unmarshal(data, &rb); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(rb.Categories) == 0 {
		return nil, fmt.Errorf("rules define no categories")
	}

	for cat, rules := range rb.Categories {
		if !cat.Valid() {
			return nil, fmt.Errorf("unknown profile category in rules: %q", cat)
		}
		for name, w := range map[string]domain.ScoreWeights{
			"weights":                  rules.Weights,
			"health_condition_weights": rules.HealthConditionWeights,
			"budget_weights":           rules.BudgetWeights,
		} {
			if err := validateWeights(w); err != nil {
				return nil, fmt.Errorf("category %s: %s: %w", cat, name, err)
			}
		}
		rb.Categories[cat] = normalize(rules)
	}

	return &rb, nil
}

func validateWeights(w domain.ScoreWeights) error {
	for _, v := range []float64{w.CategoryFit, w.NutritionFit, w.PreferenceFit, w.Quality} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weights must be finite")
		}
		if v < 0 {
			return fmt.Errorf("weights must not be negative")
		}
	}
	return nil
}

// normalize lowercases every lookup key so profile tokens can be matched directly
func normalize(r domain.CategoryRules) domain.CategoryRules {
	r.Disqualifiers = lowerKeys(r.Disqualifiers)
	r.ConditionBands = lowerKeys(r.ConditionBands)
	r.NutritionBands = lowerKeys(r.NutritionBands)
	r.PriceRanges = lowerKeys(r.PriceRanges)

	aliases := make(map[string][]string, len(r.AllergenAliases))
	for k, v := range r.AllergenAliases {
		aliases[strings.ToLower(k)] = lowerAll(v)
	}
	r.AllergenAliases = aliases

	conditions := make(map[string]string, len(r.ConditionAliases))
	for alias, canonical := range r.ConditionAliases {
		conditions[strings.ToLower(alias)] = strings.ToLower(strings.TrimSpace(canonical))
	}
	r.ConditionAliases = conditions

	for cond, dqs := range r.Disqualifiers {
		for i := range dqs {
			dqs[i].Nutrient = strings.ToLower(dqs[i].Nutrient)
			dqs[i].Tags = lowerAll(dqs[i].Tags)
		}
		r.Disqualifiers[cond] = dqs
	}
	r.UniversalStages = lowerAll(r.UniversalStages)
	for i := range r.LifeStages {
		r.LifeStages[i].Name = strings.ToLower(r.LifeStages[i].Name)
	}
	return r
}

func lowerKeys[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
