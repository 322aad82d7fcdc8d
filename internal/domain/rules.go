package domain

// ScoreWeights are the relative weights of the four sub-scores
type ScoreWeights struct {
	CategoryFit   float64 `yaml:"category_fit" json:"category_fit"`
	NutritionFit  float64 `yaml:"nutrition_fit" json:"nutrition_fit"`
	PreferenceFit float64 `yaml:"preference_fit" json:"preference_fit"`
	Quality       float64 `yaml:"quality" json:"quality"`
}

// Sum returns the total weight
func (w ScoreWeights) Sum() float64 {
	return w.CategoryFit + w.NutritionFit + w.PreferenceFit + w.Quality
}

// IsZero reports whether no weight is set
func (w ScoreWeights) IsZero() bool {
	return w.Sum() == 0
}

// DefaultWeights is used when a category has no weight table
var DefaultWeights = ScoreWeights{CategoryFit: 0.3, NutritionFit: 0.3, PreferenceFit: 0.2, Quality: 0.2}

// Band is an inclusive numeric range; a nil bound is open
type Band struct {
	Min *float64 `yaml:"min" json:"min,omitempty"`
	Max *float64 `yaml:"max" json:"max,omitempty"`
}

// LifeStage maps an age range in years [MinAge, MaxAge) to a stage name
type LifeStage struct {
	Name   string   `yaml:"name"`
	MinAge float64  `yaml:"min_age"`
	MaxAge *float64 `yaml:"max_age"`
}

// Disqualifier excludes products for a health condition. A nutrient bound only
// applies when the product reports that nutrient.
type Disqualifier struct {
	Nutrient string   `yaml:"nutrient"`
	Above    *float64 `yaml:"above"`
	Below    *float64 `yaml:"below"`
	Tags     []string `yaml:"tags"`
	Reason   string   `yaml:"reason"`
}

// CategoryRules is the per-variant rule table
type CategoryRules struct {
	LifeStages             []LifeStage                `yaml:"life_stages"`
	UniversalStages        []string                   `yaml:"universal_stages"`
	Weights                ScoreWeights               `yaml:"weights"`
	HealthConditionWeights ScoreWeights               `yaml:"health_condition_weights"`
	BudgetWeights          ScoreWeights               `yaml:"budget_weights"`
	NutritionBands         map[string]map[string]Band `yaml:"nutrition_bands"`
	ConditionBands         map[string]map[string]Band `yaml:"condition_bands"`
	Disqualifiers          map[string][]Disqualifier  `yaml:"disqualifiers"`
	AllergenAliases        map[string][]string        `yaml:"allergen_aliases"`
	ConditionAliases       map[string]string          `yaml:"condition_aliases"`
	PriceRanges            map[string]Band            `yaml:"price_ranges"`
}

// CanonicalCondition resolves a normalized condition label through the alias table
func (c *CategoryRules) CanonicalCondition(label string) string {
	if canonical, ok := c.ConditionAliases[label]; ok {
		return canonical
	}
	return label
}

// Rulebook holds the rule tables for every profile category
type Rulebook struct {
	Categories map[ProfileCategory]CategoryRules `yaml:"categories"`
}

// For returns the rules of a category; unknown categories get an empty table
func (r *Rulebook) For(c ProfileCategory) CategoryRules {
	if r == nil {
		return CategoryRules{}
	}
	return r.Categories[c]
}

// LifeStageFor returns the stage name for an age, or "" if none matches
func (c *CategoryRules) LifeStageFor(ageYears float64) string {
	for _, s := range c.LifeStages {
		if ageYears < s.MinAge {
			continue
		}
		if s.MaxAge != nil && ageYears >= *s.MaxAge {
			continue
		}
		return s.Name
	}
	return ""
}
