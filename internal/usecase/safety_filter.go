package usecase

import (
	"fmt"
	"strings"

	"github.com/personashop/backend/internal/domain"
)

// SafetyFilterConfig holds configuration for the safety filter
type SafetyFilterConfig struct {
	EnableFuzzyMatching bool
	FuzzyEditDistance   int
}

// SafetyFilter excludes products that conflict with a profile's allergies or
// health conditions. Missing product data never causes an exclusion.
type SafetyFilter struct {
	rules             *domain.Rulebook
	enableFuzzy       bool
	fuzzyEditDistance int
}

// NewSafetyFilter creates a safety filter over the given rulebook
func NewSafetyFilter(rules *domain.Rulebook, config SafetyFilterConfig) *SafetyFilter {
	dist := config.FuzzyEditDistance
	if dist <= 0 {
		dist = 1
	}
	return &SafetyFilter{
		rules:             rules,
		enableFuzzy:       config.EnableFuzzyMatching,
		fuzzyEditDistance: dist,
	}
}

// Filter splits products into the safe ones and exclusions with reasons.
// The relative order of safe products is preserved.
func (f *SafetyFilter) Filter(profile *domain.Profile, products []domain.Product) ([]domain.Product, []domain.Exclusion) {
	safe := make([]domain.Product, 0, len(products))
	excluded := make([]domain.Exclusion, 0)

	for _, p := range products {
		reasons := f.Check(profile, &p)
		if len(reasons) == 0 {
			safe = append(safe, p)
			continue
		}
		excluded = append(excluded, domain.Exclusion{
			ProductID: p.ID,
			Reason:    strings.Join(reasons, "; "),
		})
	}

	return safe, excluded
}

// Check returns every reason product is unsafe for profile; nil means safe
func (f *SafetyFilter) Check(profile *domain.Profile, product *domain.Product) []string {
	rules := f.rules.For(profile.Category)

	var reasons []string
	reasons = append(reasons, f.allergyConflicts(profile, product, rules)...)
	reasons = append(reasons, f.conditionConflicts(profile, product, rules)...)
	return dedupe(reasons)
}

func (f *SafetyFilter) allergyConflicts(profile *domain.Profile, product *domain.Product, rules domain.CategoryRules) []string {
	allergies := profile.NormalizedAllergies()
	if len(allergies) == 0 {
		return nil
	}
	tokens := product.Attributes.AllergenTokens()
	if len(tokens) == 0 {
		return nil
	}

	var reasons []string
	for _, allergy := range allergies {
		aliases, ok := rules.AllergenAliases[allergy]
		if !ok {
			aliases = rules.AllergenAliases[normalizeLabel(allergy)]
		}
		terms := append([]string{allergy}, aliases...)
		if hit, ok := f.firstAllergenHit(tokens, terms); ok {
			reasons = append(reasons, fmt.Sprintf("Contains %s (allergy: %s)", hit, allergy))
		}
	}
	return reasons
}

// firstAllergenHit returns the first product token matching any term.
// Matching is substring tolerant in both directions; the reverse direction
// requires a product token of at least 4 characters.
func (f *SafetyFilter) firstAllergenHit(tokens, terms []string) (string, bool) {
	for _, token := range tokens {
		for _, term := range terms {
			if term == "" {
				continue
			}
			if strings.Contains(token, term) || (len(token) >= 4 && strings.Contains(term, token)) {
				return token, true
			}
			if f.enableFuzzy && f.fuzzyWordMatch(token, term) {
				return token, true
			}
		}
	}
	return "", false
}

func (f *SafetyFilter) fuzzyWordMatch(token, term string) bool {
	for _, w := range words(token) {
		if fuzzyTokenMatch(w, term, f.fuzzyEditDistance) {
			return true
		}
	}
	return false
}

func (f *SafetyFilter) conditionConflicts(profile *domain.Profile, product *domain.Product, rules domain.CategoryRules) []string {
	var reasons []string
	for _, condition := range profile.NormalizedConditions() {
		// Unknown conditions have no disqualifiers
		for _, dq := range rules.Disqualifiers[rules.CanonicalCondition(normalizeLabel(condition))] {
			if disqualifies(dq, product) {
				reasons = append(reasons, disqualifierReason(dq, condition))
			}
		}
	}
	return reasons
}

func disqualifies(dq domain.Disqualifier, product *domain.Product) bool {
	if dq.Nutrient != "" {
		if v, ok := product.Attributes.Nutrient(dq.Nutrient); ok {
			if dq.Above != nil && v > *dq.Above {
				return true
			}
			if dq.Below != nil && v < *dq.Below {
				return true
			}
		}
	}
	return len(dq.Tags) > 0 && hasTag(product, dq.Tags)
}

// hasTag matches tags exactly against labels (features, allergen tags, protein)
// and as whole words inside ingredient entries
func hasTag(product *domain.Product, tags []string) bool {
	attrs := &product.Attributes
	labels := make([]string, 0, len(attrs.Features)+len(attrs.AllergenTags)+1)
	labels = append(labels, attrs.Features...)
	labels = append(labels, attrs.AllergenTags...)
	if attrs.PrimaryProtein != "" {
		labels = append(labels, attrs.PrimaryProtein)
	}

	for _, tag := range tags {
		want := normalizeLabel(tag)
		for _, l := range labels {
			if normalizeLabel(l) == want {
				return true
			}
		}
		for _, ing := range attrs.Ingredients {
			if containsWord(ing, tag) {
				return true
			}
		}
	}
	return false
}

func disqualifierReason(dq domain.Disqualifier, condition string) string {
	if dq.Reason != "" {
		return dq.Reason
	}
	return fmt.Sprintf("Not suitable for %s", strings.ReplaceAll(condition, "_", " "))
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
