package domain

import (
	"strings"
	"time"
)

// ProfileCategory is the tagged variant every profile and product belongs to
type ProfileCategory string

const (
	CategoryDog   ProfileCategory = "dog"
	CategoryCat   ProfileCategory = "cat"
	CategoryBaby  ProfileCategory = "baby"
	CategoryHuman ProfileCategory = "human"
)

// Valid reports whether c is one of the known profile categories
func (c ProfileCategory) Valid() bool {
	switch c {
	case CategoryDog, CategoryCat, CategoryBaby, CategoryHuman:
		return true
	}
	return false
}

// Recognized preference keys
const (
	PrefGrainFree         = "grain_free"
	PrefPriceRange        = "price_range"
	PrefDietaryPreference = "dietary_preference"
	PrefFeedingType       = "feeding_type"
	PrefHypoallergenic    = "hypoallergenic"
)

// Preferences is the free-form preference record attached to a profile
type Preferences map[string]interface{}

// Bool returns a boolean preference and whether it was set
func (p Preferences) Bool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

// String returns a lowercase string preference, or "" if absent
func (p Preferences) String(key string) string {
	v, ok := p[key].(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(v))
}

// Profile represents a pet, baby or adult the catalog is personalized for
type Profile struct {
	ID               string          `json:"id" validate:"required"`
	UserID           string          `json:"user_id,omitempty"`
	Name             string          `json:"name" validate:"max=100"`
	Category         ProfileCategory `json:"profile_category" validate:"required,oneof=dog cat baby human"`
	AgeYears         float64         `json:"age_years" validate:"gte=0,lte=120"`
	WeightLbs        *float64        `json:"weight_lbs,omitempty" validate:"omitempty,gte=0,lte=1000"`
	SizeCategory     string          `json:"size_category,omitempty"`
	Allergies        []string        `json:"allergies"`
	HealthConditions []string        `json:"health_conditions"`
	Preferences      Preferences     `json:"preferences"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// DisplayName returns the profile name, falling back to the category
func (p *Profile) DisplayName() string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	return "your " + string(p.Category)
}

// EffectiveSizeCategory returns the stored size category, or derives it from weight for dogs
func (p *Profile) EffectiveSizeCategory() string {
	if p.SizeCategory != "" {
		return strings.ToLower(p.SizeCategory)
	}
	if p.Category != CategoryDog || p.WeightLbs == nil {
		return ""
	}
	return SizeCategoryForWeight(*p.WeightLbs)
}

// SizeCategoryForWeight maps a dog's weight in pounds to small/medium/large
func SizeCategoryForWeight(weightLbs float64) string {
	switch {
	case weightLbs <= 20:
		return "small"
	case weightLbs <= 50:
		return "medium"
	default:
		return "large"
	}
}

// NormalizedAllergies returns the allergy tokens lowercased, trimmed and deduplicated
func (p *Profile) NormalizedAllergies() []string {
	return normalizeTokens(p.Allergies)
}

// NormalizedConditions returns the health condition tokens lowercased, trimmed and deduplicated
func (p *Profile) NormalizedConditions() []string {
	return normalizeTokens(p.HealthConditions)
}

func normalizeTokens(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
