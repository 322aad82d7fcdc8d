package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Product is a catalog entry. Read-only to the recommendation engine.
type Product struct {
	ID              string            `json:"id"`
	Brand           string            `json:"brand"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Price           float64           `json:"price"`
	PriceUnit       string            `json:"price_unit"`
	Rating          float64           `json:"rating"` // 0-5, 0 means no reviews
	ImageURL        string            `json:"image_url,omitempty"`
	Category        ProfileCategory   `json:"pet_type"`
	ProductCategory string            `json:"product_category,omitempty"`
	Attributes      ProductAttributes `json:"attributes"`
	IsActive        bool              `json:"is_active"`
}

// DisplayName returns "Brand Name"
func (p *Product) DisplayName() string {
	if p.Brand == "" {
		return p.Name
	}
	return p.Brand + " " + p.Name
}

// ProductAttributes holds the structured view of a product's free-form attribute document.
// Unknown keys are kept in Extra and re-emitted on marshal.
type ProductAttributes struct {
	PrimaryProtein  string
	GrainFree       *bool
	LifeStage       []string
	SizeSuitability []string
	Features        []string
	Ingredients     []string
	AllergenTags    []string
	Nutrition       map[string]float64
	AIKeyFeatures   []string
	Extra           map[string]interface{}
}

// Nutrient returns a nutrition fact and whether it is present
func (a *ProductAttributes) Nutrient(key string) (float64, bool) {
	v, ok := a.Nutrition[key]
	return v, ok
}

// UnmarshalJSON decodes the attribute document leniently: values of an
// unexpected shape are skipped, never reported as errors.
func (a *ProductAttributes) UnmarshalJSON(data []byte) error {
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		*a = ProductAttributes{}
		return nil
	}
	*a = ParseAttributes(raw)
	return nil
}

// ParseAttributes builds ProductAttributes from a decoded JSON object
func ParseAttributes(raw map[string]interface{}) ProductAttributes {
	attrs := ProductAttributes{
		Extra:     raw,
		Nutrition: map[string]float64{},
	}
	if raw == nil {
		return attrs
	}

	attrs.PrimaryProtein = lowerString(raw["primary_protein"])
	if b, ok := raw["grain_free"].(bool); ok {
		attrs.GrainFree = &b
	}
	attrs.LifeStage = stringList(raw["life_stage"])
	attrs.SizeSuitability = stringList(raw["size_suitability"])
	attrs.Features = textList(raw["features"])
	attrs.AIKeyFeatures = textList(raw["ai_key_features"])
	attrs.AllergenTags = stringList(raw["allergens"])

	if ing, ok := raw["ingredients"].(map[string]interface{}); ok {
		attrs.Ingredients = stringList(ing["full_list"])
		attrs.AllergenTags = append(attrs.AllergenTags, stringList(ing["allergens"])...)
		attrs.AllergenTags = append(attrs.AllergenTags, stringList(ing["contains"])...)
	} else {
		attrs.Ingredients = stringList(raw["ingredients"])
	}
	attrs.Ingredients = append(attrs.Ingredients, stringList(raw["key_ingredients"])...)

	for k, v := range raw {
		if isNutrientKey(k) {
			if f, ok := toFloat(v); ok {
				attrs.Nutrition[k] = f
			}
		}
	}
	if nutrition, ok := raw["nutrition"].(map[string]interface{}); ok {
		for k, v := range nutrition {
			if f, ok := toFloat(v); ok {
				attrs.Nutrition[strings.ToLower(k)] = f
			}
		}
	}

	return attrs
}

// MarshalJSON emits the original document unchanged apart from ai_key_features.
// The typed fields are a case-folded view for matching, so they are only
// written out for attributes built without a source document.
func (a ProductAttributes) MarshalJSON() ([]byte, error) {
	if a.Extra != nil {
		out := make(map[string]interface{}, len(a.Extra)+1)
		for k, v := range a.Extra {
			out[k] = v
		}
		if len(a.AIKeyFeatures) > 0 {
			out["ai_key_features"] = a.AIKeyFeatures
		}
		return json.Marshal(out)
	}

	out := make(map[string]interface{}, 8)
	if a.PrimaryProtein != "" {
		out["primary_protein"] = a.PrimaryProtein
	}
	if a.GrainFree != nil {
		out["grain_free"] = *a.GrainFree
	}
	if len(a.LifeStage) > 0 {
		out["life_stage"] = a.LifeStage
	}
	if len(a.SizeSuitability) > 0 {
		out["size_suitability"] = a.SizeSuitability
	}
	if len(a.Features) > 0 {
		out["features"] = a.Features
	}
	if len(a.AIKeyFeatures) > 0 {
		out["ai_key_features"] = a.AIKeyFeatures
	}
	if len(a.Ingredients) > 0 || len(a.AllergenTags) > 0 {
		out["ingredients"] = map[string]interface{}{
			"full_list": a.Ingredients,
			"allergens": a.AllergenTags,
		}
	}
	if len(a.Nutrition) > 0 {
		out["nutrition"] = a.Nutrition
	}
	return json.Marshal(out)
}

// AllergenTokens returns the tokens consulted for allergy matching
func (a *ProductAttributes) AllergenTokens() []string {
	tokens := make([]string, 0, len(a.Ingredients)+len(a.AllergenTags)+1)
	if a.PrimaryProtein != "" {
		tokens = append(tokens, a.PrimaryProtein)
	}
	tokens = append(tokens, a.Ingredients...)
	tokens = append(tokens, a.AllergenTags...)
	return tokens
}

func isNutrientKey(k string) bool {
	return strings.HasSuffix(k, "_pct") || strings.HasSuffix(k, "_mg") || strings.HasSuffix(k, "_g") ||
		strings.HasPrefix(k, "calories")
}

func lowerString(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// stringList accepts a JSON string or list of strings, anything else yields nil
func stringList(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if s := strings.ToLower(strings.TrimSpace(t)); s != "" {
			return []string{s}
		}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := lowerString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.ToLower(strings.TrimSpace(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// textList is stringList without case folding, for display text
func textList(v interface{}) []string {
	var items []string
	switch t := v.(type) {
	case string:
		items = []string{t}
	case []string:
		items = t
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%"))
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
