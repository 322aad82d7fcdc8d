package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personashop/backend/internal/domain"
	"github.com/personashop/backend/internal/infrastructure/rules"
)

func defaultRules(t *testing.T) *domain.Rulebook {
	t.Helper()
	rb, err := rules.Default()
	require.NoError(t, err)
	return rb
}

func TestSafetyFilterAllergies(t *testing.T) {
	filter := NewSafetyFilter(defaultRules(t), SafetyFilterConfig{})

	tests := []struct {
		name      string
		allergies []string
		attrs     map[string]interface{}
		wantSafe  bool
		wantHit   string
	}{
		{
			name:      "primary protein",
			allergies: []string{"chicken"},
			attrs:     map[string]interface{}{"primary_protein": "Chicken"},
			wantHit:   "Contains chicken (allergy: chicken)",
		},
		{
			name:      "ingredient substring",
			allergies: []string{"chicken"},
			attrs: map[string]interface{}{
				"ingredients": map[string]interface{}{"full_list": []interface{}{"Deboned Lamb", "Chicken Meal"}},
			},
			wantHit: "Contains chicken meal (allergy: chicken)",
		},
		{
			name:      "allergy token is matched case insensitively",
			allergies: []string{"  SALMON "},
			attrs:     map[string]interface{}{"ingredients": []interface{}{"salmon oil"}},
			wantHit:   "Contains salmon oil (allergy: salmon)",
		},
		{
			name:      "alias from rulebook",
			allergies: []string{"dairy"},
			attrs:     map[string]interface{}{"ingredients": []interface{}{"dried whey"}},
			wantHit:   "Contains dried whey (allergy: dairy)",
		},
		{
			name:      "allergen tag",
			allergies: []string{"egg"},
			attrs: map[string]interface{}{
				"ingredients": map[string]interface{}{"allergens": []interface{}{"eggs"}},
			},
			wantHit: "Contains eggs (allergy: egg)",
		},
		{
			name:      "no allergies",
			allergies: nil,
			attrs:     map[string]interface{}{"primary_protein": "chicken"},
			wantSafe:  true,
		},
		{
			name:      "missing attributes are not a match",
			allergies: []string{"chicken"},
			attrs:     nil,
			wantSafe:  true,
		},
		{
			name:      "malformed attributes are ignored",
			allergies: []string{"chicken"},
			attrs:     map[string]interface{}{"ingredients": 42, "primary_protein": []interface{}{1, 2}},
			wantSafe:  true,
		},
		{
			name:      "unrelated protein",
			allergies: []string{"chicken"},
			attrs:     map[string]interface{}{"primary_protein": "beef"},
			wantSafe:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := dogProfile("p1", tt.allergies...)
			product := newProduct("x", domain.CategoryDog, 4, 20, tt.attrs)

			reasons := filter.Check(&profile, &product)
			if tt.wantSafe {
				assert.Empty(t, reasons)
				return
			}
			require.NotEmpty(t, reasons)
			assert.Equal(t, tt.wantHit, reasons[0])
		})
	}
}

func TestSafetyFilterHealthConditions(t *testing.T) {
	filter := NewSafetyFilter(defaultRules(t), SafetyFilterConfig{})

	tests := []struct {
		name       string
		category   domain.ProfileCategory
		conditions []string
		attrs      map[string]interface{}
		wantReason string
	}{
		{
			name:       "kidney health with high phosphorus",
			category:   domain.CategoryCat,
			conditions: []string{"kidney_health"},
			attrs:      map[string]interface{}{"nutrition": map[string]interface{}{"phosphorus_pct": 1.2}},
			wantReason: "Phosphorus level too high for kidney health",
		},
		{
			name:       "kidney health within bound",
			category:   domain.CategoryCat,
			conditions: []string{"kidney_health"},
			attrs:      map[string]interface{}{"nutrition": map[string]interface{}{"phosphorus_pct": 0.7}},
		},
		{
			name:       "kidney resolves to kidney health",
			category:   domain.CategoryCat,
			conditions: []string{"Kidney"},
			attrs:      map[string]interface{}{"phosphorus_pct": 1.6},
			wantReason: "Phosphorus level too high for kidney health",
		},
		{
			name:       "kidney disease on a dog",
			category:   domain.CategoryDog,
			conditions: []string{"kidney disease"},
			attrs:      map[string]interface{}{"nutrition": map[string]interface{}{"phosphorus_pct": 1.4}},
			wantReason: "Phosphorus level too high for kidney health",
		},
		{
			name:       "nutrient missing is not a disqualifier",
			category:   domain.CategoryCat,
			conditions: []string{"kidney_health"},
			attrs:      map[string]interface{}{"nutrition": map[string]interface{}{"protein_pct": 30}},
		},
		{
			name:       "diabetes with high sugar tag",
			category:   domain.CategoryHuman,
			conditions: []string{"Diabetes"},
			attrs:      map[string]interface{}{"features": []interface{}{"High Sugar"}},
			wantReason: "Sugar content unsuitable for diabetes",
		},
		{
			name:       "diabetes with numeric sugar",
			category:   domain.CategoryHuman,
			conditions: []string{"diabetes"},
			attrs:      map[string]interface{}{"sugar_g": "14"},
			wantReason: "Sugar content unsuitable for diabetes",
		},
		{
			name:       "celiac with wheat ingredient",
			category:   domain.CategoryHuman,
			conditions: []string{"celiac"},
			attrs:      map[string]interface{}{"ingredients": []interface{}{"whole wheat flour"}},
			wantReason: "Contains gluten, unsafe for celiac disease",
		},
		{
			name:       "gluten-free feature does not trigger celiac",
			category:   domain.CategoryHuman,
			conditions: []string{"celiac"},
			attrs:      map[string]interface{}{"features": []interface{}{"Gluten-Free"}},
		},
		{
			name:       "unknown condition is ignored",
			category:   domain.CategoryDog,
			conditions: []string{"moon_allergy"},
			attrs:      map[string]interface{}{"nutrition": map[string]interface{}{"fat_pct": 40}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := domain.Profile{ID: "p", Category: tt.category, AgeYears: 5, HealthConditions: tt.conditions}
			product := newProduct("x", tt.category, 4, 20, tt.attrs)

			reasons := filter.Check(&profile, &product)
			if tt.wantReason == "" {
				assert.Empty(t, reasons)
				return
			}
			assert.Contains(t, reasons, tt.wantReason)
		})
	}
}

func TestSafetyFilterFuzzyMatching(t *testing.T) {
	profile := dogProfile("p", "chicken")
	product := newProduct("x", domain.CategoryDog, 4, 20, map[string]interface{}{
		"ingredients": []interface{}{"chiken meal"},
	})

	strict := NewSafetyFilter(defaultRules(t), SafetyFilterConfig{})
	assert.Empty(t, strict.Check(&profile, &product))

	fuzzy := NewSafetyFilter(defaultRules(t), SafetyFilterConfig{EnableFuzzyMatching: true})
	assert.Equal(t, []string{"Contains chiken meal (allergy: chicken)"}, fuzzy.Check(&profile, &product))
}

func TestSafetyFilterFilter(t *testing.T) {
	filter := NewSafetyFilter(defaultRules(t), SafetyFilterConfig{})
	profile := dogProfile("p", "chicken", "dairy")

	products := []domain.Product{
		newProduct("a", domain.CategoryDog, 4, 20, map[string]interface{}{"primary_protein": "chicken", "ingredients": []interface{}{"cheese"}}),
		newProduct("b", domain.CategoryDog, 4, 20, map[string]interface{}{"primary_protein": "lamb"}),
		newProduct("c", domain.CategoryDog, 4, 20, map[string]interface{}{"primary_protein": "salmon"}),
	}

	safe, excluded := filter.Filter(&profile, products)

	require.Len(t, safe, 2)
	assert.Equal(t, "b", safe[0].ID)
	assert.Equal(t, "c", safe[1].ID)
	require.Len(t, excluded, 1)
	assert.Equal(t, "a", excluded[0].ProductID)
	assert.Equal(t, "Contains chicken (allergy: chicken); Contains cheese (allergy: dairy)", excluded[0].Reason)
}

func TestSafetyFilterWithoutRules(t *testing.T) {
	filter := NewSafetyFilter(nil, SafetyFilterConfig{})
	profile := domain.Profile{ID: "p", Category: domain.CategoryBaby, Allergies: []string{"soy"}, HealthConditions: []string{"eczema"}}
	product := newProduct("x", domain.CategoryBaby, 4, 20, map[string]interface{}{"ingredients": []interface{}{"soy lecithin"}})

	assert.Equal(t, []string{"Contains soy lecithin (allergy: soy)"}, filter.Check(&profile, &product))
}
