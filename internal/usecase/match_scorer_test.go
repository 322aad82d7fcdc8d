package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personashop/backend/internal/domain"
)

func testRulebook() *domain.Rulebook {
	quarter := domain.ScoreWeights{CategoryFit: 0.25, NutritionFit: 0.25, PreferenceFit: 0.25, Quality: 0.25}
	return &domain.Rulebook{Categories: map[domain.ProfileCategory]domain.CategoryRules{
		domain.CategoryDog: {
			LifeStages: []domain.LifeStage{
				{Name: "puppy", MinAge: 0, MaxAge: ptr(1.0)},
				{Name: "adult", MinAge: 1, MaxAge: ptr(7.0)},
				{Name: "senior", MinAge: 7},
			},
			UniversalStages:        []string{"all_life_stages"},
			Weights:                quarter,
			HealthConditionWeights: domain.ScoreWeights{NutritionFit: 1},
			BudgetWeights:          domain.ScoreWeights{PreferenceFit: 1},
			NutritionBands: map[string]map[string]domain.Band{
				"adult": {"protein_pct": {Min: ptr(18.0), Max: ptr(30.0)}},
			},
			PriceRanges: map[string]domain.Band{
				"budget":  {Max: ptr(30.0)},
				"premium": {Min: ptr(50.0)},
			},
		},
	}}
}

func TestMatchScorerScore(t *testing.T) {
	scorer := NewMatchScorer(testRulebook())

	tests := []struct {
		name    string
		profile domain.Profile
		product domain.Product
		want    int
	}{
		{
			name:    "perfect match",
			profile: dogProfile("p"),
			product: newProduct("a", domain.CategoryDog, 5, 20, map[string]interface{}{
				"life_stage": "adult",
				"nutrition":  map[string]interface{}{"protein_pct": 25},
			}),
			want: 100,
		},
		{
			name:    "no product data is neutral",
			profile: dogProfile("p"),
			product: newProduct("a", domain.CategoryDog, 0, 20, nil),
			// category (1+0.5)/2, nutrition 0.5, preference 1, quality 0.5
			want: 69,
		},
		{
			name:    "universal life stage",
			profile: dogProfile("p"),
			product: newProduct("a", domain.CategoryDog, 5, 20, map[string]interface{}{
				"life_stage": []interface{}{"All Life Stages"},
				"nutrition":  map[string]interface{}{"protein_pct": 25},
			}),
			want: 100,
		},
		{
			name:    "life stage mismatch",
			profile: dogProfile("p"),
			product: newProduct("a", domain.CategoryDog, 5, 20, map[string]interface{}{
				"life_stage": "puppy",
				"nutrition":  map[string]interface{}{"protein_pct": 25},
			}),
			// category (1+0.2)/2 = 0.6
			want: 90,
		},
		{
			name:    "species mismatch",
			profile: dogProfile("p"),
			product: newProduct("a", domain.CategoryCat, 5, 20, map[string]interface{}{
				"life_stage": "adult",
				"nutrition":  map[string]interface{}{"protein_pct": 25},
			}),
			want: 88,
		},
		{
			name:    "protein below band decays",
			profile: dogProfile("p"),
			product: newProduct("a", domain.CategoryDog, 5, 20, map[string]interface{}{
				"life_stage": "adult",
				"nutrition":  map[string]interface{}{"protein_pct": 9},
			}),
			want: 75,
		},
		{
			name: "health condition weights favour nutrition",
			profile: domain.Profile{
				ID: "p", Category: domain.CategoryDog, AgeYears: 3,
				HealthConditions: []string{"arthritis"},
			},
			product: newProduct("a", domain.CategoryDog, 5, 20, map[string]interface{}{
				"nutrition": map[string]interface{}{"protein_pct": 33},
			}),
			// only nutrition counts: 1 - (3/30)/0.5 = 0.8
			want: 80,
		},
		{
			name: "budget weights favour price",
			profile: domain.Profile{
				ID: "p", Category: domain.CategoryDog, AgeYears: 3,
				Preferences: domain.Preferences{"price_range": "budget"},
			},
			product: newProduct("a", domain.CategoryDog, 5, 45, nil),
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := scorer.Score(&tt.profile, &tt.product)
			assert.Equal(t, tt.want, b.Score)
			assert.GreaterOrEqual(t, b.Score, 0)
			assert.LessOrEqual(t, b.Score, 100)
		})
	}
}

func TestMatchScorerPreferences(t *testing.T) {
	scorer := NewMatchScorer(testRulebook())

	tests := []struct {
		name  string
		prefs domain.Preferences
		attrs map[string]interface{}
		price float64
		want  float64
		pro   string
		con   string
	}{
		{
			name: "no preferences",
			want: 1,
		},
		{
			name:  "grain free satisfied",
			prefs: domain.Preferences{"grain_free": true},
			attrs: map[string]interface{}{"grain_free": true},
			want:  1,
			pro:   "Grain-free, as preferred",
		},
		{
			name:  "grain free violated",
			prefs: domain.Preferences{"grain_free": "yes"},
			attrs: map[string]interface{}{"grain_free": false},
			want:  0,
			con:   "Contains grain despite a grain-free preference",
		},
		{
			name:  "grain free unknown",
			prefs: domain.Preferences{"grain_free": true},
			want:  0.5,
		},
		{
			name:  "premium price satisfied",
			prefs: domain.Preferences{"price_range": "Premium"},
			price: 64.99,
			want:  1,
			pro:   "Fits the premium price range at $64.99",
		},
		{
			name:  "budget price violated",
			prefs: domain.Preferences{"price_range": "budget"},
			price: 45,
			want:  0,
			con:   "Priced at $45.00, outside the budget range",
		},
		{
			name:  "dietary preference from features",
			prefs: domain.Preferences{"dietary_preference": "high_protein"},
			attrs: map[string]interface{}{"features": []interface{}{"High Protein", "Real Meat First"}},
			want:  1,
			pro:   "Matches the high protein preference",
		},
		{
			name:  "dietary preference not labeled",
			prefs: domain.Preferences{"dietary_preference": "raw"},
			attrs: map[string]interface{}{"features": []interface{}{"Kibble"}},
			want:  0,
			con:   "Not labeled raw",
		},
		{
			name:  "mixed preferences average",
			prefs: domain.Preferences{"grain_free": true, "hypoallergenic": true},
			attrs: map[string]interface{}{"grain_free": true, "features": []interface{}{"Limited Ingredient Diet"}},
			want:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := domain.Profile{ID: "p", Category: domain.CategoryDog, AgeYears: 3, Preferences: tt.prefs}
			price := tt.price
			if price == 0 {
				price = 20
			}
			product := newProduct("a", domain.CategoryDog, 4, price, tt.attrs)

			b := scorer.Score(&profile, &product)
			assert.InDelta(t, tt.want, b.PreferenceFit, 1e-9)
			if tt.pro != "" {
				assert.Contains(t, b.Pros(), tt.pro)
			}
			if tt.con != "" {
				assert.Contains(t, b.Cons(), tt.con)
			}
		})
	}
}

func TestMatchScorerSizeFit(t *testing.T) {
	scorer := NewMatchScorer(testRulebook())
	profile := domain.Profile{ID: "p", Category: domain.CategoryDog, AgeYears: 3, WeightLbs: ptr(70.0)}

	large := newProduct("a", domain.CategoryDog, 4, 20, map[string]interface{}{"life_stage": "adult", "size_suitability": []interface{}{"large"}})
	small := newProduct("b", domain.CategoryDog, 4, 20, map[string]interface{}{"life_stage": "adult", "size_suitability": []interface{}{"small"}})

	assert.InDelta(t, 1.0, scorer.Score(&profile, &large).CategoryFit, 1e-9)
	assert.InDelta(t, (1+1+sizeMismatch)/3, scorer.Score(&profile, &small).CategoryFit, 1e-9)
	assert.Contains(t, scorer.Score(&profile, &small).Cons(), "Sized for small breeds rather than large")
}

func TestMatchScorerSignals(t *testing.T) {
	scorer := NewMatchScorer(testRulebook())
	profile := domain.Profile{
		ID: "p", Category: domain.CategoryDog, AgeYears: 3,
		Preferences: domain.Preferences{"grain_free": true},
	}
	product := newProduct("a", domain.CategoryDog, 2.5, 20, map[string]interface{}{
		"life_stage": "adult",
		"grain_free": false,
		"nutrition":  map[string]interface{}{"protein_pct": 26},
	})

	b := scorer.Score(&profile, &product)

	assert.Equal(t, []string{"Formulated for the adult life stage", "Protein 26% suits the adult life stage"}, b.Pros())
	assert.Equal(t, []string{"Contains grain despite a grain-free preference", "Below-average customer rating (2.5/5)"}, b.Cons())
	for i := 1; i < len(b.Signals); i++ {
		assert.GreaterOrEqual(t, b.Signals[i-1].Weight, b.Signals[i].Weight)
	}

	again := scorer.Score(&profile, &product)
	assert.Equal(t, b, again)
}

func TestMatchScorerDefaultRulebook(t *testing.T) {
	scorer := NewMatchScorer(defaultRules(t))

	for _, category := range []domain.ProfileCategory{domain.CategoryDog, domain.CategoryCat, domain.CategoryBaby, domain.CategoryHuman} {
		t.Run(string(category), func(t *testing.T) {
			profile := domain.Profile{ID: "p", Category: category, AgeYears: 2}
			product := newProduct("a", category, 4.2, 30, map[string]interface{}{"life_stage": "all"})
			b := scorer.Score(&profile, &product)
			assert.GreaterOrEqual(t, b.Score, 0)
			assert.LessOrEqual(t, b.Score, 100)
		})
	}
}

func TestBandScore(t *testing.T) {
	band := domain.Band{Min: ptr(18.0), Max: ptr(30.0)}

	tests := []struct {
		value float64
		want  float64
	}{
		{18, 1},
		{30, 1},
		{24, 1},
		{9, 0},
		{4, 0},
		{33, 0.8},
		{45, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, bandScore(tt.value, band), 1e-9, "value %v", tt.value)
	}

	assert.Equal(t, 1.0, bandScore(100, domain.Band{}))
}

func TestSortResultsTieBreak(t *testing.T) {
	result := func(id string, score int, rating, price float64) domain.RecommendationResult {
		return domain.RecommendationResult{
			Product:    domain.Product{ID: id, Rating: rating, Price: price},
			MatchScore: score,
		}
	}

	want := []string{"top", "rated", "cheap", "a-id", "b-id", "low"}
	for run := 0; run < 5; run++ {
		results := []domain.RecommendationResult{
			result("low", 50, 5, 1),
			result("b-id", 80, 4, 20),
			result("cheap", 80, 4, 10),
			result("rated", 80, 4.5, 99),
			result("a-id", 80, 4, 20),
			result("top", 95, 1, 100),
		}
		// rotate input order to show storage order does not matter
		results = append(results[run:], results[:run]...)

		sortResults(results)

		var got []string
		for _, r := range results {
			got = append(got, r.Product.ID)
		}
		require.Equal(t, want, got)
	}
}
