package domain

import "time"

// Explanation sources
const (
	SourceAI       = "ai"
	SourceTemplate = "template"
)

// Exclusion records why the safety filter removed a product
type Exclusion struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// RecommendationResult is one scored, explained (profile, product) pair
type RecommendationResult struct {
	Product           Product   `json:"product"`
	IsSafe            bool      `json:"is_safe"`
	MatchScore        int       `json:"match_score"`
	Explanation       string    `json:"explanation"`
	Pros              []string  `json:"pros"`
	Cons              []string  `json:"cons"`
	SafetyNotes       []string  `json:"safety_notes,omitempty"`
	ExplanationSource string    `json:"explanation_source"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// RecommendRequest is the input of the recommendation assembler
type RecommendRequest struct {
	ProfileID    string `json:"profile_id" validate:"required"`
	Limit        *int   `json:"limit,omitempty" validate:"omitempty,gte=0"`
	ForceRefresh bool   `json:"force_refresh"`
}

// RecommendationResponse is the ranked recommendation list for a profile
type RecommendationResponse struct {
	Profile           Profile                `json:"profile"`
	Recommendations   []RecommendationResult `json:"recommendations"`
	TotalSafeProducts int                    `json:"total_safe_products"`
	TotalFilteredOut  int                    `json:"total_filtered_out"`
	FilteredOut       []Exclusion            `json:"filtered_out"`
	GeneratedAt       time.Time              `json:"generated_at"`
}

// CompareRequest is the input of the comparator
type CompareRequest struct {
	ProfileID  string   `json:"profile_id" validate:"required"`
	ProductIDs []string `json:"product_ids" validate:"min=2,max=4,unique,dive,required"`
}

// ComparisonResult is a head-to-head comparison of 2-4 products
type ComparisonResult struct {
	Profile           Profile                `json:"profile"`
	Products          []Product              `json:"products"`
	Recommendations   []RecommendationResult `json:"recommendations"`
	BestChoice        string                 `json:"best_choice"`
	BestChoiceIsSafe  bool                   `json:"best_choice_is_safe"`
	Caveat            string                 `json:"caveat,omitempty"`
	ComparisonSummary string                 `json:"comparison_summary"`
	GeneratedAt       time.Time              `json:"generated_at"`
}

// EvaluateRequest asks for a single product's result for a profile
type EvaluateRequest struct {
	ProfileID string `json:"profile_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
}

// SignalKind tells whether a scoring signal speaks for or against a product
type SignalKind int

const (
	SignalPro SignalKind = iota
	SignalCon
)

// Signal is one human-readable observation recorded while scoring
type Signal struct {
	Kind   SignalKind
	Text   string
	Weight float64 // contribution weight, used to order pros/cons
}

// ScoreBreakdown holds the sub-scores behind a match score
type ScoreBreakdown struct {
	CategoryFit   float64
	NutritionFit  float64
	PreferenceFit float64
	Quality       float64
	Weights       ScoreWeights
	Score         int
	Signals       []Signal
}

// Pros returns the positive signals, in recorded order
func (b ScoreBreakdown) Pros() []string {
	return b.signalTexts(SignalPro)
}

// Cons returns the negative signals, in recorded order
func (b ScoreBreakdown) Cons() []string {
	return b.signalTexts(SignalCon)
}

func (b ScoreBreakdown) signalTexts(kind SignalKind) []string {
	var out []string
	for _, s := range b.Signals {
		if s.Kind == kind {
			out = append(out, s.Text)
		}
	}
	return out
}

// Explanation is the human-readable justification of a score
type Explanation struct {
	Text   string
	Pros   []string
	Cons   []string
	Source string

	// KeyFeatures is set when this explanation produced new ai_key_features for the product
	KeyFeatures []string
}
