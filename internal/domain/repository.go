package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ProfileRepository is the read side of the profile store
type ProfileRepository interface {
	// GetByID returns a *NotFoundError when the profile does not exist
	GetByID(ctx context.Context, id string) (*Profile, error)
}

// ProductRepository is the catalog as seen by the recommendation engine
type ProductRepository interface {
	// ListByCategory returns one page of the active products of a category,
	// ordered by id. A non-positive limit returns everything from offset on.
	ListByCategory(ctx context.Context, category ProfileCategory, offset, limit int) ([]Product, error)

	// GetByIDs returns the products that exist among ids; missing ids are simply absent
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// KeyFeatureWriter persists generated key features on a product
type KeyFeatureWriter interface {
	UpdateKeyFeatures(ctx context.Context, productID string, features []string) error
}

// ExplainPrompt is what the generative backend receives for one product
type ExplainPrompt struct {
	Profile   Profile
	Product   Product
	Score     int
	Breakdown ScoreBreakdown
	IsSafe    bool
	Safety    []string
}

// GeneratedExplanation is the parsed reply of the generative backend
type GeneratedExplanation struct {
	Explanation string
	Pros        []string
	Cons        []string
}

// ComparePrompt is what the generative backend receives for a comparison
type ComparePrompt struct {
	Profile Profile
	Results []RecommendationResult
	Best    RecommendationResult
}

// ExplanationGenerator is the external generative-text collaborator
type ExplanationGenerator interface {
	Explain(ctx context.Context, prompt ExplainPrompt) (*GeneratedExplanation, error)
	Summarize(ctx context.Context, prompt ComparePrompt) (string, error)
}
