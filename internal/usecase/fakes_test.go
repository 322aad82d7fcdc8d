package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/personashop/backend/internal/domain"
)

type fakeProfiles struct {
	profiles map[string]*domain.Profile
	err      error
}

func newFakeProfiles(profiles ...domain.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[string]*domain.Profile{}}
	for i := range profiles {
		f.profiles[profiles[i].ID] = &profiles[i]
	}
	return f
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, domain.NewNotFoundError("profile", id)
	}
	cp := *p
	return &cp, nil
}

type fakeProducts struct {
	mu       sync.Mutex
	products []domain.Product
	listCall int
	err      error
}

func (f *fakeProducts) ListByCategory(_ context.Context, category domain.ProfileCategory, offset, limit int) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCall++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Product
	for _, p := range f.products {
		if p.Category == category && p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Product
	for _, p := range f.products {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeCache struct {
	mu   sync.Mutex
	data    map[string][]byte
	sets    int
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes = append(c.deletes, key)
	delete(c.data, key)
	return nil
}


// fakeGenerator answers with fixed replies; block makes it hang until release is closed
type fakeGenerator struct {
	mu        sync.Mutex
	reply     *domain.GeneratedExplanation
	summary   string
	err       error
	block     bool
	release   chan struct{}
	calls     int
	summaries int
}

func (g *fakeGenerator) Explain(_ context.Context, _ domain.ExplainPrompt) (*domain.GeneratedExplanation, error) {
	g.mu.Lock()
	g.calls++
	block, release := g.block, g.release
	g.mu.Unlock()
	if block {
		<-release
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) Summarize(_ context.Context, _ domain.ComparePrompt) (string, error) {
	g.mu.Lock()
	g.summaries++
	block, release := g.block, g.release
	g.mu.Unlock()
	if block {
		<-release
	}
	if g.err != nil {
		return "", g.err
	}
	return g.summary, nil
}

type fakeFeatureWriter struct {
	mu      sync.Mutex
	written map[string][]string
	err     error
}

func (w *fakeFeatureWriter) UpdateKeyFeatures(_ context.Context, productID string, features []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.written == nil {
		w.written = map[string][]string{}
	}
	w.written[productID] = features
	return nil
}

func newProduct(id string, category domain.ProfileCategory, rating, price float64, attrs map[string]interface{}) domain.Product {
	return domain.Product{
		ID:         id,
		Brand:      "Brand " + id,
		Name:       "Formula " + id,
		Price:      price,
		PriceUnit:  "bag",
		Rating:     rating,
		Category:   category,
		Attributes: domain.ParseAttributes(attrs),
		IsActive:   true,
	}
}

func dogProfile(id string, allergies ...string) domain.Profile {
	return domain.Profile{
		ID:        id,
		Name:      "Rex",
		Category:  domain.CategoryDog,
		AgeYears:  3,
		Allergies: allergies,
	}
}

func ptr[T any](v T) *T { return &v }
