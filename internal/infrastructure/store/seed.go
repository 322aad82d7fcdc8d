package store

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/personashop/backend/internal/domain"
	"github.com/personashop/backend/pkg/logger"
)

// SeedFile is the YAML document loaded into an empty or existing store
type SeedFile struct {
	Profiles []SeedProfile `yaml:"profiles"`
	Products []SeedProduct `yaml:"products"`
}

type SeedProfile struct {
	ID               string                 `yaml:"id"`
	UserID           string                 `yaml:"user_id"`
	Name             string                 `yaml:"name"`
	Category         string                 `yaml:"profile_category"`
	AgeYears         float64                `yaml:"age_years"`
	WeightLbs        *float64               `yaml:"weight_lbs"`
	SizeCategory     string                 `yaml:"size_category"`
	Allergies        []string               `yaml:"allergies"`
	HealthConditions []string               `yaml:"health_conditions"`
	Preferences      map[string]interface{} `yaml:"preferences"`
}

type SeedProduct struct {
	ID              string                 `yaml:"id"`
	Brand           string                 `yaml:"brand"`
	Name            string                 `yaml:"name"`
	Description     string                 `yaml:"description"`
	Price           float64                `yaml:"price"`
	PriceUnit       string                 `yaml:"price_unit"`
	Rating          float64                `yaml:"rating"`
	ImageURL        string                 `yaml:"image_url"`
	Category        string                 `yaml:"pet_type"`
	ProductCategory string                 `yaml:"product_category"`
	Attributes      map[string]interface{} `yaml:"attributes"`
	IsActive        *bool                  `yaml:"is_active"`
}

// SeedFromFile upserts the profiles and products of a YAML seed file.
// Entries without an id get a random UUID.
func SeedFromFile(ctx context.Context, path string, profiles *ProfileRepository, products *ProductRepository) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	for _, sp := range seed.Profiles {
		p := sp.toDomain()
		if !p.Category.Valid() {
			return fmt.Errorf("seed profile %q: unknown category %q", p.ID, sp.Category)
		}
		if err := profiles.Save(ctx, p); err != nil {
			return err
		}
	}
	for _, sp := range seed.Products {
		p := sp.toDomain()
		if !p.Category.Valid() {
			return fmt.Errorf("seed product %q: unknown category %q", p.ID, sp.Category)
		}
		if err := products.Save(ctx, &p); err != nil {
			return err
		}
	}

	logger.Info("Seed data loaded",
		zap.String("path", path),
		zap.Int("profiles", len(seed.Profiles)),
		zap.Int("products", len(seed.Products)),
	)
	return nil
}

func (s SeedProfile) toDomain() *domain.Profile {
	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &domain.Profile{
		ID:               id,
		UserID:           s.UserID,
		Name:             s.Name,
		Category:         domain.ProfileCategory(s.Category),
		AgeYears:         s.AgeYears,
		WeightLbs:        s.WeightLbs,
		SizeCategory:     s.SizeCategory,
		Allergies:        s.Allergies,
		HealthConditions: s.HealthConditions,
		Preferences:      domain.Preferences(s.Preferences),
	}
}

func (s SeedProduct) toDomain() domain.Product {
	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}
	active := true
	if s.IsActive != nil {
		active = *s.IsActive
	}
	return domain.Product{
		ID:              id,
		Brand:           s.Brand,
		Name:            s.Name,
		Description:     s.Description,
		Price:           s.Price,
		PriceUnit:       s.PriceUnit,
		Rating:          s.Rating,
		ImageURL:        s.ImageURL,
		Category:        domain.ProfileCategory(s.Category),
		ProductCategory: s.ProductCategory,
		Attributes:      domain.ParseAttributes(s.Attributes),
		IsActive:        active,
	}
}
