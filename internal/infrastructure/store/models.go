package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/personashop/backend/internal/domain"
)

// ProfileModel is the profiles table row
type ProfileModel struct {
	ID               string `gorm:"primaryKey;size:64"`
	UserID           string `gorm:"index;size:64"`
	Name             string `gorm:"size:100"`
	Category         string `gorm:"index;size:16;not null"`
	AgeYears         float64
	WeightLbs        *float64
	SizeCategory     string `gorm:"size:16"`
	Allergies        datatypes.JSONSlice[string]
	HealthConditions datatypes.JSONSlice[string]
	Preferences      datatypes.JSONMap
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ProfileModel) TableName() string {
	return "profiles"
}

// ProductModel is the products table row. Attributes is the free-form document.
type ProductModel struct {
	ID              string `gorm:"primaryKey;size:64"`
	Brand           string `gorm:"size:255"`
	Name            string `gorm:"size:255;not null"`
	Description     string
	Price           float64
	PriceUnit       string `gorm:"size:32"`
	Rating          float64
	ImageURL        string
	Category        string `gorm:"index:idx_products_category_active;size:16;not null"`
	ProductCategory string `gorm:"size:64"`
	Attributes      datatypes.JSON
	IsActive        bool `gorm:"index:idx_products_category_active;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (ProductModel) TableName() string {
	return "products"
}

func (m *ProfileModel) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:               m.ID,
		UserID:           m.UserID,
		Name:             m.Name,
		Category:         domain.ProfileCategory(m.Category),
		AgeYears:         m.AgeYears,
		WeightLbs:        m.WeightLbs,
		SizeCategory:     m.SizeCategory,
		Allergies:        []string(m.Allergies),
		HealthConditions: []string(m.HealthConditions),
		Preferences:      domain.Preferences(m.Preferences),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

func profileModelFrom(p *domain.Profile) *ProfileModel {
	return &ProfileModel{
		ID:               p.ID,
		UserID:           p.UserID,
		Name:             p.Name,
		Category:         string(p.Category),
		AgeYears:         p.AgeYears,
		WeightLbs:        p.WeightLbs,
		SizeCategory:     p.SizeCategory,
		Allergies:        datatypes.JSONSlice[string](p.Allergies),
		HealthConditions: datatypes.JSONSlice[string](p.HealthConditions),
		Preferences:      datatypes.JSONMap(p.Preferences),
	}
}

func (m *ProductModel) toDomain() domain.Product {
	var raw map[string]interface{}
	if len(m.Attributes) > 0 {
		// malformed documents degrade to empty attributes
		_ = json.Unmarshal(m.Attributes, &raw)
	}
	return domain.Product{
		ID:              m.ID,
		Brand:           m.Brand,
		Name:            m.Name,
		Description:     m.Description,
		Price:           m.Price,
		PriceUnit:       m.PriceUnit,
		Rating:          m.Rating,
		ImageURL:        m.ImageURL,
		Category:        domain.ProfileCategory(m.Category),
		ProductCategory: m.ProductCategory,
		Attributes:      domain.ParseAttributes(raw),
		IsActive:        m.IsActive,
	}
}

func productModelFrom(p *domain.Product) (*ProductModel, error) {
	attrs, err := json.Marshal(p.Attributes)
	if err != nil {
		return nil, err
	}
	return &ProductModel{
		ID:              p.ID,
		Brand:           p.Brand,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		PriceUnit:       p.PriceUnit,
		Rating:          p.Rating,
		ImageURL:        p.ImageURL,
		Category:        string(p.Category),
		ProductCategory: p.ProductCategory,
		Attributes:      datatypes.JSON(attrs),
		IsActive:        p.IsActive,
	}, nil
}
