package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/personashop/backend/internal/domain"
)

// ProductRepository implements domain.ProductRepository and domain.KeyFeatureWriter
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListByCategory returns a page of active products of a category ordered by id.
// A non-positive limit means no limit.
func (r *ProductRepository) ListByCategory(ctx context.Context, category domain.ProfileCategory, offset, limit int) ([]domain.Product, error) {
	q := r.db.WithContext(ctx).
		Where("category = ? AND is_active = ?", string(category), true).
		Order("id")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []ProductModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s products: %w", category, err)
	}
	return toProducts(models), nil
}

// GetByIDs returns the products found among ids, in id order
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	return toProducts(models), nil
}

// UpdateKeyFeatures sets ai_key_features in the product's attribute document,
// leaving every other key untouched
func (r *ProductRepository) UpdateKeyFeatures(ctx context.Context, productID string, features []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m ProductModel
		err := tx.Select("id", "attributes").First(&m, "id = ?", productID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewNotFoundError("product", productID)
		}
		if err != nil {
			return fmt.Errorf("failed to load product %s: %w", productID, err)
		}

		doc := map[string]interface{}{}
		if len(m.Attributes) > 0 {
			_ = json.Unmarshal(m.Attributes, &doc)
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
		doc["ai_key_features"] = features

		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return tx.Model(&ProductModel{}).Where("id = ?", productID).
			Update("attributes", datatypes.JSON(data)).Error
	})
}

// Save inserts or replaces a product
func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	m, err := productModelFrom(p)
	if err != nil {
		return fmt.Errorf("failed to encode product %s: %w", p.ID, err)
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(m).Error; err != nil {
		return fmt.Errorf("failed to save product %s: %w", p.ID, err)
	}
	return nil
}

func toProducts(models []ProductModel) []domain.Product {
	out := make([]domain.Product, 0, len(models))
	for i := range models {
		out = append(out, models[i].toDomain())
	}
	return out
}
