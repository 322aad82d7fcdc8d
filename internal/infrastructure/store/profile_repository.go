package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/personashop/backend/internal/domain"
)

// ProfileRepository implements domain.ProfileRepository with gorm
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID loads a profile, returning *domain.NotFoundError when absent
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var m ProfileModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFoundError("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", id, err)
	}
	return m.toDomain(), nil
}

// Save inserts or replaces a profile
func (r *ProfileRepository) Save(ctx context.Context, p *domain.Profile) error {
	m := profileModelFrom(p)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to save profile %s: %w", p.ID, err)
	}
	p.UpdatedAt = m.UpdatedAt.UTC()
	return nil
}
