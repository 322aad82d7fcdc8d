package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfile_EffectiveSizeCategory(t *testing.T) {
	weight := func(w float64) *float64 { return &w }

	tests := []struct {
		name    string
		profile Profile
		want    string
	}{
		{"stored size wins", Profile{Category: CategoryDog, SizeCategory: "Large", WeightLbs: weight(10)}, "large"},
		{"small dog", Profile{Category: CategoryDog, WeightLbs: weight(20)}, "small"},
		{"medium dog", Profile{Category: CategoryDog, WeightLbs: weight(35)}, "medium"},
		{"large dog", Profile{Category: CategoryDog, WeightLbs: weight(51)}, "large"},
		{"dog without weight", Profile{Category: CategoryDog}, ""},
		{"cats are not sized", Profile{Category: CategoryCat, WeightLbs: weight(10)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.EffectiveSizeCategory())
		})
	}
}

func TestProfile_Normalization(t *testing.T) {
	p := Profile{
		Category:         CategoryHuman,
		Allergies:        []string{" Peanuts", "peanuts", "", "Shellfish"},
		HealthConditions: []string{"Diabetes", " diabetes "},
	}
	assert.Equal(t, []string{"peanuts", "shellfish"}, p.NormalizedAllergies())
	assert.Equal(t, []string{"diabetes"}, p.NormalizedConditions())
	assert.Equal(t, "your human", p.DisplayName())

	p.Name = "Sam"
	assert.Equal(t, "Sam", p.DisplayName())
}

func TestPreferences(t *testing.T) {
	prefs := Preferences{
		"grain_free":     "Yes",
		"hypoallergenic": false,
		"price_range":    " Budget ",
		"feeding_type":   3,
	}

	v, ok := prefs.Bool(PrefGrainFree)
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = prefs.Bool(PrefHypoallergenic)
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = prefs.Bool("missing")
	assert.False(t, ok)

	assert.Equal(t, "budget", prefs.String(PrefPriceRange))
	assert.Equal(t, "", prefs.String(PrefFeedingType))
}

func TestProfileCategory_Valid(t *testing.T) {
	for _, c := range []ProfileCategory{CategoryDog, CategoryCat, CategoryBaby, CategoryHuman} {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, ProfileCategory("hamster").Valid())
	assert.False(t, ProfileCategory("").Valid())
}

func TestErrors(t *testing.T) {
	nf := NewNotFoundError("product", "x1")
	assert.Equal(t, "product not found: x1", nf.Error())
	assert.True(t, errors.Is(nf, ErrNotFound))

	ve := &ValidationError{Fields: []FieldError{{Field: "limit", Message: "must be at least 0"}, {Field: "profile_id", Message: "is required"}}}
	assert.Equal(t, "validation failed: limit: must be at least 0; profile_id: is required", ve.Error())
	assert.True(t, errors.Is(ve, ErrValidation))
	assert.Equal(t, "validation failed", (&ValidationError{}).Error())
}
