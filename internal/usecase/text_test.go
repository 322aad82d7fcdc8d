package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Grain-Free", "grain_free"},
		{"grain free", "grain_free"},
		{"  High_Protein ", "high_protein"},
		{"all life stages", "all_life_stages"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeLabel(tt.input))
		})
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		name         string
		token, label string
		want         bool
	}{
		{"single word", "whole wheat flour", "wheat", true},
		{"phrase", "deboned chicken meal", "chicken meal", true},
		{"partial word does not match", "buckwheat", "wheat", false},
		{"separator insensitive", "soy-lecithin", "soy lecithin", true},
		{"empty label", "chicken", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsWord(tt.token, tt.label))
		})
	}
}

func TestFuzzyTokenMatch(t *testing.T) {
	tests := []struct {
		name      string
		a, b      string
		threshold int
		want      bool
	}{
		{"identical", "salmon", "salmon", 1, true},
		{"one typo", "chiken", "chicken", 1, true},
		{"short tokens never fuzzy", "beef", "reef", 1, false},
		{"too far", "salmon", "lemons", 1, false},
		{"length gap", "turkey", "turkeys!!", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fuzzyTokenMatch(tt.a, tt.b, tt.threshold))
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("milk", "milk"))
	assert.Equal(t, 3, levenshteinDistance("", "abc"))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestHumanizeAndUnit(t *testing.T) {
	assert.Equal(t, "Protein", humanize("protein_pct"))
	assert.Equal(t, "Sodium", humanize("sodium_mg"))
	assert.Equal(t, "Omega 3", humanize("omega_3_g"))
	assert.Equal(t, "%", unitFor("fat_pct"))
	assert.Equal(t, " mg", unitFor("sodium_mg"))
	assert.Equal(t, "", unitFor("calories_per_cup"))
}
