package usecase

import (
	"regexp"
	"strings"
)

var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// normalizeLabel folds case and separators so "Grain-Free", "grain free" and
// "grain_free" compare equal
func normalizeLabel(s string) string {
	s = nonWordRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	return strings.Trim(s, "_")
}

// words splits a token into lowercase words, dropping punctuation and 1-char noise
func words(s string) []string {
	fields := strings.Fields(nonWordRegex.ReplaceAllString(strings.ToLower(s), " "))
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// containsWord reports whether label appears as a whole word (or word sequence) in token
func containsWord(token, label string) bool {
	t := " " + strings.Join(words(token), " ") + " "
	l := " " + strings.Join(words(label), " ") + " "
	return strings.TrimSpace(l) != "" && strings.Contains(t, l)
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to longer tokens to avoid false positives
	if len(token1) <= 4 || len(token2) <= 4 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// humanize turns "protein_pct" into "Protein"
func humanize(key string) string {
	for _, suffix := range []string{"_pct", "_mg", "_g"} {
		key = strings.TrimSuffix(key, suffix)
	}
	key = strings.ReplaceAll(key, "_", " ")
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// unitFor returns the display unit of a nutrient key
func unitFor(key string) string {
	switch {
	case strings.HasSuffix(key, "_pct"):
		return "%"
	case strings.HasSuffix(key, "_mg"):
		return " mg"
	case strings.HasSuffix(key, "_g"):
		return " g"
	}
	return ""
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
