// Package similarity provides bounded [0,100] similarity scores for
// bibliographic titles, author names, and combined multi-field records.
//
// All functions are pure and safe for concurrent use. The exact-title band
// deliberately scores 95 rather than 100: the headroom above it is reserved
// for exact-identifier matches (DOI 99, PMID 98), so relative ordering
// between match kinds stays meaningful downstream.
package similarity

import (
	"math"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Score bands for title similarity.
const (
	// ExactTitleScore is the score for titles that are equal after
	// normalization.
	ExactTitleScore = 95

	bandVeryHigh = 90
	bandHigh     = 85
	bandMedium   = 75
	bandLow      = 65
	bandFloorCap = 60
)

// Weights configures the relative contribution of each factor to the
// combined similarity score. Title dominates by default.
type Weights struct {
	// Title is the weight of the title similarity factor.
	Title float64

	// Author is the weight of the author similarity factor. Only applied
	// when both records carry an author.
	Author float64

	// Year is the weight of the year proximity factor. Only applied when
	// both records carry a year within two years of each other.
	Year float64
}

// DefaultWeights returns the default factor weights.
func DefaultWeights() Weights {
	return Weights{
		Title:  0.6,
		Author: 0.25,
		Year:   0.15,
	}
}

// NormalizeTitle canonicalizes a title for comparison: lowercase, strip
// everything that is not a letter, digit, or whitespace, collapse
// whitespace runs to a single space, and trim. Idempotent.
func NormalizeTitle(s string) string {
	s = strings.ToLower(s)

	var sb strings.Builder
	sb.Grow(len(s))
	prevSpace := false

	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
				prevSpace = true
			}
		}
		// Punctuation and symbols are dropped.
	}

	return strings.TrimRight(sb.String(), " ")
}

// TitleSimilarity scores two titles on the 0-100 scale. Titles equal after
// normalization score ExactTitleScore; otherwise the normalized edit
// distance ratio is mapped onto fixed bands.
func TitleSimilarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}

	na := NormalizeTitle(a)
	nb := NormalizeTitle(b)
	if na == nb {
		return ExactTitleScore
	}

	r := editDistanceRatio(na, nb)
	switch {
	case r >= 0.95:
		return bandVeryHigh
	case r >= 0.90:
		return bandHigh
	case r >= 0.80:
		return bandMedium
	case r >= 0.70:
		return bandLow
	default:
		return int(math.Round(r * bandFloorCap))
	}
}

// AuthorSimilarity scores two author display strings on the 0-100 scale.
// Exact case-insensitive matches score 100. A bare surname contained in
// the other author string scores 85. Anything else falls back to the raw
// edit distance ratio.
func AuthorSimilarity(a, b string) int {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}

	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if la == lb {
		return 100
	}

	if (isBareSurname(la) || isBareSurname(lb)) &&
		(strings.Contains(la, lb) || strings.Contains(lb, la)) {
		return 85
	}

	return int(math.Round(editDistanceRatio(la, lb) * 100))
}

// CombinedSimilarity computes the weighted average over the factors
// present on both sides. Authors contribute only when both are non-empty;
// years contribute only when both are non-zero and within two years of
// each other. Returns 0 when no factor is present.
func CombinedSimilarity(w Weights, title1, title2, author1, author2 string, year1, year2 int) int {
	weightedSum := 0.0
	totalWeight := 0.0

	if title1 != "" && title2 != "" {
		weightedSum += float64(TitleSimilarity(title1, title2)) * w.Title
		totalWeight += w.Title
	}

	if author1 != "" && author2 != "" {
		weightedSum += float64(AuthorSimilarity(author1, author2)) * w.Author
		totalWeight += w.Author
	}

	if year1 != 0 && year2 != 0 {
		if factor, ok := yearFactor(year1, year2); ok {
			weightedSum += factor * w.Year
			totalWeight += w.Year
		}
	}

	if totalWeight == 0 {
		return 0
	}
	return int(math.Round(weightedSum / totalWeight))
}

// yearFactor maps year proximity onto a factor. Years more than two apart
// contribute nothing; the factor is omitted rather than scored zero so a
// reprint does not drag down an otherwise strong match.
func yearFactor(a, b int) (float64, bool) {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return 100, true
	case 1:
		return 80, true
	case 2:
		return 60, true
	default:
		return 0, false
	}
}

// editDistanceRatio returns (maxLen - editDistance) / maxLen in [0,1].
func editDistanceRatio(a, b string) float64 {
	maxLen := len([]rune(a))
	if lb := len([]rune(b)); lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}

// isBareSurname reports whether s is a single alphabetic token.
func isBareSurname(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
