// Package duplicates implements duplicate detection for bibliographic
// records: a family of independent candidate search strategies, a
// concurrent strategy runner, and candidate aggregation.
package duplicates

import (
	"context"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
)

// ItemRepository defines the library item store operations the detection
// strategies need.
type ItemRepository interface {
	// FindByExactField returns items whose field equals value, excluding
	// the listed item types.
	FindByExactField(ctx context.Context, field domain.SearchField, value string, excludeTypes []domain.ItemType) ([]domain.Item, error)

	// FindByContains returns items whose field contains substring,
	// excluding the listed item types.
	FindByContains(ctx context.Context, field domain.SearchField, substring string, excludeTypes []domain.ItemType) ([]domain.Item, error)
}

// Match type labels reported with each candidate.
const (
	MatchTypeDOI   = "DOI match"
	MatchTypeISBN  = "ISBN match"
	MatchTypePMID  = "PMID match"
	MatchTypePMCID = "PMCID match"
	MatchTypeArXiv = "arXiv match"
	MatchTypeURL   = "URL match"
	MatchTypeFuzzy = "Fuzzy match"
)

// Base scores for exact-identifier matches. The scale leaves the 96-99
// range above the exact-title band (95) so identifier evidence always
// outranks textual evidence.
const (
	ScoreDOI   = 99
	ScorePMID  = 98
	ScoreISBN  = 95
	ScorePMCID = 95
	ScoreArXiv = 95
	ScoreURL   = 90
)

// Candidate is one matched existing record.
type Candidate struct {
	// Key is the opaque stable identity of the matched item.
	Key string `json:"key"`

	// Title is the matched item's title.
	Title string `json:"title"`

	// Creators is the joined creator display string.
	Creators string `json:"creators"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty"`

	// ItemType is the matched item's type.
	ItemType domain.ItemType `json:"itemType"`

	// Similarity is the match score on the shared 0-100 scale. Scores
	// are comparable across strategies.
	Similarity int `json:"similarity"`

	// MatchType labels which signal produced the match.
	MatchType string `json:"matchType"`
}

// newCandidate builds a candidate from a matched item.
func newCandidate(item domain.Item, similarity int, matchType string) Candidate {
	return Candidate{
		Key:        item.Key,
		Title:      item.Title,
		Creators:   item.JoinCreators(),
		Year:       item.Year(),
		ItemType:   item.ItemType,
		Similarity: similarity,
		MatchType:  matchType,
	}
}

// Result is the outcome of one duplicate detection run.
type Result struct {
	// HasDuplicates reports whether any duplicate candidate was found.
	HasDuplicates bool `json:"hasDuplicates"`

	// DuplicateCount is the number of unique duplicate candidates found,
	// before truncation to the returned list.
	DuplicateCount int `json:"duplicateCount"`

	// Candidates is the returned candidate list, sorted descending by
	// similarity and capped at the configured maximum.
	Candidates []Candidate `json:"candidates"`

	// FlaggedKeys is exactly the key set of the returned candidates.
	FlaggedKeys []string `json:"flaggedItems"`
}

// EmptyResult is the worst-case detection outcome: no duplicates found.
func EmptyResult() Result {
	return Result{
		Candidates:  []Candidate{},
		FlaggedKeys: []string{},
	}
}
