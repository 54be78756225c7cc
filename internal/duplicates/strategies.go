package duplicates

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/identifier"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/similarity"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/urlnorm"
)

// Strategy is one independent search procedure proposing candidates from
// a single signal. Strategies are independently invocable and order-free.
//
// Search never panics and the returned error is informational: the
// detector counts it as a degraded-recall event, logs it, and treats the
// strategy as having contributed nothing. Errors never abort sibling
// strategies.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Applicable reports whether the identifier set carries the signal
	// this strategy searches on.
	Applicable(set identifier.Set) bool

	// Search queries the repository and scores any matches. The item
	// with excludeKey (the source record itself) never becomes a
	// candidate.
	Search(ctx context.Context, set identifier.Set, excludeKey string) ([]Candidate, error)
}

// auxiliaryResultCap bounds how many repository hits an auxiliary-field
// strategy scores, for cost control.
const auxiliaryResultCap = 5

// fuzzyQueryCap bounds how many repository hits the fuzzy strategy
// scores, for cost control.
const fuzzyQueryCap = 10

// exactFieldStrategy matches on an exact identifier field (DOI, ISBN).
type exactFieldStrategy struct {
	repo      ItemRepository
	name      string
	field     domain.SearchField
	value     func(identifier.Set) string
	score     int
	matchType string
}

// NewDOIStrategy matches items whose DOI field equals the source DOI.
func NewDOIStrategy(repo ItemRepository) Strategy {
	return &exactFieldStrategy{
		repo:      repo,
		name:      "doi",
		field:     domain.SearchFieldDOI,
		value:     func(s identifier.Set) string { return s.DOI },
		score:     ScoreDOI,
		matchType: MatchTypeDOI,
	}
}

// NewISBNStrategy matches items whose ISBN field equals the source ISBN.
func NewISBNStrategy(repo ItemRepository) Strategy {
	return &exactFieldStrategy{
		repo:      repo,
		name:      "isbn",
		field:     domain.SearchFieldISBN,
		value:     func(s identifier.Set) string { return s.ISBN },
		score:     ScoreISBN,
		matchType: MatchTypeISBN,
	}
}

func (s *exactFieldStrategy) Name() string { return s.name }

func (s *exactFieldStrategy) Applicable(set identifier.Set) bool {
	return s.value(set) != ""
}

func (s *exactFieldStrategy) Search(ctx context.Context, set identifier.Set, excludeKey string) ([]Candidate, error) {
	items, err := s.repo.FindByExactField(ctx, s.field, s.value(set), domain.NonItemTypes)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, item := range items {
		if item.Key == excludeKey {
			continue
		}
		candidates = append(candidates, newCandidate(item, s.score, s.matchType))
	}
	return candidates, nil
}

// auxiliaryFieldStrategy matches identifiers recorded in the free-form
// extra field (PMID, PMCID, arXiv). The repository contains-query is only
// a coarse recall step; every hit is re-validated against the
// identifier's exact pattern to eliminate accidental substring matches.
type auxiliaryFieldStrategy struct {
	repo      ItemRepository
	name      string
	kind      identifier.Kind
	value     func(identifier.Set) string
	score     int
	matchType string
}

// NewPMIDStrategy matches items whose extra text carries the source PMID.
func NewPMIDStrategy(repo ItemRepository) Strategy {
	return &auxiliaryFieldStrategy{
		repo:      repo,
		name:      "pmid",
		kind:      identifier.KindPMID,
		value:     func(s identifier.Set) string { return s.PMID },
		score:     ScorePMID,
		matchType: MatchTypePMID,
	}
}

// NewPMCIDStrategy matches items whose extra text carries the source PMCID.
func NewPMCIDStrategy(repo ItemRepository) Strategy {
	return &auxiliaryFieldStrategy{
		repo:      repo,
		name:      "pmcid",
		kind:      identifier.KindPMCID,
		value:     func(s identifier.Set) string { return s.PMCID },
		score:     ScorePMCID,
		matchType: MatchTypePMCID,
	}
}

// NewArXivStrategy matches items whose extra text carries the source
// arXiv ID.
func NewArXivStrategy(repo ItemRepository) Strategy {
	return &auxiliaryFieldStrategy{
		repo:      repo,
		name:      "arxiv",
		kind:      identifier.KindArXiv,
		value:     func(s identifier.Set) string { return s.ArXivID },
		score:     ScoreArXiv,
		matchType: MatchTypeArXiv,
	}
}

func (s *auxiliaryFieldStrategy) Name() string { return s.name }

func (s *auxiliaryFieldStrategy) Applicable(set identifier.Set) bool {
	return s.value(set) != ""
}

func (s *auxiliaryFieldStrategy) Search(ctx context.Context, set identifier.Set, excludeKey string) ([]Candidate, error) {
	want := s.value(set)
	items, err := s.repo.FindByContains(ctx, domain.SearchFieldExtra, want, domain.NonItemTypes)
	if err != nil {
		return nil, err
	}

	pattern := identifier.Pattern(s.kind)

	var candidates []Candidate
	for _, item := range items {
		if len(candidates) >= auxiliaryResultCap {
			break
		}
		if item.Key == excludeKey {
			continue
		}
		// Re-validate: the contains-query can hit on partial digit runs.
		// The extra field may record several identifiers of the same
		// kind, so every occurrence is checked.
		matched := false
		for _, m := range pattern.FindAllStringSubmatch(item.Extra, -1) {
			extracted := m[1]
			if s.kind == identifier.KindPMCID {
				extracted = "PMC" + extracted
			}
			if extracted == want {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		candidates = append(candidates, newCandidate(item, s.score, s.matchType))
	}
	return candidates, nil
}

// urlStrategy matches items pointing at the same resource. The repository
// is queried by domain for recall; only hits whose normalized URL equals
// the source's normalized URL become candidates.
type urlStrategy struct {
	repo   ItemRepository
	logger zerolog.Logger
}

// NewURLStrategy matches items whose URL is the same resource after
// canonicalization.
func NewURLStrategy(repo ItemRepository, logger zerolog.Logger) Strategy {
	return &urlStrategy{repo: repo, logger: logger}
}

func (s *urlStrategy) Name() string { return "url" }

func (s *urlStrategy) Applicable(set identifier.Set) bool {
	return set.URL != ""
}

func (s *urlStrategy) Search(ctx context.Context, set identifier.Set, excludeKey string) ([]Candidate, error) {
	host, err := urlnorm.Domain(set.URL)
	if err != nil {
		// An unparseable source URL is data noise, not a failure.
		s.logger.Debug().Str("url", set.URL).Msg("skipping url strategy, unparseable url")
		return nil, nil
	}
	normalized, err := urlnorm.Normalize(set.URL)
	if err != nil {
		return nil, nil
	}

	items, err := s.repo.FindByContains(ctx, domain.SearchFieldURL, host, domain.NonItemTypes)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, item := range items {
		if item.Key == excludeKey || item.URL == "" {
			continue
		}
		candidateNorm, err := urlnorm.Normalize(item.URL)
		if err != nil || candidateNorm != normalized {
			continue
		}
		candidates = append(candidates, newCandidate(item, ScoreURL, MatchTypeURL))
	}
	return candidates, nil
}

// fuzzyStrategy matches on combined title/author/year similarity. The
// repository is queried by first author for recall; each hit is scored
// with the weighted combined similarity and kept only at or above the
// configured minimum.
type fuzzyStrategy struct {
	repo          ItemRepository
	weights       similarity.Weights
	minSimilarity int
}

// NewFuzzyStrategy matches items by weighted title/author/year similarity.
func NewFuzzyStrategy(repo ItemRepository, weights similarity.Weights, minSimilarity int) Strategy {
	return &fuzzyStrategy{
		repo:          repo,
		weights:       weights,
		minSimilarity: minSimilarity,
	}
}

func (s *fuzzyStrategy) Name() string { return "fuzzy" }

func (s *fuzzyStrategy) Applicable(set identifier.Set) bool {
	return set.Title != "" && set.FirstAuthor != ""
}

func (s *fuzzyStrategy) Search(ctx context.Context, set identifier.Set, excludeKey string) ([]Candidate, error) {
	items, err := s.repo.FindByContains(ctx, domain.SearchFieldCreator, set.FirstAuthor, domain.NonItemTypes)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	scored := 0
	for _, item := range items {
		if scored >= fuzzyQueryCap {
			break
		}
		if item.Key == excludeKey {
			continue
		}
		scored++

		score := similarity.CombinedSimilarity(s.weights,
			set.Title, item.Title,
			set.FirstAuthor, item.FirstAuthor(),
			set.Year, item.Year())
		if score < s.minSimilarity {
			continue
		}
		candidates = append(candidates, newCandidate(item, score, MatchTypeFuzzy))
	}
	return candidates, nil
}
