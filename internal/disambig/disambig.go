// Package disambig ranks competing DOI candidates against a reference
// page title. Each surviving candidate gets its metadata fetched, is
// scored on a weighted combination of factors, classified into a
// confidence tier, then sorted and filtered by a minimum score.
package disambig

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/clients/crossref"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/identifier"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/observability"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/similarity"
)

// Confidence tiers summarize how trustworthy a disambiguation result is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Score thresholds for the confidence tiers.
const (
	highConfidenceFloor   = 80
	mediumConfidenceFloor = 60
)

// Placeholder scores for positional signals. Richer collaborators for
// URL and in-page position are not wired yet, but the weighting keeps
// them as independent inputs.
const (
	urlPriorityPlaceholder     = 70
	contentPositionPlaceholder = 70
)

// MetadataFetcher resolves a normalized DOI to bibliographic metadata.
// Implemented by crossref.Client.
type MetadataFetcher interface {
	Fetch(ctx context.Context, doi string) (crossref.FetchResult, error)
}

// Config controls candidate intake, factor weighting, and the
// confidence cutoff.
type Config struct {
	// MaxCandidates caps how many input DOIs are considered per call.
	MaxCandidates int

	// TitleSimilarityWeight, URLPriorityWeight and ContentPositionWeight
	// combine the three sub-scores into the final score. They should
	// sum to 1.0.
	TitleSimilarityWeight float64
	URLPriorityWeight     float64
	ContentPositionWeight float64

	// MinimumConfidenceScore drops results scoring below it.
	MinimumConfidenceScore int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxCandidates:          5,
		TitleSimilarityWeight:  0.4,
		URLPriorityWeight:      0.4,
		ContentPositionWeight:  0.2,
		MinimumConfidenceScore: 30,
	}
}

// Result is one scored DOI candidate. Created once per call, never
// mutated afterwards.
type Result struct {
	DOI             string         `json:"doi"`
	FinalScore      int            `json:"finalScore"`
	TitleSimilarity int            `json:"titleSimilarity"`
	URLPriority     int            `json:"urlPriority"`
	ContentPosition int            `json:"contentPosition"`
	Metadata        *crossref.Work `json:"metadata,omitempty"`
	IsValid         bool           `json:"isValid"`
	Confidence      Confidence     `json:"confidence"`
}

// Disambiguator scores and ranks DOI candidates.
type Disambiguator struct {
	fetcher MetadataFetcher
	cfg     Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// New creates a Disambiguator backed by the given metadata fetcher.
func New(fetcher MetadataFetcher, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Disambiguator {
	return &Disambiguator{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.With().Str("component", "disambiguator").Logger(),
		metrics: metrics,
	}
}

// Rank normalizes and deduplicates candidateDOIs, fetches metadata for
// each survivor concurrently, scores each against pageTitle, and
// returns the results sorted descending by final score with entries
// below the minimum confidence score removed. One candidate's fetch
// failure never aborts the others; a failed candidate scores zero and
// is usually filtered out.
//
// Rank returns domain.ErrNotReady when no metadata fetcher was wired.
func (d *Disambiguator) Rank(ctx context.Context, candidateDOIs []string, pageTitle string) ([]Result, error) {
	if d.fetcher == nil {
		return nil, domain.ErrNotReady
	}

	dois := d.normalizeCandidates(candidateDOIs)

	if d.metrics != nil {
		d.metrics.DisambiguationRuns.Inc()
		d.metrics.DisambiguationCandidates.Observe(float64(len(dois)))
	}
	if len(dois) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, len(dois))

	var wg sync.WaitGroup
	for i, doi := range dois {
		wg.Add(1)
		go func(i int, doi string) {
			defer wg.Done()
			results[i] = d.scoreCandidate(ctx, doi, pageTitle)
		}(i, doi)
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})

	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if r.FinalScore >= d.cfg.MinimumConfidenceScore {
			filtered = append(filtered, r)
		}
	}

	d.logger.Debug().
		Int("candidates", len(dois)).
		Int("returned", len(filtered)).
		Msg("disambiguation complete")

	return filtered, nil
}

// normalizeCandidates takes at most MaxCandidates entries and drops
// those that fail DOI normalization or repeat an earlier candidate.
func (d *Disambiguator) normalizeCandidates(candidateDOIs []string) []string {
	limit := d.cfg.MaxCandidates
	if limit > 0 && len(candidateDOIs) > limit {
		candidateDOIs = candidateDOIs[:limit]
	}

	seen := make(map[string]struct{}, len(candidateDOIs))
	dois := make([]string, 0, len(candidateDOIs))
	for _, raw := range candidateDOIs {
		doi, ok := identifier.NormalizeDOI(raw)
		if !ok {
			d.logger.Debug().Str("doi", raw).Msg("dropping invalid DOI candidate")
			continue
		}
		if _, dup := seen[doi]; dup {
			continue
		}
		seen[doi] = struct{}{}
		dois = append(dois, doi)
	}
	return dois
}

func (d *Disambiguator) scoreCandidate(ctx context.Context, doi, pageTitle string) Result {
	fetched, err := d.fetcher.Fetch(ctx, doi)
	if err != nil {
		d.countFetch("error")
		doiLogger := observability.WithDOIContext(d.logger, doi)
		doiLogger.Warn().Err(err).Msg("metadata fetch failed")
		return invalidResult(doi)
	}

	switch fetched.Outcome {
	case crossref.OutcomeFound:
		d.countFetch("found")
	case crossref.OutcomeNotFound:
		d.countFetch("not_found")
		return invalidResult(doi)
	default:
		d.countFetch("error")
		doiLogger := observability.WithDOIContext(d.logger, doi)
		doiLogger.Warn().Err(fetched.Err).Msg("metadata fetch failed")
		return invalidResult(doi)
	}

	titleSim := similarity.TitleSimilarity(pageTitle, fetched.Work.PrimaryTitle())
	final := int(math.Round(
		float64(titleSim)*d.cfg.TitleSimilarityWeight +
			float64(urlPriorityPlaceholder)*d.cfg.URLPriorityWeight +
			float64(contentPositionPlaceholder)*d.cfg.ContentPositionWeight))

	return Result{
		DOI:             doi,
		FinalScore:      final,
		TitleSimilarity: titleSim,
		URLPriority:     urlPriorityPlaceholder,
		ContentPosition: contentPositionPlaceholder,
		Metadata:        fetched.Work,
		IsValid:         true,
		Confidence:      classify(final),
	}
}

func (d *Disambiguator) countFetch(outcome string) {
	if d.metrics != nil {
		d.metrics.MetadataFetches.WithLabelValues(outcome).Inc()
	}
}

// invalidResult is the fixed shape for a candidate whose metadata
// could not be resolved.
func invalidResult(doi string) Result {
	return Result{DOI: doi, Confidence: ConfidenceLow}
}

func classify(score int) Confidence {
	switch {
	case score >= highConfidenceFloor:
		return ConfidenceHigh
	case score >= mediumConfidenceFloor:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
