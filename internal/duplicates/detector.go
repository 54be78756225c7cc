package duplicates

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/identifier"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/observability"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/similarity"
)

// DetectorConfig holds the configuration for the duplicate detector.
type DetectorConfig struct {
	// Weights are the combined-similarity factor weights used by the
	// fuzzy strategy.
	Weights similarity.Weights

	// MinTitleSimilarity is the combined-similarity threshold (0-100) a
	// fuzzy match must reach to be reported.
	MinTitleSimilarity int

	// MaxCandidates caps how many candidates one detection returns.
	MaxCandidates int
}

// DefaultDetectorConfig returns the default detector configuration.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Weights:            similarity.DefaultWeights(),
		MinTitleSimilarity: 70,
		MaxCandidates:      10,
	}
}

// Detector runs all applicable candidate search strategies against one
// target record, aggregates their outputs, and reports duplicates.
//
// The top-level Detect call never fails: any strategy error degrades
// recall but is logged and absorbed, and the worst case is an empty
// result.
type Detector struct {
	strategies []Strategy
	cfg        DetectorConfig
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewDetector creates a detector with the standard strategy family (DOI,
// ISBN, PMID, PMCID, arXiv, URL, fuzzy) over the given repository.
// metrics may be nil.
func NewDetector(repo ItemRepository, cfg DetectorConfig, logger zerolog.Logger, metrics *observability.Metrics) *Detector {
	logger = logger.With().Str("component", "duplicate-detector").Logger()

	strategies := []Strategy{
		NewDOIStrategy(repo),
		NewISBNStrategy(repo),
		NewPMIDStrategy(repo),
		NewPMCIDStrategy(repo),
		NewArXivStrategy(repo),
		NewURLStrategy(repo, logger),
		NewFuzzyStrategy(repo, cfg.Weights, cfg.MinTitleSimilarity),
	}

	return &Detector{
		strategies: strategies,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// NewDetectorWithStrategies creates a detector over an explicit strategy
// list. Useful for tests.
func NewDetectorWithStrategies(strategies []Strategy, cfg DetectorConfig, logger zerolog.Logger, metrics *observability.Metrics) *Detector {
	return &Detector{
		strategies: strategies,
		cfg:        cfg,
		logger:     logger.With().Str("component", "duplicate-detector").Logger(),
		metrics:    metrics,
	}
}

// strategyOutput carries one strategy's contribution off its goroutine.
type strategyOutput struct {
	strategy   string
	candidates []Candidate
	err        error
}

// Detect checks whether the item already exists in the library. All
// applicable strategies run concurrently; the call joins them, collects
// whatever succeeded, deduplicates by key keeping the best evidence, and
// returns the top candidates sorted descending by similarity.
func (d *Detector) Detect(ctx context.Context, item domain.Item) Result {
	start := time.Now()
	if d.metrics != nil {
		d.metrics.DetectionRuns.Inc()
		defer func() {
			d.metrics.DetectionDuration.Observe(time.Since(start).Seconds())
		}()
	}

	set := identifier.ExtractSet(item)

	var applicable []Strategy
	for _, s := range d.strategies {
		if s.Applicable(set) {
			applicable = append(applicable, s)
		}
	}
	if len(applicable) == 0 {
		return EmptyResult()
	}

	// Strategies are independent for a single target record; issue them
	// concurrently and wait for all. A failed strategy degrades recall
	// but never blocks its siblings.
	outputs := make(chan strategyOutput, len(applicable))
	var wg sync.WaitGroup

	for _, s := range applicable {
		wg.Add(1)
		go func(s Strategy) {
			defer wg.Done()
			candidates, err := s.Search(ctx, set, item.Key)
			outputs <- strategyOutput{strategy: s.Name(), candidates: candidates, err: err}
		}(s)
	}

	wg.Wait()
	close(outputs)

	var all []Candidate
	for out := range outputs {
		if d.metrics != nil {
			d.metrics.StrategyRuns.WithLabelValues(out.strategy).Inc()
		}
		if out.err != nil {
			if d.metrics != nil {
				d.metrics.StrategyFailures.WithLabelValues(out.strategy).Inc()
			}
			strategyLogger := observability.WithStrategyContext(d.logger, out.strategy, item.Key)
			strategyLogger.Warn().
				Err(out.err).
				Msg("search strategy failed, continuing without its results")
			continue
		}
		if d.metrics != nil {
			d.metrics.StrategyCandidates.WithLabelValues(out.strategy).Observe(float64(len(out.candidates)))
		}
		all = append(all, out.candidates...)
	}

	unique := aggregate(all)
	if len(unique) == 0 {
		return EmptyResult()
	}

	// DuplicateCount reflects the pre-truncation unique count.
	count := len(unique)
	if limit := d.cfg.MaxCandidates; limit > 0 && len(unique) > limit {
		unique = unique[:limit]
	}

	flagged := make([]string, len(unique))
	for i, c := range unique {
		flagged[i] = c.Key
	}

	d.logger.Info().
		Str("target_key", item.Key).
		Int("duplicate_count", count).
		Int("returned", len(unique)).
		Msg("duplicate candidates found")
	if d.metrics != nil {
		d.metrics.DuplicatesFound.Inc()
	}

	return Result{
		HasDuplicates:  true,
		DuplicateCount: count,
		Candidates:     unique,
		FlaggedKeys:    flagged,
	}
}
