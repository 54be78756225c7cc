// Package crossref provides the CrossRef works metadata client used by
// DOI disambiguation.
//
// Fetch outcomes are a closed tagged result: a work was found, the DOI is
// unregistered (a valid negative answer), or the transport failed. A 404
// from the works API is always NotFound, never an error.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/clients"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
)

const (
	// DefaultBaseURL is the CrossRef REST API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default requests per second. CrossRef's
	// polite pool (with a mailto in the User-Agent) tolerates this rate.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the CrossRef client.
type Config struct {
	// BaseURL is the CrossRef API base URL. Defaults to
	// https://api.crossref.org.
	BaseURL string

	// Email is the contact email for the polite pool. Providing one
	// grants more generous rate limits.
	Email string

	// Timeout is the request timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to 10.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed. Defaults to 10.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Work is the subset of a CrossRef work record the matching engine uses.
type Work struct {
	// DOI is the registered DOI of the work.
	DOI string `json:"DOI"`

	// Title is the ordered title list. The primary title comes first.
	Title []string `json:"title"`

	// ContainerTitle is the journal or book series title list.
	ContainerTitle []string `json:"container-title"`

	// Type is the CrossRef work type (journal-article, book, ...).
	Type string `json:"type"`

	// URL is the canonical resolver URL.
	URL string `json:"URL"`
}

// PrimaryTitle returns the first title, or empty when the work is untitled.
func (w *Work) PrimaryTitle() string {
	if len(w.Title) == 0 {
		return ""
	}
	return w.Title[0]
}

// Outcome tags the result of a metadata fetch.
type Outcome int

const (
	// OutcomeFound means the DOI resolved to a work record.
	OutcomeFound Outcome = iota

	// OutcomeNotFound means the registry has no record for the DOI.
	// This is a valid negative result, not a failure.
	OutcomeNotFound

	// OutcomeTransportError means the fetch itself failed.
	OutcomeTransportError
)

// FetchResult is the tagged outcome of one metadata fetch. Work is set
// only when Outcome is OutcomeFound; Err only when OutcomeTransportError.
type FetchResult struct {
	Outcome Outcome
	Work    *Work
	Err     error
}

// Client fetches work metadata from CrossRef. It owns a process-lifetime
// cache keyed by normalized DOI, shared across all disambiguation calls
// for the life of the instance. Concurrent fetches for the same DOI may
// race and issue duplicate requests; the last writer wins, which is safe
// because fetches are idempotent.
type Client struct {
	config     Config
	httpClient *clients.HTTPClient
	logger     zerolog.Logger

	mu     sync.RWMutex
	cache  map[string]FetchResult
	closed bool
}

// New creates a new CrossRef client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	userAgent := "CitationLinker/1.0"
	if cfg.Email != "" {
		userAgent = fmt.Sprintf("CitationLinker/1.0 (mailto:%s)", cfg.Email)
	}

	httpClient := clients.NewHTTPClient(clients.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "crossref-client").Logger(),
		cache:      make(map[string]FetchResult),
	}
}

// NewWithHTTPClient creates a CrossRef client with a custom HTTP client.
// Useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *clients.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "crossref-client").Logger(),
		cache:      make(map[string]FetchResult),
	}
}

// Ready reports whether the client can serve fetches.
func (c *Client) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache != nil && !c.closed
}

// Close tears the client down and clears the metadata cache. Fetch calls
// after Close fail with domain.ErrNotReady.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cache = nil
}

// CacheSize returns the number of cached fetch results.
func (c *Client) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Fetch resolves a normalized DOI to its work metadata. Successful and
// not-found outcomes are cached for the life of the client; transport
// errors are not, so a later call may succeed. The only hard error is
// using a closed client.
func (c *Client) Fetch(ctx context.Context, doi string) (FetchResult, error) {
	c.mu.RLock()
	if c.closed || c.cache == nil {
		c.mu.RUnlock()
		return FetchResult{}, fmt.Errorf("crossref client: %w", domain.ErrNotReady)
	}
	if cached, ok := c.cache[doi]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	result := c.fetchRemote(ctx, doi)

	if result.Outcome != OutcomeTransportError {
		c.mu.Lock()
		if !c.closed {
			c.cache[doi] = result
		}
		c.mu.Unlock()
	}

	return result, nil
}

// fetchRemote performs the actual works API request.
func (c *Client) fetchRemote(ctx context.Context, doi string) FetchResult {
	fetchURL := fmt.Sprintf("%s/works/%s", c.config.BaseURL, url.PathEscape(doi))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return FetchResult{
			Outcome: OutcomeTransportError,
			Err:     fmt.Errorf("creating request: %w", err),
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FetchResult{
			Outcome: OutcomeTransportError,
			Err:     fmt.Errorf("fetching work %s: %w", doi, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug().Str("doi", doi).Msg("doi not registered")
		return FetchResult{Outcome: OutcomeNotFound}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return FetchResult{
			Outcome: OutcomeTransportError,
			Err:     domain.NewExternalAPIError("CrossRef", resp.StatusCode, string(body), nil),
		}
	}

	var envelope struct {
		Message Work `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return FetchResult{
			Outcome: OutcomeTransportError,
			Err:     fmt.Errorf("decoding work %s: %w", doi, err),
		}
	}

	return FetchResult{Outcome: OutcomeFound, Work: &envelope.Message}
}
