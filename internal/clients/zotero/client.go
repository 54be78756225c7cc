// Package zotero provides an HTTP adapter to the Zotero API that serves
// as the item repository for duplicate detection.
//
// The adapter uses the generic everything-search endpoint for recall and
// then applies the exact-field or contains predicate client-side, so the
// matching engine sees precise field semantics regardless of how the
// library indexes its items.
package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/clients"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/identifier"
)

const (
	// DefaultBaseURL is the local Zotero API endpoint exposed by a
	// running Zotero client.
	DefaultBaseURL = "http://127.0.0.1:23119/api"

	// DefaultUserID is the user path segment for the local API.
	DefaultUserID = "0"

	// DefaultRateLimit is the default requests per second against the
	// local API.
	DefaultRateLimit = 20.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 20

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// searchLimit caps how many items one search request returns.
	searchLimit = 50
)

// Config holds configuration for the Zotero client.
type Config struct {
	// BaseURL is the Zotero API base URL. Defaults to the local API.
	BaseURL string

	// UserID is the user path segment. Defaults to "0" (local API).
	UserID string

	// APIKey is the Zotero API key. Not needed for the local API.
	APIKey string

	// Timeout is the request timeout. Defaults to 15 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to 20.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed. Defaults to 20.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserID == "" {
		c.UserID = DefaultUserID
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

// Client talks to the Zotero API. Safe for concurrent use.
type Client struct {
	config     Config
	httpClient *clients.HTTPClient
	logger     zerolog.Logger
}

// New creates a new Zotero client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	httpClient := clients.NewHTTPClient(clients.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "CitationLinker/1.0",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "zotero-client").Logger(),
	}
}

// NewWithHTTPClient creates a Zotero client with a custom HTTP client.
// Useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *clients.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "zotero-client").Logger(),
	}
}

// FindByExactField returns the items whose given field equals value,
// excluding the listed item types.
func (c *Client) FindByExactField(ctx context.Context, field domain.SearchField, value string, excludeTypes []domain.ItemType) ([]domain.Item, error) {
	items, err := c.search(ctx, value)
	if err != nil {
		return nil, err
	}
	return filter(items, excludeTypes, func(item domain.Item) bool {
		return fieldEqual(field, item.FieldValue(field), value)
	}), nil
}

// fieldEqual compares a stored field value against a search value. DOI
// fields are normalized on both sides so a record storing the resolver
// URL form still matches the bare DOI.
func fieldEqual(field domain.SearchField, stored, want string) bool {
	if field == domain.SearchFieldDOI {
		if ns, ok := identifier.NormalizeDOI(stored); ok {
			stored = ns
		}
		if nw, ok := identifier.NormalizeDOI(want); ok {
			want = nw
		}
	}
	return strings.EqualFold(strings.TrimSpace(stored), strings.TrimSpace(want))
}

// FindByContains returns the items whose given field contains substring
// (case-insensitive), excluding the listed item types.
func (c *Client) FindByContains(ctx context.Context, field domain.SearchField, substring string, excludeTypes []domain.ItemType) ([]domain.Item, error) {
	items, err := c.search(ctx, substring)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(substring)
	return filter(items, excludeTypes, func(item domain.Item) bool {
		return strings.Contains(strings.ToLower(item.FieldValue(field)), lower)
	}), nil
}

// search runs an everything-mode query against the items endpoint.
func (c *Client) search(ctx context.Context, query string) ([]domain.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	searchURL := fmt.Sprintf("%s/users/%s/items?q=%s&qmode=everything&limit=%d",
		c.config.BaseURL, url.PathEscape(c.config.UserID), url.QueryEscape(query), searchLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("Zotero-API-Key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError("Zotero", resp.StatusCode, string(body), nil)
	}

	var envelopes []itemEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}

	items := make([]domain.Item, 0, len(envelopes))
	for _, env := range envelopes {
		item := env.Data
		if item.Key == "" {
			item.Key = env.Key
		}
		items = append(items, item)
	}
	return items, nil
}

// itemEnvelope is the wire shape of one item in an API response.
type itemEnvelope struct {
	Key  string      `json:"key"`
	Data domain.Item `json:"data"`
}

// filter keeps items that pass the predicate and are not of an excluded
// type.
func filter(items []domain.Item, excludeTypes []domain.ItemType, keep func(domain.Item) bool) []domain.Item {
	var out []domain.Item
	for _, item := range items {
		if excluded(item.ItemType, excludeTypes) {
			continue
		}
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func excluded(t domain.ItemType, excludeTypes []domain.ItemType) bool {
	for _, e := range excludeTypes {
		if t == e {
			return true
		}
	}
	return false
}
