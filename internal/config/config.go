// Package config provides configuration management for the citation
// linker service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the citation linker service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Matching contains duplicate detection settings.
	Matching MatchingConfig `mapstructure:"matching"`
	// Disambiguation contains DOI disambiguation settings.
	Disambiguation DisambiguationConfig `mapstructure:"disambiguation"`
	// CrossRef contains CrossRef API client settings.
	CrossRef CrossRefConfig `mapstructure:"crossref"`
	// Zotero contains Zotero item repository settings.
	Zotero ZoteroConfig `mapstructure:"zotero"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RequestTimeout bounds one duplicate-detection or disambiguation
	// pipeline as a whole.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// MatchingConfig holds duplicate detection settings.
type MatchingConfig struct {
	// TitleWeight is the title factor weight in combined similarity.
	TitleWeight float64 `mapstructure:"title_weight"`
	// AuthorWeight is the author factor weight in combined similarity.
	AuthorWeight float64 `mapstructure:"author_weight"`
	// YearWeight is the publication year factor weight.
	YearWeight float64 `mapstructure:"year_weight"`
	// MinTitleSimilarity is the combined-score floor (0-100) for fuzzy
	// candidates.
	MinTitleSimilarity int `mapstructure:"min_title_similarity"`
	// MaxCandidates caps the candidate list in a detection result.
	MaxCandidates int `mapstructure:"max_candidates"`
}

// DisambiguationConfig holds DOI disambiguation settings.
type DisambiguationConfig struct {
	// MaxCandidates caps how many DOIs are considered per call.
	MaxCandidates int `mapstructure:"max_candidates"`
	// TitleSimilarityWeight weighs the title factor in the final score.
	TitleSimilarityWeight float64 `mapstructure:"title_similarity_weight"`
	// URLPriorityWeight weighs the URL factor in the final score.
	URLPriorityWeight float64 `mapstructure:"url_priority_weight"`
	// ContentPositionWeight weighs the in-page position factor.
	ContentPositionWeight float64 `mapstructure:"content_position_weight"`
	// MinimumConfidenceScore drops results scoring below it.
	MinimumConfidenceScore int `mapstructure:"minimum_confidence_score"`
}

// CrossRefConfig holds CrossRef API client settings.
type CrossRefConfig struct {
	// BaseURL is the CrossRef REST API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Email is included in requests for CrossRef's polite pool.
	Email string `mapstructure:"email"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the rate limiter burst size.
	BurstSize int `mapstructure:"burst_size"`
}

// ZoteroConfig holds Zotero item repository settings.
type ZoteroConfig struct {
	// BaseURL is the Zotero API base URL. The default targets the
	// local connector endpoint.
	BaseURL string `mapstructure:"base_url"`
	// UserID is the Zotero user whose library is searched.
	UserID string `mapstructure:"user_id"`
	// APIKey is the Zotero API key (loaded from CITELINK_ZOTERO_API_KEY).
	APIKey string `mapstructure:"-"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the rate limiter burst size.
	BurstSize int `mapstructure:"burst_size"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CITELINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/citation-linker")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets are loaded exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	cfg.Zotero.APIKey = os.Getenv("CITELINK_ZOTERO_API_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "60s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Matching defaults
	v.SetDefault("matching.title_weight", 0.6)
	v.SetDefault("matching.author_weight", 0.25)
	v.SetDefault("matching.year_weight", 0.15)
	v.SetDefault("matching.min_title_similarity", 70)
	v.SetDefault("matching.max_candidates", 10)

	// Disambiguation defaults
	v.SetDefault("disambiguation.max_candidates", 5)
	v.SetDefault("disambiguation.title_similarity_weight", 0.4)
	v.SetDefault("disambiguation.url_priority_weight", 0.4)
	v.SetDefault("disambiguation.content_position_weight", 0.2)
	v.SetDefault("disambiguation.minimum_confidence_score", 30)

	// CrossRef defaults
	v.SetDefault("crossref.base_url", "https://api.crossref.org")
	v.SetDefault("crossref.email", "")
	v.SetDefault("crossref.timeout", "30s")
	v.SetDefault("crossref.rate_limit", 10.0)
	v.SetDefault("crossref.burst_size", 10)

	// Zotero defaults target the local connector endpoint.
	v.SetDefault("zotero.base_url", "http://127.0.0.1:23119/api")
	v.SetDefault("zotero.user_id", "0")
	v.SetDefault("zotero.timeout", "30s")
	v.SetDefault("zotero.rate_limit", 10.0)
	v.SetDefault("zotero.burst_size", 10)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if err := validateWeights("matching",
		c.Matching.TitleWeight, c.Matching.AuthorWeight, c.Matching.YearWeight); err != nil {
		return err
	}
	if c.Matching.MinTitleSimilarity < 0 || c.Matching.MinTitleSimilarity > 100 {
		return fmt.Errorf("matching min_title_similarity must be in [0,100], got %d", c.Matching.MinTitleSimilarity)
	}
	if c.Matching.MaxCandidates <= 0 {
		return fmt.Errorf("matching max_candidates must be positive")
	}

	if err := validateWeights("disambiguation",
		c.Disambiguation.TitleSimilarityWeight,
		c.Disambiguation.URLPriorityWeight,
		c.Disambiguation.ContentPositionWeight); err != nil {
		return err
	}
	if c.Disambiguation.MaxCandidates <= 0 {
		return fmt.Errorf("disambiguation max_candidates must be positive")
	}
	if c.Disambiguation.MinimumConfidenceScore < 0 || c.Disambiguation.MinimumConfidenceScore > 100 {
		return fmt.Errorf("disambiguation minimum_confidence_score must be in [0,100], got %d",
			c.Disambiguation.MinimumConfidenceScore)
	}

	if c.CrossRef.BaseURL == "" {
		return fmt.Errorf("crossref base_url is required")
	}
	if c.CrossRef.RateLimit <= 0 {
		return fmt.Errorf("crossref rate_limit must be positive")
	}
	if c.Zotero.BaseURL == "" {
		return fmt.Errorf("zotero base_url is required")
	}
	if c.Zotero.RateLimit <= 0 {
		return fmt.Errorf("zotero rate_limit must be positive")
	}

	return nil
}

// validateWeights checks that a weight set is non-negative and sums to 1.
func validateWeights(section string, weights ...float64) error {
	var sum float64
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("%s weights must be non-negative", section)
		}
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("%s weights must sum to 1.0, got %.3f", section, sum)
	}
	return nil
}
