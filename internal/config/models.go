package config

import (
	"fmt"
	"time"

	"github.com/mikey/url-verdict/internal/core"
)

// ServerConfig represents the inbound filter configuration
type ServerConfig struct {
	FilterType       string
	ListenAddress    string
	PostfixAddress   string
	BlockMalicious   bool
	MaxURLs          int
	VerdictHeader    string
	ConfidenceHeader string
	ReasonHeader     string
}

// EnrichmentConfig represents the fan-out limits
type EnrichmentConfig struct {
	Deadline     time.Duration
	RetryBackoff time.Duration
	MaxRetries   int
}

// SourceConfig represents one external source
type SourceConfig struct {
	Kind       core.SourceKind
	Enabled    bool
	TTL        time.Duration
	Timeout    time.Duration
	Endpoint   string
	APIKey     string
	Nameserver string
}

// ClassifierConfig represents the model registry and scoring policy
type ClassifierConfig struct {
	ModelsDir           string
	ModelVersion        string
	TopK                int
	LowConfidenceCutoff float64
}

// CacheConfig represents the source cache
type CacheConfig struct {
	Type             string
	Capacity         int
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// FeaturesConfig represents feature assembly settings
type FeaturesConfig struct {
	HighRiskCountries []string
}

// GetServer returns the server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:       c.GetString("server.filter_type"),
		ListenAddress:    c.GetString("server.listen_address"),
		PostfixAddress:   c.GetString("server.postfix_address"),
		BlockMalicious:   c.GetBool("server.block_malicious"),
		MaxURLs:          c.GetInt("server.max_urls"),
		VerdictHeader:    c.GetString("server.headers.verdict"),
		ConfidenceHeader: c.GetString("server.headers.confidence"),
		ReasonHeader:     c.GetString("server.headers.reason"),
	}
}

// GetEnrichment returns the enrichment configuration
func (c *Config) GetEnrichment() (EnrichmentConfig, error) {
	deadline, err := c.GetDuration("enrichment.deadline")
	if err != nil {
		return EnrichmentConfig{}, fmt.Errorf("invalid enrichment.deadline: %w", err)
	}
	backoff, err := c.GetDuration("enrichment.retry_backoff")
	if err != nil {
		return EnrichmentConfig{}, fmt.Errorf("invalid enrichment.retry_backoff: %w", err)
	}
	return EnrichmentConfig{
		Deadline:     deadline,
		RetryBackoff: backoff,
		MaxRetries:   c.GetInt("enrichment.max_retries"),
	}, nil
}

// GetSource returns the configuration of one source
func (c *Config) GetSource(kind core.SourceKind) (SourceConfig, error) {
	prefix := "sources." + string(kind) + "."

	ttl, err := c.GetDuration(prefix + "ttl")
	if err != nil {
		return SourceConfig{}, fmt.Errorf("invalid %sttl: %w", prefix, err)
	}
	timeout, err := c.GetDuration(prefix + "timeout")
	if err != nil {
		return SourceConfig{}, fmt.Errorf("invalid %stimeout: %w", prefix, err)
	}

	return SourceConfig{
		Kind:       kind,
		Enabled:    c.GetBool(prefix + "enabled"),
		TTL:        ttl,
		Timeout:    timeout,
		Endpoint:   c.GetString(prefix + "endpoint"),
		APIKey:     c.GetString(prefix + "api_key"),
		Nameserver: c.GetString(prefix + "nameserver"),
	}, nil
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		ModelsDir:           c.GetString("classifier.models_dir"),
		ModelVersion:        c.GetString("classifier.model_version"),
		TopK:                c.GetInt("classifier.top_k"),
		LowConfidenceCutoff: c.GetFloat64("classifier.low_confidence_cutoff"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.cleanup_frequency: %w", err)
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Capacity:         c.GetInt("cache.capacity"),
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}

// GetFeatures returns the feature assembly configuration
func (c *Config) GetFeatures() FeaturesConfig {
	return FeaturesConfig{
		HighRiskCountries: c.GetStringSlice("features.high_risk_countries"),
	}
}

// GetAllowlist returns the trusted domains
func (c *Config) GetAllowlist() []string {
	return c.GetStringSlice("allowlist.domains")
}
