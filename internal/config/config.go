package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/url-verdict/")
	v.AddConfigPath("$HOME/.url-verdict")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("URL_VERDICT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a configuration from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigFile(path)

	v.AutomaticEnv()
	v.SetEnvPrefix("URL_VERDICT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.filter_type", "smtp")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.postfix_address", "localhost:10026")
	v.SetDefault("server.block_malicious", false)
	v.SetDefault("server.max_urls", 10)
	v.SetDefault("server.headers.verdict", "X-URL-Verdict")
	v.SetDefault("server.headers.confidence", "X-URL-Confidence")
	v.SetDefault("server.headers.reason", "X-URL-Reason")

	// Enrichment defaults
	v.SetDefault("enrichment.deadline", "4s")
	v.SetDefault("enrichment.retry_backoff", "200ms")
	v.SetDefault("enrichment.max_retries", 1)

	// Source defaults
	v.SetDefault("sources.registration.enabled", true)
	v.SetDefault("sources.registration.ttl", "168h")
	v.SetDefault("sources.registration.timeout", "3s")
	v.SetDefault("sources.registration.endpoint", "https://rdap.org/domain/")

	v.SetDefault("sources.dns.enabled", true)
	v.SetDefault("sources.dns.ttl", "1h")
	v.SetDefault("sources.dns.timeout", "1s")
	v.SetDefault("sources.dns.nameserver", "")

	v.SetDefault("sources.safebrowsing.enabled", false)
	v.SetDefault("sources.safebrowsing.ttl", "30m")
	v.SetDefault("sources.safebrowsing.timeout", "2s")
	v.SetDefault("sources.safebrowsing.api_key", "")
	v.SetDefault("sources.safebrowsing.endpoint", "")

	v.SetDefault("sources.virustotal.enabled", false)
	v.SetDefault("sources.virustotal.ttl", "24h")
	v.SetDefault("sources.virustotal.timeout", "3s")
	v.SetDefault("sources.virustotal.api_key", "")
	v.SetDefault("sources.virustotal.endpoint", "https://www.virustotal.com/api/v3/urls/")

	v.SetDefault("sources.geolocation.enabled", true)
	v.SetDefault("sources.geolocation.ttl", "720h")
	v.SetDefault("sources.geolocation.timeout", "2s")
	v.SetDefault("sources.geolocation.endpoint", "http://ip-api.com/json/")

	// Classifier defaults
	v.SetDefault("classifier.models_dir", "./models")
	v.SetDefault("classifier.model_version", "v2.0.0")
	v.SetDefault("classifier.top_k", 5)
	v.SetDefault("classifier.low_confidence_cutoff", 0.6)

	// Feature defaults
	v.SetDefault("features.high_risk_countries", []string{"CN", "RU", "KP", "IR", "NG"})

	// Allowlist defaults
	v.SetDefault("allowlist.domains", []string{})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.capacity", 10000)
	v.SetDefault("cache.cleanup_frequency", "5m")
	v.SetDefault("cache.sqlite_path", "/data/url_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/url_verdict")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_paths", []string{"stderr"})
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// Set overrides a configuration value
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
