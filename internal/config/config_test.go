package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	enrichment, err := cfg.GetEnrichment()
	require.NoError(t, err)
	assert.Equal(t, EnrichmentConfig{Deadline: 4 * time.Second, RetryBackoff: 200 * time.Millisecond, MaxRetries: 1}, enrichment)

	wantTTL := map[core.SourceKind]time.Duration{
		core.SourceRegistration: 168 * time.Hour,
		core.SourceDNS:          time.Hour,
		core.SourceSafeBrowsing: 30 * time.Minute,
		core.SourceVirusTotal:   24 * time.Hour,
		core.SourceGeolocation:  720 * time.Hour,
	}
	for kind, ttl := range wantTTL {
		src, err := cfg.GetSource(kind)
		require.NoError(t, err)
		assert.Equal(t, ttl, src.TTL, string(kind))
		assert.Positive(t, src.Timeout, string(kind))
	}

	classifier := cfg.GetClassifier()
	assert.Equal(t, 5, classifier.TopK)
	assert.Equal(t, 0.6, classifier.LowConfidenceCutoff)
	assert.Equal(t, "v2.0.0", classifier.ModelVersion)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, "memory", cache.Type)
	assert.Equal(t, 10000, cache.Capacity)

	assert.Equal(t, "smtp", cfg.GetServer().FilterType)
	assert.Empty(t, cfg.GetAllowlist())
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
enrichment:
  deadline: 1500ms
sources:
  dns:
    ttl: 10m
    nameserver: 9.9.9.9:53
allowlist:
  domains: [example.com, example.org]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	enrichment, err := cfg.GetEnrichment()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, enrichment.Deadline)
	assert.Equal(t, 1, enrichment.MaxRetries)

	dns, err := cfg.GetSource(core.SourceDNS)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, dns.TTL)
	assert.Equal(t, "9.9.9.9:53", dns.Nameserver)

	assert.Equal(t, []string{"example.com", "example.org"}, cfg.GetAllowlist())
}

func TestInvalidDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("sources.geolocation.ttl", "forever")

	_, err := cfg.GetSource(core.SourceGeolocation)
	assert.Error(t, err)
}
