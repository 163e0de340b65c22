package virustotal

import (
	"net/http"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/sources"
	"go.uber.org/zap"
)

// Factory creates reputation adapters backed by VirusTotal
type Factory struct {
	apiKey   string
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewFactory creates a new factory for VirusTotal adapters
func NewFactory(apiKey string, endpoint string, timeout time.Duration, logger *zap.Logger) *Factory {
	return &Factory{
		apiKey:   apiKey,
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger,
	}
}

// CreateSourceAdapter creates a new VirusTotal adapter
func (f *Factory) CreateSourceAdapter() (core.SourceAdapter, error) {
	client := NewVirusTotalClient(f.endpoint, f.apiKey, &http.Client{}, f.logger)
	return sources.NewAdapter(core.SourceVirusTotal, client, f.timeout, sources.CanonicalKey, f.logger), nil
}
