package geoip

import (
	"net/http"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/sources"
	"go.uber.org/zap"
)

// Factory creates geolocation source adapters
type Factory struct {
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewFactory creates a new factory for geolocation adapters
func NewFactory(endpoint string, timeout time.Duration, logger *zap.Logger) *Factory {
	return &Factory{
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger,
	}
}

// CreateSourceAdapter creates a new geolocation adapter
func (f *Factory) CreateSourceAdapter() (core.SourceAdapter, error) {
	client := NewGeoIPClient(f.endpoint, &http.Client{}, f.logger)
	return sources.NewAdapter(core.SourceGeolocation, client, f.timeout, sources.HostKey, f.logger), nil
}
