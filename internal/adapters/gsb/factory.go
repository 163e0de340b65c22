package gsb

import (
	"context"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/sources"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Factory creates reputation adapters backed by Google Safe Browsing
type Factory struct {
	apiKey   string
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewFactory creates a new factory for Safe Browsing adapters
func NewFactory(apiKey string, endpoint string, timeout time.Duration, logger *zap.Logger) *Factory {
	return &Factory{
		apiKey:   apiKey,
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger,
	}
}

// CreateSourceAdapter creates a new Safe Browsing adapter
func (f *Factory) CreateSourceAdapter() (core.SourceAdapter, error) {
	var opts []option.ClientOption
	if f.endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.endpoint))
	}

	client, err := NewSafeBrowsingClient(context.Background(), f.apiKey, f.logger, opts...)
	if err != nil {
		return nil, err
	}
	return sources.NewAdapter(core.SourceSafeBrowsing, client, f.timeout, sources.CanonicalKey, f.logger), nil
}
