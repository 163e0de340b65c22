package resolver

import (
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/sources"
	"go.uber.org/zap"
)

// Factory creates DNS source adapters
type Factory struct {
	nameserver string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewFactory creates a new factory for DNS adapters
func NewFactory(nameserver string, timeout time.Duration, logger *zap.Logger) *Factory {
	return &Factory{
		nameserver: nameserver,
		timeout:    timeout,
		logger:     logger,
	}
}

// CreateSourceAdapter creates a new DNS adapter
func (f *Factory) CreateSourceAdapter() (core.SourceAdapter, error) {
	client := NewDNSClient(f.nameserver, f.timeout, f.logger)
	return sources.NewAdapter(core.SourceDNS, client, f.timeout, sources.HostKey, f.logger), nil
}
