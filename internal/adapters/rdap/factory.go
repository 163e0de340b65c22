package rdap

import (
	"net/http"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/sources"
	"go.uber.org/zap"
)

// Factory creates registration source adapters backed by RDAP
type Factory struct {
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewFactory creates a new factory for RDAP adapters
func NewFactory(endpoint string, timeout time.Duration, logger *zap.Logger) *Factory {
	return &Factory{
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger,
	}
}

// CreateSourceAdapter creates a new registration adapter
func (f *Factory) CreateSourceAdapter() (core.SourceAdapter, error) {
	client := NewRDAPClient(f.endpoint, &http.Client{}, f.logger)
	return sources.NewAdapter(core.SourceRegistration, client, f.timeout, sources.RegistrableDomain, f.logger), nil
}
