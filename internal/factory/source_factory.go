package factory

import (
	"fmt"
	"time"

	"github.com/mikey/url-verdict/internal/adapters/geoip"
	"github.com/mikey/url-verdict/internal/adapters/gsb"
	"github.com/mikey/url-verdict/internal/adapters/rdap"
	"github.com/mikey/url-verdict/internal/adapters/resolver"
	"github.com/mikey/url-verdict/internal/adapters/virustotal"
	"github.com/mikey/url-verdict/internal/config"
	"github.com/mikey/url-verdict/internal/core"
	"go.uber.org/zap"
)

// adapterFactory is implemented by each source package's Factory
type adapterFactory interface {
	CreateSourceAdapter() (core.SourceAdapter, error)
}

// SourceFactory creates the enabled source adapters
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSourceAdapters creates an adapter for every enabled source
func (f *SourceFactory) CreateSourceAdapters() ([]core.SourceAdapter, error) {
	var adapters []core.SourceAdapter
	for _, kind := range core.AllSourceKinds {
		src, err := f.cfg.GetSource(kind)
		if err != nil {
			return nil, err
		}
		if !src.Enabled {
			f.logger.Info("Source disabled", zap.String("source", string(kind)))
			continue
		}

		factory, err := f.factoryFor(src)
		if err != nil {
			return nil, err
		}
		adapter, err := factory.CreateSourceAdapter()
		if err != nil {
			return nil, fmt.Errorf("failed to create %s adapter: %w", kind, err)
		}

		f.logger.Info("Source enabled",
			zap.String("source", string(kind)),
			zap.Duration("timeout", src.Timeout),
			zap.Duration("ttl", src.TTL))
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

// TTLs returns the cache TTL of every source
func (f *SourceFactory) TTLs() (map[core.SourceKind]time.Duration, error) {
	ttls := make(map[core.SourceKind]time.Duration, len(core.AllSourceKinds))
	for _, kind := range core.AllSourceKinds {
		src, err := f.cfg.GetSource(kind)
		if err != nil {
			return nil, err
		}
		ttls[kind] = src.TTL
	}
	return ttls, nil
}

func (f *SourceFactory) factoryFor(src config.SourceConfig) (adapterFactory, error) {
	switch src.Kind {
	case core.SourceRegistration:
		return rdap.NewFactory(src.Endpoint, src.Timeout, f.logger), nil
	case core.SourceDNS:
		return resolver.NewFactory(src.Nameserver, src.Timeout, f.logger), nil
	case core.SourceSafeBrowsing:
		if src.APIKey == "" {
			return nil, fmt.Errorf("sources.safebrowsing.api_key is required when the source is enabled")
		}
		return gsb.NewFactory(src.APIKey, src.Endpoint, src.Timeout, f.logger), nil
	case core.SourceVirusTotal:
		if src.APIKey == "" {
			return nil, fmt.Errorf("sources.virustotal.api_key is required when the source is enabled")
		}
		return virustotal.NewFactory(src.APIKey, src.Endpoint, src.Timeout, f.logger), nil
	case core.SourceGeolocation:
		return geoip.NewFactory(src.Endpoint, src.Timeout, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported source: %s", src.Kind)
	}
}
