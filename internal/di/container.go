package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/url-verdict/internal/adapters/cache"
	"github.com/mikey/url-verdict/internal/allowlist"
	"github.com/mikey/url-verdict/internal/classifier"
	"github.com/mikey/url-verdict/internal/config"
	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/enrichment"
	"github.com/mikey/url-verdict/internal/factory"
	"github.com/mikey/url-verdict/internal/features"
	"github.com/mikey/url-verdict/internal/logging"
	"github.com/mikey/url-verdict/internal/ports"
	"github.com/mikey/url-verdict/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register link filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.LinkFilter, error) {
		return f.CreateLinkFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// providePipeline registers everything between the configuration and the
// classifier service. The container must already provide *config.Config and
// *zap.Logger.
func providePipeline(container *dig.Container) error {
	// Register factories
	for _, constructor := range []any{
		factory.NewCacheFactory,
		factory.NewSourceFactory,
		factory.NewClassifierFactory,
		factory.NewFilterFactory,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register cache
	if err := container.Provide(func(f *factory.CacheFactory) (cache.Store, error) {
		return f.CreateCache()
	}); err != nil {
		return err
	}

	// Register source adapters
	if err := container.Provide(func(f *factory.SourceFactory) ([]core.SourceAdapter, error) {
		return f.CreateSourceAdapters()
	}); err != nil {
		return err
	}

	// Register enrichment settings
	if err := container.Provide(func(cfg *config.Config, f *factory.SourceFactory) (enrichment.Config, error) {
		e, err := cfg.GetEnrichment()
		if err != nil {
			return enrichment.Config{}, err
		}
		ttls, err := f.TTLs()
		if err != nil {
			return enrichment.Config{}, err
		}
		return enrichment.Config{
			Deadline:     e.Deadline,
			RetryBackoff: e.RetryBackoff,
			MaxRetries:   e.MaxRetries,
			TTLs:         ttls,
		}, nil
	}); err != nil {
		return err
	}

	// Register enrichment orchestrator
	if err := container.Provide(func(
		adapters []core.SourceAdapter,
		store cache.Store,
		cfg enrichment.Config,
		logger *zap.Logger,
	) core.Enricher {
		return enrichment.NewOrchestrator(adapters, store, cfg, logger)
	}); err != nil {
		return err
	}

	// Register feature assembler
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.FeatureAssembler {
		return features.NewAssembler(cfg.GetFeatures().HighRiskCountries, logger)
	}); err != nil {
		return err
	}

	// Register model registry and classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) *classifier.Registry {
		return f.CreateRegistry()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ClassifierFactory, registry *classifier.Registry) core.ModelProvider {
		return f.CreateClassifier(registry)
	}); err != nil {
		return err
	}

	// Register allowlist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.Allowlist {
		return allowlist.NewChecker(cfg.GetAllowlist(), logger)
	}); err != nil {
		return err
	}

	// Register classifier service
	if err := container.Provide(core.NewURLClassifierService); err != nil {
		return err
	}
	if err := container.Provide(func(s *core.URLClassifierService) ports.URLClassifier {
		return s
	}); err != nil {
		return err
	}

	return nil
}
