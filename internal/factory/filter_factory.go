package factory

import (
	"fmt"
	"os"

	"github.com/mikey/url-verdict/internal/adapters/filter"
	"github.com/mikey/url-verdict/internal/config"
	"github.com/mikey/url-verdict/internal/ports"
	"github.com/mikey/url-verdict/internal/utils"
	"go.uber.org/zap"
)

// FilterFactory creates link filters based on configuration
type FilterFactory struct {
	cfg        *config.Config
	logger     *zap.Logger
	classifier ports.URLClassifier
	texts      *utils.TextProcessor
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, classifier ports.URLClassifier, texts *utils.TextProcessor) *FilterFactory {
	return &FilterFactory{
		cfg:        cfg,
		logger:     logger,
		classifier: classifier,
		texts:      texts,
	}
}

// CreateLinkFilter creates a link filter based on the configuration
func (f *FilterFactory) CreateLinkFilter() (ports.LinkFilter, error) {
	serverCfg := f.cfg.GetServer()

	switch serverCfg.FilterType {
	case "smtp", "postfix":
		return filter.NewPostfixFilter(f.classifier, f.texts, serverCfg, f.logger), nil
	case "cli":
		return filter.NewCliFilter(f.classifier, f.texts, os.Stdin, os.Stdout, serverCfg.MaxURLs, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", serverCfg.FilterType)
	}
}
