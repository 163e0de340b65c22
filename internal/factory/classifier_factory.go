package factory

import (
	"github.com/mikey/url-verdict/internal/classifier"
	"github.com/mikey/url-verdict/internal/config"
	"go.uber.org/zap"
)

// ClassifierFactory creates the model registry and the classifier on top of it
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateRegistry creates a model registry over the configured models directory
func (f *ClassifierFactory) CreateRegistry() *classifier.Registry {
	c := f.cfg.GetClassifier()
	return classifier.NewRegistry(c.ModelsDir, c.ModelVersion, f.logger)
}

// CreateClassifier creates a classifier bound to registry
func (f *ClassifierFactory) CreateClassifier(registry *classifier.Registry) *classifier.Classifier {
	c := f.cfg.GetClassifier()
	policy := classifier.Policy{
		TopK:                c.TopK,
		LowConfidenceCutoff: c.LowConfidenceCutoff,
	}
	return classifier.NewClassifier(registry, policy, f.logger)
}
