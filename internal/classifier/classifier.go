package classifier

import (
	"fmt"
	"math"
	"sort"

	"github.com/mikey/url-verdict/internal/core"
	"go.uber.org/zap"
)

// Policy defaults
const (
	DefaultTopK                = 5
	DefaultLowConfidenceCutoff = 0.6
	decisionThreshold          = 0.5
)

// Policy turns a probability into a verdict
type Policy struct {
	// TopK is the number of feature contributions reported
	TopK int
	// LowConfidenceCutoff demotes verdicts below this confidence to
	// suspicious. Zero disables demotion; a negative value selects the default.
	LowConfidenceCutoff float64
}

func (p Policy) withDefaults() Policy {
	if p.TopK <= 0 {
		p.TopK = DefaultTopK
	}
	if p.LowConfidenceCutoff < 0 {
		p.LowConfidenceCutoff = DefaultLowConfidenceCutoff
	}
	return p
}

// Classifier binds the registry's active artifact to a scoring policy
type Classifier struct {
	registry *Registry
	policy   Policy
	logger   *zap.Logger
}

// NewClassifier creates a new classifier
func NewClassifier(registry *Registry, policy Policy, logger *zap.Logger) *Classifier {
	return &Classifier{
		registry: registry,
		policy:   policy.withDefaults(),
		logger:   logger,
	}
}

// Active returns a snapshot of the active model. The snapshot keeps scoring
// with the same artifact even if another version is activated meanwhile.
func (c *Classifier) Active() (core.ScoringModel, error) {
	artifact, err := c.registry.Active()
	if err != nil {
		return nil, err
	}
	return NewModel(artifact, c.policy), nil
}

// Model is a loaded artifact plus policy
type Model struct {
	artifact *Artifact
	schema   core.FeatureSchema
	policy   Policy
}

// NewModel creates a scoring model from an artifact
func NewModel(artifact *Artifact, policy Policy) *Model {
	return &Model{
		artifact: artifact,
		schema:   artifact.Schema(),
		policy:   policy.withDefaults(),
	}
}

// Version returns the model version
func (m *Model) Version() string {
	return m.artifact.Version
}

// Schema returns the feature schema the model expects
func (m *Model) Schema() core.FeatureSchema {
	return core.FeatureSchema{
		Version: m.schema.Version,
		Names:   append([]string(nil), m.schema.Names...),
	}
}

// Score computes the verdict for a feature vector
func (m *Model) Score(vec core.FeatureVector) (*core.Scoring, error) {
	if err := m.checkVector(vec); err != nil {
		return nil, err
	}

	contributions := make([]core.FeatureContribution, len(m.artifact.Features))
	z := m.artifact.Bias
	for i, f := range m.artifact.Features {
		c := f.Weight * (vec.Values[i] - f.Mean) / f.Scale
		z += c
		contributions[i] = core.FeatureContribution{
			Name:         f.Name,
			Value:        vec.Values[i],
			Contribution: c,
		}
	}

	p := sigmoid(z)
	raw := core.VerdictBenign
	if p >= decisionThreshold {
		raw = core.VerdictMalicious
	}
	confidence := math.Max(p, 1-p)

	verdict := raw
	if confidence < m.policy.LowConfidenceCutoff {
		verdict = core.VerdictSuspicious
	}

	return &core.Scoring{
		Verdict:       verdict,
		RawLabel:      raw,
		Confidence:    confidence,
		Probability:   p,
		ModelVersion:  m.artifact.Version,
		Contributions: topContributions(contributions, m.policy.TopK),
	}, nil
}

func (m *Model) checkVector(vec core.FeatureVector) error {
	if vec.SchemaVersion != m.schema.Version {
		return fmt.Errorf("%w: vector schema %q, model %s expects %q",
			core.ErrFeatureSchemaMismatch, vec.SchemaVersion, m.artifact.Version, m.schema.Version)
	}
	if len(vec.Values) != len(m.schema.Names) || len(vec.Names) != len(m.schema.Names) {
		return fmt.Errorf("%w: vector has %d values, model %s expects %d",
			core.ErrFeatureSchemaMismatch, len(vec.Values), m.artifact.Version, len(m.schema.Names))
	}
	for i, name := range m.schema.Names {
		if vec.Names[i] != name {
			return fmt.Errorf("%w: feature %d is %q, model expects %q",
				core.ErrFeatureSchemaMismatch, i, vec.Names[i], name)
		}
	}
	return nil
}

// topContributions returns the k largest contributions by magnitude. Ties
// keep declaration order.
func topContributions(all []core.FeatureContribution, k int) []core.FeatureContribution {
	sorted := append([]core.FeatureContribution(nil), all...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Contribution) > math.Abs(sorted[j].Contribution)
	})
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
