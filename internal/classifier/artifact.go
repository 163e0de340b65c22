package classifier

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/mikey/url-verdict/internal/core"
	"gopkg.in/yaml.v3"
)

// ArtifactFile is the file name of a model inside its version directory
const ArtifactFile = "model.yaml"

// FeatureWeight holds the standardization and weight for one feature
type FeatureWeight struct {
	Name   string  `yaml:"name"`
	Mean   float64 `yaml:"mean"`
	Scale  float64 `yaml:"scale"`
	Weight float64 `yaml:"weight"`
}

// Artifact is a trained logistic model as written by the training job
type Artifact struct {
	Version       string          `yaml:"version"`
	SchemaVersion string          `yaml:"schema_version"`
	Description   string          `yaml:"description,omitempty"`
	TrainedAt     string          `yaml:"trained_at,omitempty"`
	Bias          float64         `yaml:"bias"`
	Features      []FeatureWeight `yaml:"features"`
}

// Schema returns the feature schema the artifact was trained on
func (a *Artifact) Schema() core.FeatureSchema {
	names := make([]string, len(a.Features))
	for i, f := range a.Features {
		names[i] = f.Name
	}
	return core.FeatureSchema{Version: a.SchemaVersion, Names: names}
}

// LoadArtifact reads and validates a model file. version is the directory
// the file was found in and must agree with the version inside the file.
func LoadArtifact(path, version string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", core.ErrModelLoadError, path, err)
	}

	var artifact Artifact
	if err := yaml.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", core.ErrModelLoadError, path, err)
	}

	if artifact.Version == "" {
		artifact.Version = version
	}
	if err := artifact.validate(version); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrModelLoadError, path, err)
	}

	return &artifact, nil
}

func (a *Artifact) validate(version string) error {
	if a.Version != version {
		return fmt.Errorf("artifact declares version %q but lives under %q", a.Version, version)
	}
	if a.SchemaVersion == "" {
		return errors.New("schema_version is required")
	}
	if len(a.Features) == 0 {
		return errors.New("no features declared")
	}
	if !finite(a.Bias) {
		return errors.New("bias is not finite")
	}

	seen := make(map[string]bool, len(a.Features))
	for i, f := range a.Features {
		if f.Name == "" {
			return fmt.Errorf("feature %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("feature %q declared twice", f.Name)
		}
		seen[f.Name] = true

		if f.Scale <= 0 || !finite(f.Scale) {
			return fmt.Errorf("feature %q has invalid scale %v", f.Name, f.Scale)
		}
		if !finite(f.Mean) || !finite(f.Weight) {
			return fmt.Errorf("feature %q has non-finite parameters", f.Name)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
