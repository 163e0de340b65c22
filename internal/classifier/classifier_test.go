package classifier

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSchema = "test-features/v1"

// writeModel writes a model with the given weights (all means 0, scales 1)
func writeModel(t *testing.T, dir, version string, bias float64, weights ...float64) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "version: %s\nschema_version: %s\nbias: %v\nfeatures:\n", version, testSchema, bias)
	for i, w := range weights {
		fmt.Fprintf(&b, "  - {name: f%d, mean: 0, scale: 1, weight: %v}\n", i, w)
	}
	writeFile(t, filepath.Join(dir, version, ArtifactFile), b.String())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func vector(values ...float64) core.FeatureVector {
	names := make([]string, len(values))
	for i := range values {
		names[i] = fmt.Sprintf("f%d", i)
	}
	return core.FeatureVector{SchemaVersion: testSchema, Names: names, Values: values}
}

func newTestClassifier(t *testing.T, dir, version string, policy Policy) *Classifier {
	t.Helper()
	return NewClassifier(NewRegistry(dir, version, zap.NewNop()), policy, zap.NewNop())
}

func TestScoreMalicious(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 2, -1)
	c := newTestClassifier(t, dir, "v1", Policy{})

	model, err := c.Active()
	require.NoError(t, err)
	scoring, err := model.Score(vector(2, 1))
	require.NoError(t, err)

	// z = 2*2 - 1*1 = 3
	assert.Equal(t, core.VerdictMalicious, scoring.Verdict)
	assert.Equal(t, core.VerdictMalicious, scoring.RawLabel)
	assert.InDelta(t, 1/(1+math.Exp(-3)), scoring.Confidence, 1e-12)
	assert.Equal(t, "v1", scoring.ModelVersion)
	require.Len(t, scoring.Contributions, 2)
	assert.Equal(t, "f0", scoring.Contributions[0].Name)
	assert.Equal(t, 4.0, scoring.Contributions[0].Contribution)
	assert.Equal(t, 2.0, scoring.Contributions[0].Value)
}

func TestScoreBenign(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", -1, 1)
	c := newTestClassifier(t, dir, "v1", Policy{})

	model, err := c.Active()
	require.NoError(t, err)
	scoring, err := model.Score(vector(-2))
	require.NoError(t, err)

	assert.Equal(t, core.VerdictBenign, scoring.Verdict)
	assert.InDelta(t, 1-1/(1+math.Exp(3)), scoring.Confidence, 1e-12)
}

func TestLowConfidenceIsSuspicious(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1)
	c := newTestClassifier(t, dir, "v1", Policy{LowConfidenceCutoff: 0.6})

	model, err := c.Active()
	require.NoError(t, err)

	// p = sigmoid(0.2) ~ 0.55
	scoring, err := model.Score(vector(0.2))
	require.NoError(t, err)
	assert.Equal(t, core.VerdictSuspicious, scoring.Verdict)
	assert.Equal(t, core.VerdictMalicious, scoring.RawLabel)
	assert.Less(t, scoring.Confidence, 0.6)

	// p = sigmoid(-0.2) ~ 0.45 is also below the cutoff
	scoring, err = model.Score(vector(-0.2))
	require.NoError(t, err)
	assert.Equal(t, core.VerdictSuspicious, scoring.Verdict)
	assert.Equal(t, core.VerdictBenign, scoring.RawLabel)
}

func TestZeroCutoffDisablesDemotion(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1)

	model, err := newTestClassifier(t, dir, "v1", Policy{LowConfidenceCutoff: 0}).Active()
	require.NoError(t, err)
	scoring, err := model.Score(vector(0.2))
	require.NoError(t, err)
	assert.Equal(t, core.VerdictMalicious, scoring.Verdict)

	model, err = newTestClassifier(t, dir, "v1", Policy{LowConfidenceCutoff: -1}).Active()
	require.NoError(t, err)
	scoring, err = model.Score(vector(0.2))
	require.NoError(t, err)
	assert.Equal(t, core.VerdictSuspicious, scoring.Verdict)
}

func TestDecisionBoundaryIsMalicious(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1)
	c := newTestClassifier(t, dir, "v1", Policy{LowConfidenceCutoff: 0.4})

	model, err := c.Active()
	require.NoError(t, err)
	scoring, err := model.Score(vector(0))
	require.NoError(t, err)

	assert.Equal(t, 0.5, scoring.Probability)
	assert.Equal(t, core.VerdictMalicious, scoring.RawLabel)
	assert.Equal(t, 0.5, scoring.Confidence)
}

func TestTopKTieBreaksByDeclarationOrder(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1, -1, 1, 3, 0.5)
	c := newTestClassifier(t, dir, "v1", Policy{TopK: 3})

	model, err := c.Active()
	require.NoError(t, err)
	scoring, err := model.Score(vector(1, 1, 1, 1, 1))
	require.NoError(t, err)

	// |contributions| = 1, 1, 1, 3, 0.5
	var names []string
	for _, fc := range scoring.Contributions {
		names = append(names, fc.Name)
	}
	assert.Equal(t, []string{"f3", "f0", "f1"}, names)
}

func TestScoreSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1, 1)
	c := newTestClassifier(t, dir, "v1", Policy{})

	model, err := c.Active()
	require.NoError(t, err)

	short := vector(1)
	wrongSchema := vector(1, 1)
	wrongSchema.SchemaVersion = "other/v1"
	renamed := vector(1, 1)
	renamed.Names[1] = "g1"

	for name, vec := range map[string]core.FeatureVector{
		"length": short,
		"schema": wrongSchema,
		"names":  renamed,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := model.Score(vec)
			assert.ErrorIs(t, err, core.ErrFeatureSchemaMismatch)
		})
	}
}

func TestModelNotFound(t *testing.T) {
	c := newTestClassifier(t, t.TempDir(), "v9", Policy{})

	_, err := c.Active()
	assert.ErrorIs(t, err, core.ErrModelNotFound)
}

func TestModelLoadErrors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "version: v1\nfeatures: [",
		"no features":     "version: v1\nschema_version: s\nfeatures: []\n",
		"zero scale":      "version: v1\nschema_version: s\nfeatures:\n  - {name: a, mean: 0, scale: 0, weight: 1}\n",
		"no schema":       "version: v1\nfeatures:\n  - {name: a, mean: 0, scale: 1, weight: 1}\n",
		"duplicate":       "version: v1\nschema_version: s\nfeatures:\n  - {name: a, scale: 1}\n  - {name: a, scale: 1}\n",
		"version differs": "version: v2\nschema_version: s\nfeatures:\n  - {name: a, scale: 1}\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "v1", ArtifactFile), content)

			_, err := newTestClassifier(t, dir, "v1", Policy{}).Active()
			assert.ErrorIs(t, err, core.ErrModelLoadError)
		})
	}
}

func TestInvalidVersionName(t *testing.T) {
	_, err := NewRegistry(t.TempDir(), "", zap.NewNop()).Load("../etc")
	assert.ErrorIs(t, err, core.ErrModelNotFound)
}

func TestNoVersionConfigured(t *testing.T) {
	_, err := NewRegistry(t.TempDir(), "", zap.NewNop()).Active()
	assert.ErrorIs(t, err, core.ErrModelNotFound)
}

func TestActivateSwitchesAndPersists(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1)
	writeModel(t, dir, "v2", 0, -1)

	registry := NewRegistry(dir, "v1", zap.NewNop())
	c := NewClassifier(registry, Policy{}, zap.NewNop())

	before, err := c.Active()
	require.NoError(t, err)
	assert.Equal(t, "v1", before.Version())

	require.NoError(t, registry.Activate("v2"))

	after, err := c.Active()
	require.NoError(t, err)
	assert.Equal(t, "v2", after.Version())

	// A snapshot taken before activation keeps scoring with its own artifact
	scoring, err := before.Score(vector(3))
	require.NoError(t, err)
	assert.Equal(t, "v1", scoring.ModelVersion)
	assert.Equal(t, core.VerdictMalicious, scoring.Verdict)

	state, err := registry.State()
	require.NoError(t, err)
	assert.Equal(t, State{CurrentVersion: "v2", PreviousVersion: "v1"}, state)

	// A fresh registry picks the activated version over its default
	restarted := NewRegistry(dir, "v1", zap.NewNop())
	version, err := restarted.ActiveVersion()
	require.NoError(t, err)
	assert.Equal(t, "v2", version)
}

func TestActivateRereadsArtifact(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1)
	registry := NewRegistry(dir, "v1", zap.NewNop())

	first, err := registry.Active()
	require.NoError(t, err)
	assert.Equal(t, 1.0, first.Features[0].Weight)

	// Without activation the cached artifact is served
	writeModel(t, dir, "v1", 0, 5)
	cached, err := registry.Active()
	require.NoError(t, err)
	assert.Equal(t, 1.0, cached.Features[0].Weight)

	require.NoError(t, registry.Activate("v1"))
	fresh, err := registry.Active()
	require.NoError(t, err)
	assert.Equal(t, 5.0, fresh.Features[0].Weight)
}

func TestReloadWithoutState(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1)
	registry := NewRegistry(dir, "v1", zap.NewNop())

	_, err := registry.Active()
	require.NoError(t, err)

	writeModel(t, dir, "v1", 0, 5)
	version, err := registry.Reload()
	require.NoError(t, err)
	assert.Equal(t, "v1", version)

	artifact, err := registry.Active()
	require.NoError(t, err)
	assert.Equal(t, 5.0, artifact.Features[0].Weight)

	_, err = registry.State()
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestReloadPicksUpActivationFromAnotherProcess(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1)
	writeModel(t, dir, "v2", 0, -1)
	daemon := NewRegistry(dir, "v1", zap.NewNop())

	_, err := daemon.Active()
	require.NoError(t, err)

	require.NoError(t, NewRegistry(dir, "v1", zap.NewNop()).Activate("v2"))

	version, err := daemon.Reload()
	require.NoError(t, err)
	assert.Equal(t, "v2", version)

	artifact, err := daemon.Active()
	require.NoError(t, err)
	assert.Equal(t, "v2", artifact.Version)
}

func TestReloadBrokenVersionKeepsCurrent(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1)
	registry := NewRegistry(dir, "v1", zap.NewNop())

	_, err := registry.Active()
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "v1", ArtifactFile), "features: [")
	_, err = registry.Reload()
	assert.ErrorIs(t, err, core.ErrModelLoadError)

	artifact, err := registry.Active()
	require.NoError(t, err)
	assert.Equal(t, 1.0, artifact.Features[0].Weight)
}

func TestActivateBrokenVersionKeepsCurrent(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1)
	writeFile(t, filepath.Join(dir, "v2", ArtifactFile), "features: [")
	registry := NewRegistry(dir, "v1", zap.NewNop())

	err := registry.Activate("v2")
	assert.ErrorIs(t, err, core.ErrModelLoadError)

	version, err := registry.ActiveVersion()
	require.NoError(t, err)
	assert.Equal(t, "v1", version)

	_, err = registry.State()
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRollback(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "v1", 0, 1)
	writeModel(t, dir, "v2", 0, 1)
	registry := NewRegistry(dir, "v1", zap.NewNop())

	require.NoError(t, registry.Activate("v2"))
	require.NoError(t, registry.Rollback())

	version, err := registry.ActiveVersion()
	require.NoError(t, err)
	assert.Equal(t, "v1", version)
}

func TestBundledModelLoads(t *testing.T) {
	registry := NewRegistry(filepath.Join("..", "..", "models"), "v2.0.0", zap.NewNop())

	artifact, err := registry.Active()
	require.NoError(t, err)
	assert.Equal(t, "url-features/v2", artifact.SchemaVersion)
	assert.Len(t, artifact.Features, 22)
}
