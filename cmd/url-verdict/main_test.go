package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/url-verdict/internal/classifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReloadModelWithoutState(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "models", "v2.0.0", "model.yaml"))
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "v2.0.0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v2.0.0", "model.yaml"), data, 0o644))

	registry := classifier.NewRegistry(dir, "v2.0.0", zap.NewNop())
	require.NoError(t, reloadModel(registry, zap.NewNop()))

	version, err := registry.ActiveVersion()
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", version)

	_, err = os.Stat(filepath.Join(dir, "state.json"))
	assert.True(t, os.IsNotExist(err))
}
