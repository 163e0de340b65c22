package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/url-verdict/internal/core"
)

// modelsFixture copies the bundled model into a temp models dir under two versions
func modelsFixture(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("..", "..", "models", "v2.0.0", "model.yaml"))
	require.NoError(t, err)

	dir := t.TempDir()
	for _, version := range []string{"v2.0.0", "v2.1.0"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, version), 0o755))
		content := strings.Replace(string(data), "version: v2.0.0", "version: "+version, 1)
		require.NoError(t, os.WriteFile(filepath.Join(dir, version, "model.yaml"), []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestModelActivateAndRollback(t *testing.T) {
	dir := modelsFixture(t)

	out, err := execute(t, "model", "show", "--offline", "--models-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Version:  v2.0.0")
	assert.Contains(t, out, "Schema:   url-features/v2")

	out, err = execute(t, "model", "activate", "v2.1.0", "--offline", "--models-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Active model: v2.1.0")

	out, err = execute(t, "model", "show", "--offline", "--models-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Version:  v2.1.0")
	assert.Contains(t, out, "Previous: v2.0.0")

	out, err = execute(t, "model", "rollback", "--offline", "--models-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Active model: v2.0.0")
}

func TestModelActivateUnknownVersion(t *testing.T) {
	dir := modelsFixture(t)

	_, err := execute(t, "model", "activate", "v9.9.9", "--offline", "--models-dir", dir)
	assert.ErrorIs(t, err, core.ErrModelNotFound)
}

func TestCheckOffline(t *testing.T) {
	dir := modelsFixture(t)

	out, err := execute(t, "check", "--offline", "--models-dir", dir,
		"http://192.168.10.5/secure-login/verify-account.php?id=4821&session=9931")
	require.NoError(t, err)

	var record core.VerdictRecord
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, core.VerdictMalicious, record.Verdict)
	assert.Equal(t, "v2.0.0", record.ModelVersion)
	require.NotNil(t, record.Metadata)
	assert.Equal(t, "cli", record.Metadata.Channel)
}

func TestCheckInvalidURL(t *testing.T) {
	dir := modelsFixture(t)

	_, err := execute(t, "check", "--offline", "--models-dir", dir, "ftp://example.com/file")
	assert.ErrorIs(t, err, core.ErrInvalidURL)
}
