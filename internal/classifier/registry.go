package classifier

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mikey/url-verdict/internal/core"
	"go.uber.org/zap"
)

// Registry resolves model versions to loaded artifacts. Artifacts are read
// lazily and kept until the active version changes.
type Registry struct {
	modelsDir      string
	defaultVersion string
	logger         *zap.Logger

	mu     sync.Mutex
	loaded map[string]*Artifact
	active string
}

// NewRegistry creates a new model registry. defaultVersion is used until a
// version is activated through state.json.
func NewRegistry(modelsDir, defaultVersion string, logger *zap.Logger) *Registry {
	return &Registry{
		modelsDir:      modelsDir,
		defaultVersion: strings.TrimSpace(defaultVersion),
		logger:         logger,
		loaded:         make(map[string]*Artifact),
	}
}

// ActiveVersion returns the version currently in effect
func (r *Registry) ActiveVersion() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeVersionLocked()
}

func (r *Registry) activeVersionLocked() (string, error) {
	if r.active != "" {
		return r.active, nil
	}

	state, err := LoadState(r.modelsDir)
	switch {
	case err == nil && state.CurrentVersion != "":
		r.active = state.CurrentVersion
	case err == nil || errors.Is(err, ErrStateNotFound):
		if r.defaultVersion == "" {
			return "", fmt.Errorf("%w: no model version configured or activated", core.ErrModelNotFound)
		}
		r.active = r.defaultVersion
	default:
		return "", fmt.Errorf("%w: %v", core.ErrModelLoadError, err)
	}
	return r.active, nil
}

// Load returns the artifact for version, reading it on first use
func (r *Registry) Load(version string) (*Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked(version)
}

func (r *Registry) loadLocked(version string) (*Artifact, error) {
	if artifact, ok := r.loaded[version]; ok {
		return artifact, nil
	}

	if version == "" || strings.ContainsAny(version, `/\`) || version == "." || version == ".." {
		return nil, fmt.Errorf("%w: invalid version %q", core.ErrModelNotFound, version)
	}

	path := filepath.Join(r.modelsDir, version, ArtifactFile)
	artifact, err := LoadArtifact(path, version)
	if err != nil {
		return nil, err
	}

	r.loaded[version] = artifact
	r.logger.Info("Loaded model",
		zap.String("version", artifact.Version),
		zap.String("schema", artifact.SchemaVersion),
		zap.Int("features", len(artifact.Features)))
	return artifact, nil
}

// Active returns the artifact for the active version
func (r *Registry) Active() (*Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	version, err := r.activeVersionLocked()
	if err != nil {
		return nil, err
	}
	return r.loadLocked(version)
}

// Activate switches the active version. The artifact is loaded and validated
// before anything changes, so a broken version never becomes active.
func (r *Registry) Activate(version string) error {
	version = strings.TrimSpace(version)

	r.mu.Lock()
	defer r.mu.Unlock()

	previous, err := r.activeVersionLocked()
	if err != nil {
		previous = ""
	}

	// Drop everything cached so the new version is read fresh from disk
	r.loaded = make(map[string]*Artifact)
	if _, err := r.loadLocked(version); err != nil {
		return err
	}

	if previous == version {
		if state, err := LoadState(r.modelsDir); err == nil {
			previous = state.PreviousVersion
		} else {
			previous = ""
		}
	}

	if err := SaveState(r.modelsDir, State{CurrentVersion: version, PreviousVersion: previous}); err != nil {
		return err
	}

	r.active = version
	r.logger.Info("Activated model",
		zap.String("version", version),
		zap.String("previous", previous))
	return nil
}

// Reload drops every cached artifact and resolves the active version again,
// from state.json when present and the default version otherwise. State is
// not written. On failure the previous artifact stays active.
func (r *Registry) Reload() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	active, loaded := r.active, r.loaded
	r.active = ""
	r.loaded = make(map[string]*Artifact)

	version, err := r.activeVersionLocked()
	if err == nil {
		_, err = r.loadLocked(version)
	}
	if err != nil {
		r.active, r.loaded = active, loaded
		return "", err
	}
	return version, nil
}

// Rollback re-activates the previously active version
func (r *Registry) Rollback() error {
	state, err := LoadState(r.modelsDir)
	if err != nil {
		return err
	}
	if state.PreviousVersion == "" {
		return fmt.Errorf("%w: no previous version recorded", core.ErrModelNotFound)
	}
	return r.Activate(state.PreviousVersion)
}

// State returns the persisted activation state
func (r *Registry) State() (State, error) {
	return LoadState(r.modelsDir)
}
