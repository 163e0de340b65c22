package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrStateNotFound is returned when no model has been activated yet
var ErrStateNotFound = errors.New("model state not found")

// State tracks the active and previous model versions
type State struct {
	CurrentVersion  string `json:"current_version"`
	PreviousVersion string `json:"previous_version,omitempty"`
}

func stateFilePath(modelsDir string) string {
	return filepath.Join(modelsDir, "state.json")
}

// LoadState reads <models_dir>/state.json
func LoadState(modelsDir string) (State, error) {
	data, err := os.ReadFile(stateFilePath(modelsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, ErrStateNotFound
		}
		return State{}, fmt.Errorf("failed to read model state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("failed to decode model state: %w", err)
	}
	state.CurrentVersion = strings.TrimSpace(state.CurrentVersion)
	return state, nil
}

// SaveState writes <models_dir>/state.json atomically
func SaveState(modelsDir string, state State) error {
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create models dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model state: %w", err)
	}

	tmpFile, err := os.CreateTemp(modelsDir, "state.json.tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), stateFilePath(modelsDir)); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
