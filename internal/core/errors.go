package core

import "errors"

var (
	// ErrInvalidURL is returned when a URL cannot be normalized
	ErrInvalidURL = errors.New("invalid url")
	// ErrSourceFailure marks a per-source failure; it never leaves the orchestrator
	ErrSourceFailure = errors.New("source failure")
	// ErrFeatureSchemaMismatch is returned when features and model schema disagree
	ErrFeatureSchemaMismatch = errors.New("feature schema mismatch")
	// ErrModelNotFound is returned when the model artifact is missing
	ErrModelNotFound = errors.New("model not found")
	// ErrModelLoadError is returned when the model artifact is malformed
	ErrModelLoadError = errors.New("model load error")
)
