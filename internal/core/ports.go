package core

import (
	"context"
	"time"
)

// Cache is an expiring store keyed by (source kind, lookup key)
type Cache interface {
	// Get returns a live entry; expired entries are never returned
	Get(ctx context.Context, kind SourceKind, key string) (SourcePayload, bool)

	// Put stores a value, replacing any previous entry for the same key
	Put(ctx context.Context, kind SourceKind, key string, value SourcePayload, ttl time.Duration)

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// SourceAdapter wraps one external enrichment source
type SourceAdapter interface {
	// Kind returns the source kind used for cache namespacing and TTL lookup
	Kind() SourceKind

	// LookupKey derives the adapter-specific lookup key for a URL
	LookupKey(u NormalizedURL) string

	// Timeout returns the per-call timeout
	Timeout() time.Duration

	// Fetch performs one lookup. It never panics and never returns an
	// error outside the SourceResult.
	Fetch(ctx context.Context, u NormalizedURL) SourceResult
}

// Enricher produces an enrichment aggregate for a URL
type Enricher interface {
	Enrich(ctx context.Context, u NormalizedURL) *EnrichmentAggregate
}

// FeatureAssembler builds the feature vector declared by schema
type FeatureAssembler interface {
	Assemble(u NormalizedURL, agg *EnrichmentAggregate, schema FeatureSchema) (FeatureVector, error)
}

// ScoringModel is a loaded model version bound to the scoring policy
type ScoringModel interface {
	Version() string
	Schema() FeatureSchema
	Score(vec FeatureVector) (*Scoring, error)
}

// ModelProvider returns the active scoring model
type ModelProvider interface {
	Active() (ScoringModel, error)
}

// Allowlist decides whether a host is trusted
type Allowlist interface {
	IsAllowed(host string) bool
}
