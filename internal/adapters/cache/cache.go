package cache

import (
	"errors"
	"time"

	"github.com/mikey/url-verdict/internal/core"
)

// DefaultCapacity bounds a cache created with a non-positive capacity
const DefaultCapacity = 10000

// ErrNotFound is returned when a cache entry is not found
var ErrNotFound = errors.New("cache entry not found")

// Stats reports cache counters since creation
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

type options struct {
	now func() time.Time
}

// Option customizes a cache backend
type Option func(*options)

// WithClock replaces the clock used for insertion times and expiry checks
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func normalizeCapacity(capacity int) int {
	if capacity <= 0 {
		return DefaultCapacity
	}
	return capacity
}

// Store is a cache backend with a background cleanup task
type Store interface {
	core.Cache

	// Stop stops background work and releases resources
	Stop()
}
