package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"go.uber.org/zap"
)

// Errors returned by clients. The adapter maps them onto failure kinds.
var (
	// ErrRateLimited is returned when the provider throttles the caller
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable is returned on transport errors and 5xx responses
	ErrUnavailable = errors.New("source unavailable")
	// ErrMalformed is returned when the response cannot be decoded
	ErrMalformed = errors.New("malformed response")
	// ErrNotFound is returned when the provider has no record for the key
	ErrNotFound = errors.New("no record found")
	// ErrInvalidKey is returned when the lookup key cannot be queried
	ErrInvalidKey = errors.New("invalid lookup key")
)

// DefaultTimeout is used when an adapter is created with a non-positive timeout
const DefaultTimeout = 2 * time.Second

// Client performs the raw lookup against one external source
type Client interface {
	Lookup(ctx context.Context, key string) (core.SourcePayload, error)
}

// ClientFunc adapts a function to the Client interface
type ClientFunc func(ctx context.Context, key string) (core.SourcePayload, error)

// Lookup calls f(ctx, key)
func (f ClientFunc) Lookup(ctx context.Context, key string) (core.SourcePayload, error) {
	return f(ctx, key)
}

// KeyFunc derives a lookup key from a normalized URL
type KeyFunc func(u core.NormalizedURL) string

// Adapter turns a Client into a core.SourceAdapter
type Adapter struct {
	kind    core.SourceKind
	client  Client
	timeout time.Duration
	key     KeyFunc
	logger  *zap.Logger
}

// NewAdapter creates a new adapter. A nil key function falls back to the
// default key for kind.
func NewAdapter(kind core.SourceKind, client Client, timeout time.Duration, key KeyFunc, logger *zap.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if key == nil {
		key = DefaultKeyFunc(kind)
	}
	return &Adapter{
		kind:    kind,
		client:  client,
		timeout: timeout,
		key:     key,
		logger:  logger,
	}
}

// Kind returns the source kind
func (a *Adapter) Kind() core.SourceKind {
	return a.kind
}

// LookupKey derives the lookup key for u
func (a *Adapter) LookupKey(u core.NormalizedURL) string {
	return a.key(u)
}

// Timeout returns the per-call timeout
func (a *Adapter) Timeout() time.Duration {
	return a.timeout
}

type lookupResult struct {
	payload core.SourcePayload
	err     error
}

// Fetch performs a single lookup bounded by the adapter timeout. It returns
// as soon as ctx is done even if the client keeps running; the client's late
// answer is discarded.
func (a *Adapter) Fetch(ctx context.Context, u core.NormalizedURL) core.SourceResult {
	key := a.LookupKey(u)
	if key == "" {
		return core.Failed(core.FailureMalformed, false, fmt.Errorf("%w: empty key for %s", ErrInvalidKey, a.kind))
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resultCh := make(chan lookupResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- lookupResult{err: fmt.Errorf("client panic: %v", r)}
			}
		}()
		payload, err := a.client.Lookup(ctx, key)
		resultCh <- lookupResult{payload: payload, err: err}
	}()

	var res lookupResult
	select {
	case res = <-resultCh:
	case <-ctx.Done():
		res = lookupResult{err: ctx.Err()}
	}

	if res.err != nil {
		result := Classify(res.err)
		a.logger.Debug("Source lookup failed",
			zap.String("source", string(a.kind)),
			zap.String("key", key),
			zap.String("failure", result.Failure.Kind),
			zap.Bool("retriable", result.Failure.Retriable),
			zap.Error(res.err))
		return result
	}

	return core.Success(res.payload)
}

// Classify maps a client error onto a failed SourceResult
func Classify(err error) core.SourceResult {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return core.Failed(core.FailureTimeout, true, err)
	case errors.Is(err, context.Canceled):
		return core.Failed(core.FailureDeadline, false, err)
	case errors.Is(err, ErrRateLimited):
		return core.Failed(core.FailureRateLimited, true, err)
	case errors.Is(err, ErrUnavailable):
		return core.Failed(core.FailureUnavailable, true, err)
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrInvalidKey):
		return core.Failed(core.FailureMalformed, false, err)
	case errors.Is(err, ErrNotFound):
		return core.Failed(core.FailureNotFound, false, err)
	default:
		return core.Failed(core.FailureInternal, false, err)
	}
}
