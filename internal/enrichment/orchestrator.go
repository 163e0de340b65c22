package enrichment

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mikey/url-verdict/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Defaults applied when the corresponding Config field is not positive
const (
	DefaultDeadline     = 4 * time.Second
	DefaultRetryBackoff = 200 * time.Millisecond
	DefaultTTL          = time.Hour
)

// Config controls the fan-out
type Config struct {
	// Deadline bounds a whole Enrich call
	Deadline time.Duration
	// RetryBackoff is the fixed wait before a retry
	RetryBackoff time.Duration
	// MaxRetries is the number of extra attempts after a retriable failure
	MaxRetries int
	// TTLs holds the cache lifetime per source kind
	TTLs map[core.SourceKind]time.Duration
}

// Orchestrator fans a URL out to every configured source adapter, consulting
// the cache first, and collects the results into one aggregate
type Orchestrator struct {
	adapters []core.SourceAdapter
	cache    core.Cache
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithClock sets the clock used to stamp aggregates
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(adapters []core.SourceAdapter, cache core.Cache, cfg Config, logger *zap.Logger, opts ...Option) *Orchestrator {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	o := &Orchestrator{
		adapters: adapters,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type outcome struct {
	kind   core.SourceKind
	key    string
	result core.SourceResult
}

// Enrich collects one result per adapter. It never fails: sources that error,
// exhaust their retries or miss the deadline are recorded as failures.
func (o *Orchestrator) Enrich(ctx context.Context, u core.NormalizedURL) *core.EnrichmentAggregate {
	agg := core.NewEnrichmentAggregate(o.now())

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Deadline)
	defer cancel()

	outcomes := make(chan outcome, len(o.adapters))
	g, gctx := errgroup.WithContext(ctx)
	pending := make(map[core.SourceKind]bool)

	for _, adapter := range o.adapters {
		kind := adapter.Kind()
		key := adapter.LookupKey(u)

		if payload, ok := o.cache.Get(ctx, kind, key); ok {
			o.logger.Debug("Cache hit",
				zap.String("source", string(kind)),
				zap.String("key", key))
			agg.Record(kind, core.SourceResult{Status: core.StatusSuccess, Payload: payload, Cached: true})
			continue
		}

		pending[kind] = true
		adapter := adapter
		g.Go(func() error {
			outcomes <- outcome{kind: kind, key: key, result: o.fetchWithRetry(gctx, adapter, u)}
			return nil
		})
	}

	// Collect until every source answered or the deadline fired
collect:
	for len(pending) > 0 {
		select {
		case out := <-outcomes:
			if ctx.Err() != nil {
				break collect
			}
			delete(pending, out.kind)
			if out.result.OK() {
				o.cache.Put(ctx, out.kind, out.key, out.result.Payload, o.ttl(out.kind))
			} else {
				o.logger.Warn("Source failed",
					zap.String("source", string(out.kind)),
					zap.String("failure", out.result.Failure.Kind),
					zap.Error(out.result.Failure.Err))
			}
			agg.Record(out.kind, out.result)
		case <-ctx.Done():
			break collect
		}
	}

	// Abandon whatever is still running; adapters return promptly on cancel
	cancel()
	_ = g.Wait()

	for kind := range pending {
		o.logger.Warn("Source missed enrichment deadline",
			zap.String("source", string(kind)),
			zap.Duration("deadline", o.cfg.Deadline))
		agg.Record(kind, core.Failed(core.FailureDeadline, false, context.DeadlineExceeded))
	}

	return agg
}

// fetchWithRetry calls the adapter, retrying retriable failures with a fixed
// backoff for as long as ctx allows
func (o *Orchestrator) fetchWithRetry(ctx context.Context, adapter core.SourceAdapter, u core.NormalizedURL) core.SourceResult {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.cfg.RetryBackoff), uint64(o.cfg.MaxRetries)),
		ctx)

	attempt := 0
	operation := func() (core.SourceResult, error) {
		attempt++
		result := adapter.Fetch(ctx, u)
		if result.OK() {
			return result, nil
		}
		if !result.Retriable() {
			return result, backoff.Permanent(result.Failure)
		}
		return result, result.Failure
	}

	notify := func(err error, wait time.Duration) {
		o.logger.Debug("Retrying source",
			zap.String("source", string(adapter.Kind())),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	result, _ := backoff.RetryNotifyWithData(operation, b, notify)
	return result
}

func (o *Orchestrator) ttl(kind core.SourceKind) time.Duration {
	if ttl, ok := o.cfg.TTLs[kind]; ok && ttl > 0 {
		return ttl
	}
	return DefaultTTL
}
