package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func geoPayload(code string) core.SourcePayload {
	return core.SourcePayload{Geo: &core.GeoData{CountryCode: code}}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache(zap.NewNop(), 10, 0, WithClock(clock.Now))

	c.Put(ctx, core.SourceGeolocation, "example.com", geoPayload("US"), time.Minute)

	clock.Advance(time.Minute - time.Millisecond)
	got, ok := c.Get(ctx, core.SourceGeolocation, "example.com")
	require.True(t, ok)
	assert.Equal(t, "US", got.Geo.CountryCode)

	clock.Advance(2 * time.Millisecond)
	_, ok = c.Get(ctx, core.SourceGeolocation, "example.com")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestMemoryCacheExpiresExactlyAtTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache(zap.NewNop(), 10, 0, WithClock(clock.Now))

	c.Put(ctx, core.SourceDNS, "example.com", core.SourcePayload{DNS: &core.DNSData{}}, time.Second)
	clock.Advance(time.Second)

	_, ok := c.Get(ctx, core.SourceDNS, "example.com")
	assert.False(t, ok)
}

func TestMemoryCacheKeysAreNamespacedByKind(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(zap.NewNop(), 10, 0)

	c.Put(ctx, core.SourceGeolocation, "example.com", geoPayload("US"), time.Hour)

	_, ok := c.Get(ctx, core.SourceDNS, "example.com")
	assert.False(t, ok)
	_, ok = c.Get(ctx, core.SourceGeolocation, "example.com")
	assert.True(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyInserted(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(zap.NewNop(), 2, 0)

	c.Put(ctx, core.SourceGeolocation, "a", geoPayload("AA"), time.Hour)
	c.Put(ctx, core.SourceGeolocation, "b", geoPayload("BB"), time.Hour)

	// Reads do not refresh insertion order
	_, ok := c.Get(ctx, core.SourceGeolocation, "a")
	require.True(t, ok)

	c.Put(ctx, core.SourceGeolocation, "c", geoPayload("CC"), time.Hour)

	_, ok = c.Get(ctx, core.SourceGeolocation, "a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, core.SourceGeolocation, "b")
	assert.True(t, ok)
	_, ok = c.Get(ctx, core.SourceGeolocation, "c")
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Size)
}

func TestMemoryCacheOverwriteRefreshesInsertion(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache(zap.NewNop(), 2, 0, WithClock(clock.Now))

	c.Put(ctx, core.SourceGeolocation, "a", geoPayload("AA"), time.Minute)
	c.Put(ctx, core.SourceGeolocation, "b", geoPayload("BB"), time.Minute)

	clock.Advance(50 * time.Second)
	c.Put(ctx, core.SourceGeolocation, "a", geoPayload("A2"), time.Minute)

	// "b" is now the oldest insertion
	c.Put(ctx, core.SourceGeolocation, "c", geoPayload("CC"), time.Minute)
	_, ok := c.Get(ctx, core.SourceGeolocation, "b")
	assert.False(t, ok)

	// The overwrite restarted the TTL for "a"
	clock.Advance(30 * time.Second)
	got, ok := c.Get(ctx, core.SourceGeolocation, "a")
	require.True(t, ok)
	assert.Equal(t, "A2", got.Geo.CountryCode)
}

func TestMemoryCacheIgnoresNonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(zap.NewNop(), 10, 0)

	c.Put(ctx, core.SourceGeolocation, "a", geoPayload("AA"), 0)

	_, ok := c.Get(ctx, core.SourceGeolocation, "a")
	assert.False(t, ok)
}

func TestMemoryCacheCleanup(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache(zap.NewNop(), 10, 0, WithClock(clock.Now))

	c.Put(ctx, core.SourceGeolocation, "short", geoPayload("AA"), time.Second)
	c.Put(ctx, core.SourceGeolocation, "long", geoPayload("BB"), time.Hour)
	clock.Advance(time.Minute)

	require.NoError(t, c.Cleanup(ctx))
	assert.Equal(t, 1, c.Stats().Size)

	_, ok := c.Get(ctx, core.SourceGeolocation, "long")
	assert.True(t, ok)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(zap.NewNop(), 50, time.Millisecond)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("host-%d", (worker*j)%80)
				c.Put(ctx, core.SourceDNS, key, core.SourcePayload{DNS: &core.DNSData{HasMX: true}}, time.Hour)
				c.Get(ctx, core.SourceDNS, key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Size, 50)
}

func TestMemoryCacheStopIsIdempotent(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 10, time.Hour)
	c.Stop()
	c.Stop()
}
