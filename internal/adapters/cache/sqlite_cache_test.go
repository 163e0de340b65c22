package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSQLiteCache(t *testing.T, capacity int, clock *fakeClock) *SQLCache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := NewSQLiteCache(path, zap.NewNop(), capacity, 0, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

func TestSQLiteCacheRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestSQLiteCache(t, 10, clock)

	created := time.Date(2010, 1, 2, 0, 0, 0, 0, time.UTC)
	payload := core.SourcePayload{Registration: &core.RegistrationData{CreatedAt: created, Registrar: "Example Registrar"}}
	c.Put(ctx, core.SourceRegistration, "example.com", payload, time.Hour)

	clock.Advance(time.Hour - time.Second)
	got, ok := c.Get(ctx, core.SourceRegistration, "example.com")
	require.True(t, ok)
	require.NotNil(t, got.Registration)
	assert.True(t, created.Equal(got.Registration.CreatedAt))
	assert.Equal(t, "Example Registrar", got.Registration.Registrar)

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, core.SourceRegistration, "example.com")
	assert.False(t, ok)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLiteCacheTrimsOldestInsertion(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestSQLiteCache(t, 2, clock)

	for _, key := range []string{"a", "b", "c"} {
		c.Put(ctx, core.SourceGeolocation, key, geoPayload("US"), time.Hour)
		clock.Advance(time.Millisecond)
	}

	_, ok := c.Get(ctx, core.SourceGeolocation, "a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, core.SourceGeolocation, "c")
	assert.True(t, ok)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteCacheOverwrite(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestSQLiteCache(t, 10, clock)

	c.Put(ctx, core.SourceGeolocation, "a", geoPayload("AA"), time.Hour)
	c.Put(ctx, core.SourceGeolocation, "a", geoPayload("BB"), time.Hour)

	got, ok := c.Get(ctx, core.SourceGeolocation, "a")
	require.True(t, ok)
	assert.Equal(t, "BB", got.Geo.CountryCode)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteCacheCleanup(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestSQLiteCache(t, 10, clock)

	c.Put(ctx, core.SourceDNS, "short", core.SourcePayload{DNS: &core.DNSData{}}, time.Second)
	c.Put(ctx, core.SourceDNS, "long", core.SourcePayload{DNS: &core.DNSData{}}, time.Hour)
	clock.Advance(time.Minute)

	require.NoError(t, c.Cleanup(ctx))

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
