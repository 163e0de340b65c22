package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"go.uber.org/zap"
)

// dialect holds the statements that differ between SQL backends
type dialect struct {
	name   string
	schema []string
	upsert string
	trim   string
}

// SQLCache is a database-backed implementation of core.Cache. Expiry is
// evaluated against the cache clock on every read, and the row count is
// trimmed to capacity after every write, oldest insertion first.
type SQLCache struct {
	db       *sql.DB
	dialect  dialect
	capacity int
	now      func() time.Time

	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func newSQLCache(db *sql.DB, d dialect, logger *zap.Logger, capacity int, cleanupFreq time.Duration, opts []Option) (*SQLCache, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}

	o := buildOptions(opts)
	cache := &SQLCache{
		db:          db,
		dialect:     d,
		capacity:    normalizeCapacity(capacity),
		now:         o.now,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache, nil
}

// Get retrieves a live entry
func (c *SQLCache) Get(ctx context.Context, kind core.SourceKind, key string) (core.SourcePayload, bool) {
	payload, err := c.lookup(ctx, kind, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Error("Failed to query cache",
				zap.Error(err),
				zap.String("source", string(kind)),
				zap.String("key", key))
		}
		return core.SourcePayload{}, false
	}
	return payload, true
}

func (c *SQLCache) lookup(ctx context.Context, kind core.SourceKind, key string) (core.SourcePayload, error) {
	var raw string
	var insertedAt, ttl int64

	err := c.db.QueryRowContext(ctx, `
		SELECT payload, inserted_at, ttl_ns
		FROM source_cache
		WHERE kind = ? AND lookup_key = ?
	`, string(kind), key).Scan(&raw, &insertedAt, &ttl)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.SourcePayload{}, ErrNotFound
		}
		return core.SourcePayload{}, fmt.Errorf("failed to query cache: %w", err)
	}

	if c.now().Sub(time.Unix(0, insertedAt)) >= time.Duration(ttl) {
		if err := c.Delete(ctx, kind, key); err != nil {
			c.logger.Warn("Failed to delete expired cache entry", zap.Error(err))
		}
		return core.SourcePayload{}, ErrNotFound
	}

	var payload core.SourcePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return core.SourcePayload{}, fmt.Errorf("failed to decode cached payload: %w", err)
	}
	return payload, nil
}

// Put stores an entry and trims the table to capacity
func (c *SQLCache) Put(ctx context.Context, kind core.SourceKind, key string, value core.SourcePayload, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to encode cache payload", zap.Error(err), zap.String("source", string(kind)))
		return
	}

	insertedAt := c.now()
	_, err = c.db.ExecContext(ctx, c.dialect.upsert,
		string(kind), key, string(raw),
		insertedAt.UnixNano(), int64(ttl), insertedAt.Add(ttl).UnixNano())
	if err != nil {
		c.logger.Error("Failed to insert cache entry",
			zap.Error(err),
			zap.String("source", string(kind)),
			zap.String("key", key))
		return
	}

	if err := c.trim(ctx); err != nil {
		c.logger.Error("Failed to trim cache", zap.Error(err))
	}
}

func (c *SQLCache) trim(ctx context.Context) error {
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM source_cache`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count cache entries: %w", err)
	}
	if count <= c.capacity {
		return nil
	}

	result, err := c.db.ExecContext(ctx, c.dialect.trim, count-c.capacity)
	if err != nil {
		return fmt.Errorf("failed to evict cache entries: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil {
		c.logger.Debug("Evicted oldest cache entries", zap.Int64("evicted_count", n))
	}
	return nil
}

// Delete removes a cache entry
func (c *SQLCache) Delete(ctx context.Context, kind core.SourceKind, key string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM source_cache
		WHERE kind = ? AND lookup_key = ?
	`, string(kind), key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *SQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM source_cache
		WHERE expires_at <= ?
	`, c.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// Len returns the number of stored rows, live or not
func (c *SQLCache) Len(ctx context.Context) (int, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM source_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return count, nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close cache database",
				zap.String("backend", c.dialect.name),
				zap.Error(err))
		}
	})
}
