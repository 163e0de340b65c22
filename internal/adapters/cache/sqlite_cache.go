package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS source_cache (
			kind TEXT NOT NULL,
			lookup_key TEXT NOT NULL,
			payload TEXT NOT NULL,
			inserted_at INTEGER NOT NULL,
			ttl_ns INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			PRIMARY KEY (kind, lookup_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_source_cache_inserted_at ON source_cache(inserted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_source_cache_expires_at ON source_cache(expires_at)`,
	},
	// REPLACE deletes the old row, so an overwrite gets a fresh rowid
	upsert: `INSERT OR REPLACE INTO source_cache (kind, lookup_key, payload, inserted_at, ttl_ns, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
	trim: `DELETE FROM source_cache WHERE rowid IN (
		SELECT rowid FROM source_cache ORDER BY inserted_at ASC, rowid ASC LIMIT ?
	)`,
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, capacity int, cleanupFreq time.Duration, opts ...Option) (*SQLCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single connection keeps writes serialized and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	return newSQLCache(db, sqliteDialect, logger, capacity, cleanupFreq, opts)
}
