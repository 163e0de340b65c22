package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS source_cache (
			kind VARCHAR(32) NOT NULL,
			lookup_key VARCHAR(700) NOT NULL,
			payload MEDIUMTEXT NOT NULL,
			inserted_at BIGINT NOT NULL,
			ttl_ns BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			PRIMARY KEY (kind, lookup_key),
			INDEX idx_inserted_at (inserted_at),
			INDEX idx_expires_at (expires_at)
		)`,
	},
	upsert: `INSERT INTO source_cache (kind, lookup_key, payload, inserted_at, ttl_ns, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			payload = VALUES(payload),
			inserted_at = VALUES(inserted_at),
			ttl_ns = VALUES(ttl_ns),
			expires_at = VALUES(expires_at)`,
	trim: `DELETE FROM source_cache ORDER BY inserted_at ASC LIMIT ?`,
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, capacity int, cleanupFreq time.Duration, opts ...Option) (*SQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return newSQLCache(db, mysqlDialect, logger, capacity, cleanupFreq, opts)
}
