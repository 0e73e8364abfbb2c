package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the CacheRepository interface
type MySQLCache struct {
	sqlCache
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	err = execAll(db, `
		CREATE TABLE IF NOT EXISTS prediction_cache (
			cache_key VARCHAR(128) PRIMARY KEY,
			label VARCHAR(16) NOT NULL,
			spam_probability DOUBLE NOT NULL,
			ham_probability DOUBLE NOT NULL,
			last_seen BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{sqlCache{
		db:     db,
		logger: logger,
		upsert: `
			INSERT INTO prediction_cache
				(cache_key, label, spam_probability, ham_probability, last_seen, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				label = VALUES(label),
				spam_probability = VALUES(spam_probability),
				ham_probability = VALUES(ham_probability),
				last_seen = VALUES(last_seen),
				expires_at = VALUES(expires_at)
		`,
	}}
	cache.janitor = startJanitor(cleanupFreq, cache.Cleanup, logger)

	return cache, nil
}

// Stop stops the background cleanup task and closes the database connection
func (c *MySQLCache) Stop() {
	c.close("mysql")
}
