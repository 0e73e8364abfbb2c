package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the CacheRepository interface
type SQLiteCache struct {
	sqlCache
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	err = execAll(db, `
		CREATE TABLE IF NOT EXISTS prediction_cache (
			cache_key TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			spam_probability REAL NOT NULL,
			ham_probability REAL NOT NULL,
			last_seen INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`, `
		CREATE INDEX IF NOT EXISTS idx_prediction_cache_expires_at ON prediction_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &SQLiteCache{sqlCache{
		db:     db,
		logger: logger,
		upsert: `
			INSERT OR REPLACE INTO prediction_cache
				(cache_key, label, spam_probability, ham_probability, last_seen, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
	}}
	cache.janitor = startJanitor(cleanupFreq, cache.Cleanup, logger)

	return cache, nil
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	c.close("sqlite")
}
