package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/core"
)

// sqlCache holds the queries shared by the SQLite and MySQL caches.
// Timestamps are stored as Unix nanoseconds so both engines compare them the same way.
type sqlCache struct {
	db      *sql.DB
	logger  *zap.Logger
	upsert  string
	janitor *janitor
}

// Get retrieves a cached prediction
func (c *sqlCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var (
		entry              core.CacheEntry
		label              string
		lastSeen, expireAt int64
	)

	err := c.db.QueryRowContext(ctx, `
		SELECT cache_key, label, spam_probability, ham_probability, last_seen, expires_at
		FROM prediction_cache
		WHERE cache_key = ?
	`, key).Scan(&entry.Key, &label, &entry.SpamProbability, &entry.HamProbability, &lastSeen, &expireAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	entry.Label = core.Label(label)
	entry.LastSeen = time.Unix(0, lastSeen)
	entry.ExpiresAt = time.Unix(0, expireAt)
	if time.Now().After(entry.ExpiresAt) {
		return nil, ErrExpired
	}

	return &entry, nil
}

// Set stores a cache entry
func (c *sqlCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.db.ExecContext(ctx, c.upsert,
		entry.Key,
		string(entry.Label),
		entry.SpamProbability,
		entry.HamProbability,
		entry.LastSeen.UnixNano(),
		entry.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}

// Delete removes a cache entry
func (c *sqlCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM prediction_cache
		WHERE cache_key = ?
	`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Cleanup removes expired entries
func (c *sqlCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM prediction_cache
		WHERE expires_at <= ?
	`, time.Now().UnixNano())
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

// close stops the cleanup task and closes the database
func (c *sqlCache) close(engine string) {
	c.janitor.stop()
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close database", zap.String("engine", engine), zap.Error(err))
	}
}

func execAll(db *sql.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
