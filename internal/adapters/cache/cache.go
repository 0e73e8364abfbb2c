// Package cache stores recent predictions keyed by model version and document hash.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/core"
)

var (
	// ErrNotFound is returned when a cache entry is not found
	ErrNotFound = errors.New("cache entry not found")
	// ErrExpired is returned when a cache entry has expired
	ErrExpired = errors.New("cache entry expired")
)

// Repository is a prediction cache that owns a background cleanup task
type Repository interface {
	core.CacheRepository
	Stop()
}

// janitor periodically calls Cleanup until stopped
type janitor struct {
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func startJanitor(freq time.Duration, cleanup func(context.Context) error, logger *zap.Logger) *janitor {
	j := &janitor{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	if freq <= 0 {
		close(j.done)
		return j
	}

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(freq)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := cleanup(context.Background()); err != nil {
					logger.Error("Failed to clean up cache", zap.Error(err))
				}
			case <-j.stopCh:
				return
			}
		}
	}()

	return j
}

// stop is safe to call more than once and waits for the task to exit
func (j *janitor) stop() {
	j.stopOnce.Do(func() {
		close(j.stopCh)
	})
	<-j.done
}
