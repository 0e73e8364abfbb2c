package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/core"
)

func newEntry(key string, ttl time.Duration) *core.CacheEntry {
	now := time.Now()
	return &core.CacheEntry{
		Key:             key,
		Label:           core.LabelSpam,
		SpamProbability: 0.93,
		HamProbability:  0.07,
		LastSeen:        now,
		ExpiresAt:       now.Add(ttl),
	}
}

func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	sqlite, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop(), 0)
	require.NoError(t, err)

	return map[string]Repository{
		"memory": NewMemoryCache(zap.NewNop(), 0),
		"sqlite": sqlite,
	}
}

func TestRepository_SetGet(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Stop()
			ctx := context.Background()

			_, err := repo.Get(ctx, "nb-1:abc")
			assert.ErrorIs(t, err, ErrNotFound)

			want := newEntry("nb-1:abc", time.Hour)
			require.NoError(t, repo.Set(ctx, want))

			got, err := repo.Get(ctx, "nb-1:abc")
			require.NoError(t, err)
			assert.Equal(t, want.Key, got.Key)
			assert.Equal(t, want.Label, got.Label)
			assert.Equal(t, want.SpamProbability, got.SpamProbability)
			assert.Equal(t, want.HamProbability, got.HamProbability)
			assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))

			updated := newEntry("nb-1:abc", time.Hour)
			updated.Label = core.LabelHam
			require.NoError(t, repo.Set(ctx, updated))

			got, err = repo.Get(ctx, "nb-1:abc")
			require.NoError(t, err)
			assert.Equal(t, core.LabelHam, got.Label)
		})
	}
}

func TestRepository_Expiry(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Stop()
			ctx := context.Background()

			require.NoError(t, repo.Set(ctx, newEntry("old", -time.Minute)))
			require.NoError(t, repo.Set(ctx, newEntry("fresh", time.Hour)))

			_, err := repo.Get(ctx, "old")
			assert.ErrorIs(t, err, ErrExpired)

			require.NoError(t, repo.Cleanup(ctx))

			_, err = repo.Get(ctx, "old")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = repo.Get(ctx, "fresh")
			assert.NoError(t, err)
		})
	}
}

func TestRepository_Delete(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Stop()
			ctx := context.Background()

			require.NoError(t, repo.Set(ctx, newEntry("k", time.Hour)))
			require.NoError(t, repo.Delete(ctx, "k"))
			require.NoError(t, repo.Delete(ctx, "missing"))

			_, err := repo.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryCache_BackgroundCleanup(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 10*time.Millisecond)
	defer c.Stop()

	require.NoError(t, c.Set(context.Background(), newEntry("old", -time.Second)))

	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_StopTwice(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	c.Stop()
	assert.NotPanics(t, c.Stop)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 0)
	defer c.Stop()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, newEntry("shared", time.Hour))
				_, _ = c.Get(ctx, "shared")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.Len())
}
