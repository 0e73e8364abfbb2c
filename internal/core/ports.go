//go:generate go run go.uber.org/mock/mockgen -source=ports.go -destination=../mocks/mock_ports.go -package=mocks

package core

import (
	"context"
)

// Classifier scores documents with a loaded model. Implementations are read-only
// after construction and safe for concurrent use.
type Classifier interface {
	// Classify returns the posterior of a single document
	Classify(doc RawDocument) (*Prediction, error)

	// Version identifies the loaded artifact
	Version() string
}

// CacheRepository defines the interface for caching predictions
type CacheRepository interface {
	// Get retrieves a cached entry by key
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
