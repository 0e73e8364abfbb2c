// Package modelstore loads and saves model artifacts on the filesystem or in S3.
package modelstore

import (
	"context"
	"fmt"

	"github.com/mikey/nb-spam-filter/internal/artifact"
	"github.com/mikey/nb-spam-filter/internal/ports"
)

// Router picks a store by URI scheme
type Router struct {
	file *FileStore
	s3   *S3Store
}

var _ ports.ModelStore = (*Router)(nil)

// NewRouter creates a new scheme router. s3 may be nil when no bucket is used.
func NewRouter(file *FileStore, s3 *S3Store) *Router {
	return &Router{file: file, s3: s3}
}

// Load delegates to the store owning the URI scheme
func (r *Router) Load(ctx context.Context, uri string) (*artifact.Artifact, error) {
	store, err := r.storeFor(uri)
	if err != nil {
		return nil, err
	}
	return store.Load(ctx, uri)
}

// Save delegates to the store owning the URI scheme
func (r *Router) Save(ctx context.Context, uri string, a *artifact.Artifact) error {
	store, err := r.storeFor(uri)
	if err != nil {
		return err
	}
	return store.Save(ctx, uri, a)
}

func (r *Router) storeFor(uri string) (ports.ModelStore, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	switch {
	case loc.Scheme == SchemeS3 && r.s3 != nil:
		return r.s3, nil
	case loc.Scheme == SchemeFile && r.file != nil:
		return r.file, nil
	default:
		return nil, fmt.Errorf("%w: no %s store configured", ErrUnsupportedURI, loc.Scheme)
	}
}
