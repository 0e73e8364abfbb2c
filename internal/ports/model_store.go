//go:generate go run go.uber.org/mock/mockgen -source=model_store.go -destination=../mocks/mock_model_store.go -package=mocks

package ports

import (
	"context"

	"github.com/mikey/nb-spam-filter/internal/artifact"
)

// ModelStore persists scoring artifacts at a URI
type ModelStore interface {
	// Load reads and decodes the artifact stored at uri
	Load(ctx context.Context, uri string) (*artifact.Artifact, error)

	// Save encodes the artifact and writes it to uri
	Save(ctx context.Context, uri string, a *artifact.Artifact) error
}
