package modelstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/artifact"
)

// FileStore keeps artifacts on the local filesystem
type FileStore struct {
	logger *zap.Logger
}

// NewFileStore creates a new filesystem artifact store
func NewFileStore(logger *zap.Logger) *FileStore {
	return &FileStore{logger: logger}
}

// Load reads the artifact at a file URI or bare path
func (s *FileStore) Load(ctx context.Context, uri string) (*artifact.Artifact, error) {
	loc, err := s.location(uri)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(loc.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model artifact: %w", err)
	}
	defer f.Close()

	a, err := artifact.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc.Path, err)
	}

	s.logger.Info("Loaded model artifact",
		zap.String("path", loc.Path),
		zap.String("version", a.Version()))
	return a, nil
}

// Save writes to a temporary file next to the target and renames it into place
func (s *FileStore) Save(ctx context.Context, uri string, a *artifact.Artifact) error {
	loc, err := s.location(uri)
	if err != nil {
		return err
	}

	dir := filepath.Dir(loc.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := artifact.Encode(tmp, a); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write model artifact: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), loc.Path); err != nil {
		return fmt.Errorf("failed to move model artifact into place: %w", err)
	}

	s.logger.Info("Saved model artifact",
		zap.String("path", loc.Path),
		zap.String("version", a.Version()))
	return nil
}

func (s *FileStore) location(uri string) (Location, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return Location{}, err
	}
	if loc.Scheme != SchemeFile {
		return Location{}, fmt.Errorf("%w: file store cannot handle %q", ErrUnsupportedURI, uri)
	}
	return loc, nil
}
