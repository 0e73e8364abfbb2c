package factory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/classifier"
	"github.com/mikey/nb-spam-filter/internal/config"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/ports"
)

// ClassifierFactory loads the scoring artifact once and wraps it in a pipeline
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	store  ports.ModelStore
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, store ports.ModelStore) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// CreateClassifier loads model.uri. Any failure is reported as ErrModelNotLoaded.
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	uri := f.cfg.GetModel().URI

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := f.store.Load(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrModelNotLoaded, uri, err)
	}

	pipeline, err := classifier.NewPipeline(a, f.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrModelNotLoaded, uri, err)
	}
	return pipeline, nil
}
