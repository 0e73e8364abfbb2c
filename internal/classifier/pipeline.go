// Package classifier replays the training-time preprocessing on incoming
// documents and scores them with a loaded artifact.
package classifier

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/artifact"
	"github.com/mikey/nb-spam-filter/internal/bayes"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/features"
	"github.com/mikey/nb-spam-filter/internal/text"
)

// Pipeline implements core.Classifier. It is read-only after construction and
// safe for concurrent use.
type Pipeline struct {
	hasher  *features.Hasher
	model   *bayes.Model
	version string
	logger  *zap.Logger
}

var _ core.Classifier = (*Pipeline)(nil)

// NewPipeline creates a new pipeline from a decoded artifact
func NewPipeline(a *artifact.Artifact, logger *zap.Logger) (*Pipeline, error) {
	if a == nil || a.Model == nil {
		return nil, core.ErrModelNotLoaded
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	hasher := a.NewHasher()
	if err := hasher.Validate(); err != nil {
		return nil, err
	}
	if hasher.NFeatures != a.Model.NFeatures() {
		return nil, fmt.Errorf("%w: hasher has %d buckets, model has %d",
			core.ErrDimensionMismatch, hasher.NFeatures, a.Model.NFeatures())
	}

	p := &Pipeline{
		hasher:  hasher,
		model:   a.Model,
		version: a.Version(),
		logger:  logger,
	}

	logger.Info("Loaded classifier",
		zap.String("version", p.version),
		zap.Int("n_features", hasher.NFeatures),
		zap.Float64("alpha", a.Model.Alpha()),
		zap.Time("trained_at", a.Metadata.TrainedAt))

	return p, nil
}

// Classify scores a document. Text that normalizes to nothing still gets a
// prediction from the class priors alone.
func (p *Pipeline) Classify(doc core.RawDocument) (*core.Prediction, error) {
	if p == nil || p.model == nil {
		return nil, core.ErrModelNotLoaded
	}

	combined, err := doc.Combined()
	if err != nil {
		return nil, err
	}

	vector := p.hasher.Transform(text.Normalize(combined))
	posterior, err := p.model.PredictProba(vector)
	if err != nil {
		return nil, err
	}

	label := posterior.Label()
	p.logger.Debug("Classified document",
		zap.String("label", string(label)),
		zap.Int("features", vector.NNZ()),
		zap.Float64("spam_probability", posterior.Spam))

	return &core.Prediction{
		Label:           label,
		IsSpam:          label == core.LabelSpam,
		SpamProbability: posterior.Spam,
		HamProbability:  posterior.Ham,
	}, nil
}

// Version identifies the artifact this pipeline scores with
func (p *Pipeline) Version() string {
	if p == nil {
		return ""
	}
	return p.version
}
