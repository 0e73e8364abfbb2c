// Package training fits a Naive Bayes model on a labelled corpus, evaluates it on
// a stratified hold-out split and packages the result as a scoring artifact.
package training

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/artifact"
	"github.com/mikey/nb-spam-filter/internal/bayes"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/features"
	"github.com/mikey/nb-spam-filter/internal/text"
	"github.com/mikey/nb-spam-filter/internal/utils"
)

// Example is one labelled email of the training corpus
type Example struct {
	Subject string
	Message string
	Label   string
}

// Text returns the document the example contributes, combined like a scoring request
func (e Example) Text() string {
	return core.CombineText(e.Subject, e.Message)
}

// Options controls a training run
type Options struct {
	TestFraction float64
	Seed         int64
	Alpha        float64
	NFeatures    int
	StopWords    text.StopWords
	// MaxBodySize caps each field like text.max_body_size does at serving time; 0 is unlimited
	MaxBodySize int
}

// DefaultOptions returns the options the trainer CLI starts from
func DefaultOptions() Options {
	return Options{
		TestFraction: 0.10,
		Seed:         42,
		Alpha:        0.5,
		NFeatures:    features.DefaultNFeatures,
		StopWords:    text.EnglishStopWords(),
	}
}

// ParseLabels validates every example's label and requires both classes to be
// present. The first bad row is reported as ErrMissingField wrapped with its index.
func ParseLabels(examples []Example) ([]core.Label, error) {
	labels, err := parseRows(examples)
	if err != nil {
		return nil, err
	}
	if len(lo.Uniq(labels)) < len(core.Labels) {
		return nil, fmt.Errorf("%w: only %q present", core.ErrSingleClassCorpus, labels[0])
	}
	return labels, nil
}

func parseRows(examples []Example) ([]core.Label, error) {
	if len(examples) == 0 {
		return nil, core.ErrEmptyCorpus
	}

	labels := make([]core.Label, len(examples))
	for i, ex := range examples {
		label, err := core.ParseLabel(ex.Label)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: label %q is not spam or ham", core.ErrMissingField, i, ex.Label)
		}
		labels[i] = label
	}
	return labels, nil
}

// Prepare runs every field through the text processor the transports use, so the
// model is fitted on the same text it will be asked to score
func Prepare(examples []Example, processor *utils.TextProcessor) []Example {
	return lo.Map(examples, func(e Example, _ int) Example {
		return Example{
			Subject: processor.ProcessText(e.Subject),
			Message: processor.ProcessText(e.Message),
			Label:   e.Label,
		}
	})
}

// Vectorize normalizes and hashes every example at the given positions
func Vectorize(ctx context.Context, hasher *features.Hasher, examples []Example, positions []int) ([]features.Vector, error) {
	vectors := make([]features.Vector, len(positions))
	for i, pos := range positions {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		vectors[i] = hasher.TransformRaw(examples[pos].Text())
	}
	return vectors, nil
}

// Train runs the whole pipeline: validate, split, fit on the train part and
// evaluate on the test part. A cancelled context aborts the run without an artifact.
func Train(ctx context.Context, examples []Example, opts Options, logger *zap.Logger) (*artifact.Artifact, *Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	labels, err := ParseLabels(examples)
	if err != nil {
		return nil, nil, err
	}
	examples = Prepare(examples, utils.NewTextProcessor(logger, opts.MaxBodySize))

	hasher := features.NewHasher(opts.NFeatures, opts.StopWords)
	if err := hasher.Validate(); err != nil {
		return nil, nil, err
	}
	if math.IsNaN(opts.Alpha) || opts.Alpha <= 0 {
		return nil, nil, fmt.Errorf("%w: %v", bayes.ErrInvalidAlpha, opts.Alpha)
	}

	trainIdx, testIdx, err := StratifiedSplit(labels, opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Split corpus",
		zap.Int("examples", len(examples)),
		zap.Int("train", len(trainIdx)),
		zap.Int("test", len(testIdx)),
		zap.Int64("seed", opts.Seed))

	trainVectors, err := Vectorize(ctx, hasher, examples, trainIdx)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	model, err := bayes.Fit(trainVectors, pick(labels, trainIdx), opts.Alpha, opts.NFeatures)
	if err != nil {
		return nil, nil, fmt.Errorf("fitting model: %w", err)
	}
	logger.Info("Fitted model",
		zap.Int("n_features", opts.NFeatures),
		zap.Float64("alpha", opts.Alpha),
		zap.Duration("took", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	testVectors, err := Vectorize(ctx, hasher, examples, testIdx)
	if err != nil {
		return nil, nil, err
	}
	report, err := Evaluate(model, testVectors, pick(labels, testIdx))
	if err != nil {
		return nil, nil, fmt.Errorf("evaluating model: %w", err)
	}
	logger.Info("Evaluated model", zap.Float64("accuracy", report.Accuracy))

	a, err := artifact.New(hasher, model, artifact.Metadata{
		TrainedAt:     time.Now().UTC(),
		TrainExamples: len(trainIdx),
		TestExamples:  len(testIdx),
		Seed:          opts.Seed,
		TestFraction:  opts.TestFraction,
		Accuracy:      report.Accuracy,
	})
	if err != nil {
		return nil, nil, err
	}

	return a, report, nil
}

// EvaluateArtifact scores a labelled corpus with an existing artifact. maxBodySize
// should match the serving configuration.
func EvaluateArtifact(ctx context.Context, a *artifact.Artifact, examples []Example, maxBodySize int) (*Report, error) {
	labels, err := parseRows(examples)
	if err != nil {
		return nil, err
	}
	examples = Prepare(examples, utils.NewTextProcessor(zap.NewNop(), maxBodySize))

	vectors, err := Vectorize(ctx, a.NewHasher(), examples, lo.Range(len(examples)))
	if err != nil {
		return nil, err
	}
	return Evaluate(a.Model, vectors, labels)
}

func pick(labels []core.Label, positions []int) []core.Label {
	return lo.Map(positions, func(pos int, _ int) core.Label {
		return labels[pos]
	})
}
