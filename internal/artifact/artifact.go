// Package artifact bundles a fitted model with the hasher configuration it was
// trained with, so that scoring can be reproduced without the training corpus.
package artifact

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mikey/nb-spam-filter/internal/bayes"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/features"
	"github.com/mikey/nb-spam-filter/internal/text"
)

// ErrInvalidArtifact is returned when a stored artifact cannot be decoded or is inconsistent
var ErrInvalidArtifact = errors.New("invalid model artifact")

// HasherConfig is the persisted form of a features.Hasher
type HasherConfig struct {
	NFeatures  int                 `json:"n_features"`
	NgramRange features.NgramRange `json:"ngram_range"`
	StopWords  []string            `json:"stop_words"`
}

// Metadata describes the training run that produced the artifact
type Metadata struct {
	TrainedAt     time.Time `json:"trained_at"`
	TrainExamples int       `json:"train_examples"`
	TestExamples  int       `json:"test_examples"`
	Seed          int64     `json:"seed"`
	TestFraction  float64   `json:"test_fraction"`
	Accuracy      float64   `json:"accuracy"`
}

// Artifact is the unit that gets persisted and loaded by the scoring side
type Artifact struct {
	Hasher   HasherConfig
	Model    *bayes.Model
	Metadata Metadata
}

// New pairs a hasher with a model trained on its output
func New(hasher *features.Hasher, model *bayes.Model, meta Metadata) (*Artifact, error) {
	if hasher == nil || model == nil {
		return nil, fmt.Errorf("%w: hasher and model are required", ErrInvalidArtifact)
	}
	if err := hasher.Validate(); err != nil {
		return nil, err
	}
	if hasher.NFeatures != model.NFeatures() {
		return nil, fmt.Errorf("%w: hasher has %d buckets, model has %d",
			core.ErrDimensionMismatch, hasher.NFeatures, model.NFeatures())
	}

	words := hasher.StopWords.Words()
	sort.Strings(words)

	return &Artifact{
		Hasher: HasherConfig{
			NFeatures:  hasher.NFeatures,
			NgramRange: hasher.NgramRange,
			StopWords:  words,
		},
		Model:    model,
		Metadata: meta,
	}, nil
}

// NewHasher rebuilds the hasher the model was trained with
func (a *Artifact) NewHasher() *features.Hasher {
	return &features.Hasher{
		NFeatures:  a.Hasher.NFeatures,
		NgramRange: a.Hasher.NgramRange,
		StopWords:  text.NewStopWords(a.Hasher.StopWords),
	}
}

// Version fingerprints every parameter that influences a prediction
func (a *Artifact) Version() string {
	d := xxhash.New()
	var buf [8]byte

	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = d.Write(buf[:])
	}

	writeFloat(float64(a.Hasher.NFeatures))
	writeFloat(float64(a.Hasher.NgramRange.Min))
	writeFloat(float64(a.Hasher.NgramRange.Max))
	for _, w := range a.Hasher.StopWords {
		_, _ = d.WriteString(w)
		_, _ = d.Write([]byte{0})
	}

	state := a.Model.State()
	writeFloat(state.Alpha)
	for _, p := range state.ClassLogPrior {
		writeFloat(p)
	}
	for _, row := range state.FeatureLogProb {
		for _, p := range row {
			writeFloat(p)
		}
	}

	return fmt.Sprintf("nb-%016x", d.Sum64())
}
