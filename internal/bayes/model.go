// Package bayes implements a two-class multinomial Naive Bayes model over hashed
// count vectors.
package bayes

import (
	"errors"
	"fmt"
	"math"

	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/features"
)

// ErrInvalidAlpha is returned for a smoothing parameter that is not a positive number
var ErrInvalidAlpha = errors.New("smoothing alpha must be positive")

const numClasses = len(core.Labels)

// Model holds log priors and per-bucket log likelihoods. It is immutable once
// built and safe for concurrent scoring.
type Model struct {
	nFeatures      int
	alpha          float64
	classCount     [numClasses]float64
	classLogPrior  [numClasses]float64
	featureLogProb [numClasses][]float64
}

// Fit estimates a model from count vectors and their labels using additive smoothing:
//
//	log P(i|c) = log((count(c,i) + alpha) / (sum_i count(c,i) + alpha*nFeatures))
func Fit(vectors []features.Vector, labels []core.Label, alpha float64, nFeatures int) (*Model, error) {
	if len(vectors) == 0 {
		return nil, core.ErrEmptyCorpus
	}
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("got %d vectors but %d labels", len(vectors), len(labels))
	}
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) || alpha <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAlpha, alpha)
	}
	if err := features.ValidateNFeatures(nFeatures); err != nil {
		return nil, err
	}

	m := &Model{nFeatures: nFeatures, alpha: alpha}
	var counts [numClasses][]float64
	for c := range counts {
		counts[c] = make([]float64, nFeatures)
	}

	for i, v := range vectors {
		c := labels[i].Index()
		if c < 0 {
			return nil, fmt.Errorf("%w: %q at position %d", core.ErrUnknownLabel, labels[i], i)
		}
		if v.Dim != nFeatures {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", core.ErrDimensionMismatch, i, v.Dim, nFeatures)
		}
		m.classCount[c]++
		for k, idx := range v.Indices {
			counts[c][idx] += v.Values[k]
		}
	}

	for c, n := range m.classCount {
		if n == 0 {
			return nil, fmt.Errorf("%w: no %q examples", core.ErrSingleClassCorpus, core.Labels[c])
		}
	}

	total := float64(len(vectors))
	for c := range counts {
		m.classLogPrior[c] = math.Log(m.classCount[c] / total)

		var sum float64
		for _, cnt := range counts[c] {
			sum += cnt
		}
		logDenominator := math.Log(sum + alpha*float64(nFeatures))

		logProb := counts[c] // reuse the count buffer
		for i, cnt := range logProb {
			logProb[i] = math.Log(cnt+alpha) - logDenominator
		}
		m.featureLogProb[c] = logProb
	}

	return m, nil
}

// NFeatures returns the vector dimension the model was trained on
func (m *Model) NFeatures() int {
	return m.nFeatures
}

// Alpha returns the smoothing parameter
func (m *Model) Alpha() float64 {
	return m.alpha
}

// Classes returns the labels in score order
func (m *Model) Classes() []core.Label {
	return core.Labels[:]
}

// ClassLogPrior returns the log prior of a class
func (m *Model) ClassLogPrior(label core.Label) (float64, error) {
	c := label.Index()
	if c < 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrUnknownLabel, label)
	}
	return m.classLogPrior[c], nil
}

// FeatureLogProb returns log P(bucket|class)
func (m *Model) FeatureLogProb(label core.Label, bucket int) (float64, error) {
	c := label.Index()
	if c < 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrUnknownLabel, label)
	}
	if bucket < 0 || bucket >= m.nFeatures {
		return 0, fmt.Errorf("%w: bucket %d outside [0, %d)", core.ErrDimensionMismatch, bucket, m.nFeatures)
	}
	return m.featureLogProb[c][bucket], nil
}

// Scores returns the joint log likelihood of each class, in Classes order.
// Buckets are summed in ascending order so results are reproducible bit for bit.
func (m *Model) Scores(v features.Vector) ([numClasses]float64, error) {
	var scores [numClasses]float64
	if v.Dim != m.nFeatures {
		return scores, fmt.Errorf("%w: vector has dimension %d, model expects %d", core.ErrDimensionMismatch, v.Dim, m.nFeatures)
	}
	for c := range scores {
		score := m.classLogPrior[c]
		flp := m.featureLogProb[c]
		for k, idx := range v.Indices {
			if idx < 0 || idx >= m.nFeatures {
				return scores, fmt.Errorf("%w: bucket %d outside [0, %d)", core.ErrDimensionMismatch, idx, m.nFeatures)
			}
			score += v.Values[k] * flp[idx]
		}
		scores[c] = score
	}
	return scores, nil
}

// PredictProba converts class scores to posteriors with a max-shifted softmax
func (m *Model) PredictProba(v features.Vector) (Posterior, error) {
	scores, err := m.Scores(v)
	if err != nil {
		return Posterior{}, err
	}

	maxScore := math.Max(scores[0], scores[1])
	ham := math.Exp(scores[0] - maxScore)
	spam := math.Exp(scores[1] - maxScore)
	sum := ham + spam

	return Posterior{Ham: ham / sum, Spam: spam / sum}, nil
}

// Predict returns the most probable class; ham wins an exact tie
func (m *Model) Predict(v features.Vector) (core.Label, error) {
	p, err := m.PredictProba(v)
	if err != nil {
		return "", err
	}
	return p.Label(), nil
}
