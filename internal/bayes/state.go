package bayes

import (
	"fmt"
	"math"

	"github.com/mikey/nb-spam-filter/internal/core"
)

// State is a detached copy of a model's parameters, used for persistence
type State struct {
	NFeatures      int
	Alpha          float64
	Classes        []core.Label
	ClassCount     []float64
	ClassLogPrior  []float64
	FeatureLogProb [][]float64
}

// State copies the model's parameters
func (m *Model) State() State {
	s := State{
		NFeatures:      m.nFeatures,
		Alpha:          m.alpha,
		Classes:        append([]core.Label(nil), core.Labels[:]...),
		ClassCount:     append([]float64(nil), m.classCount[:]...),
		ClassLogPrior:  append([]float64(nil), m.classLogPrior[:]...),
		FeatureLogProb: make([][]float64, numClasses),
	}
	for c := range m.featureLogProb {
		s.FeatureLogProb[c] = append([]float64(nil), m.featureLogProb[c]...)
	}
	return s
}

// FromState rebuilds a model, checking that every array matches the declared shape
func FromState(s State) (*Model, error) {
	if s.NFeatures <= 0 {
		return nil, fmt.Errorf("%w: n_features %d", core.ErrDimensionMismatch, s.NFeatures)
	}
	if math.IsNaN(s.Alpha) || s.Alpha <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAlpha, s.Alpha)
	}
	if len(s.Classes) != numClasses {
		return nil, fmt.Errorf("%w: expected %d classes, got %d", core.ErrUnknownLabel, numClasses, len(s.Classes))
	}
	for i, label := range s.Classes {
		if label != core.Labels[i] {
			return nil, fmt.Errorf("%w: class %d is %q, expected %q", core.ErrUnknownLabel, i, label, core.Labels[i])
		}
	}
	if len(s.ClassCount) != numClasses || len(s.ClassLogPrior) != numClasses || len(s.FeatureLogProb) != numClasses {
		return nil, fmt.Errorf("%w: per-class arrays must have %d entries", core.ErrDimensionMismatch, numClasses)
	}

	m := &Model{nFeatures: s.NFeatures, alpha: s.Alpha}
	for c := 0; c < numClasses; c++ {
		if len(s.FeatureLogProb[c]) != s.NFeatures {
			return nil, fmt.Errorf("%w: class %q has %d feature weights, expected %d",
				core.ErrDimensionMismatch, core.Labels[c], len(s.FeatureLogProb[c]), s.NFeatures)
		}
		m.classCount[c] = s.ClassCount[c]
		m.classLogPrior[c] = s.ClassLogPrior[c]
		m.featureLogProb[c] = append([]float64(nil), s.FeatureLogProb[c]...)
	}
	return m, nil
}
