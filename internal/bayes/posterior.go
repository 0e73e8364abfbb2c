package bayes

import (
	"fmt"

	"github.com/mikey/nb-spam-filter/internal/core"
)

// Posterior holds the class probabilities of one document
type Posterior struct {
	Ham  float64
	Spam float64
}

// Of returns the probability of a label
func (p Posterior) Of(label core.Label) (float64, error) {
	switch label {
	case core.LabelHam:
		return p.Ham, nil
	case core.LabelSpam:
		return p.Spam, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrUnknownLabel, label)
	}
}

// Label picks the class with the higher probability. Ties go to ham, the
// first class in core.Labels.
func (p Posterior) Label() core.Label {
	if p.Spam > p.Ham {
		return core.LabelSpam
	}
	return core.LabelHam
}

// Map returns the posterior keyed by label
func (p Posterior) Map() map[core.Label]float64 {
	return map[core.Label]float64{
		core.LabelHam:  p.Ham,
		core.LabelSpam: p.Spam,
	}
}
