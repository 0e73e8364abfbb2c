package training

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/nb-spam-filter/internal/core"
)

func repeatLabels(ham, spam int) []core.Label {
	labels := make([]core.Label, 0, ham+spam)
	for i := 0; i < ham; i++ {
		labels = append(labels, core.LabelHam)
	}
	for i := 0; i < spam; i++ {
		labels = append(labels, core.LabelSpam)
	}
	return labels
}

func countLabels(labels []core.Label, positions []int) map[core.Label]int {
	counts := map[core.Label]int{}
	for _, pos := range positions {
		counts[labels[pos]]++
	}
	return counts
}

func TestStratifiedSplit_PartitionsAllPositions(t *testing.T) {
	labels := repeatLabels(87, 13)

	train, test, err := StratifiedSplit(labels, 0.1, 42)
	require.NoError(t, err)

	assert.Len(t, test, 10)
	assert.Len(t, train, 90)

	seen := make(map[int]bool, len(labels))
	for _, pos := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[pos], "position %d appears twice", pos)
		seen[pos] = true
	}
	assert.Len(t, seen, len(labels))

	counts := countLabels(labels, test)
	assert.Equal(t, 9, counts[core.LabelHam])
	assert.Equal(t, 1, counts[core.LabelSpam])
}

func TestStratifiedSplit_KeepsClassShares(t *testing.T) {
	tests := []struct {
		name     string
		ham      int
		spam     int
		fraction float64
	}{
		{"balanced", 500, 500, 0.1},
		{"imbalanced", 4360, 725, 0.1},
		{"quarter", 33, 17, 0.25},
		{"tiny", 3, 2, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := repeatLabels(tt.ham, tt.spam)
			n := len(labels)

			_, test, err := StratifiedSplit(labels, tt.fraction, 7)
			require.NoError(t, err)
			require.Len(t, test, int(math.Ceil(tt.fraction*float64(n))))

			counts := countLabels(labels, test)
			for label, total := range map[core.Label]int{core.LabelHam: tt.ham, core.LabelSpam: tt.spam} {
				share := float64(counts[label]) / float64(len(test))
				want := float64(total) / float64(n)
				assert.Less(t, math.Abs(share-want), 1/float64(len(test))+1e-9, "label %s", label)
			}
		})
	}
}

func TestStratifiedSplit_Deterministic(t *testing.T) {
	labels := repeatLabels(60, 40)

	train1, test1, err := StratifiedSplit(labels, 0.2, 123)
	require.NoError(t, err)
	train2, test2, err := StratifiedSplit(labels, 0.2, 123)
	require.NoError(t, err)

	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)
}

func TestStratifiedSplit_ClassKeepsTrainingExample(t *testing.T) {
	labels := repeatLabels(3, 1)

	train, _, err := StratifiedSplit(labels, 0.5, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, countLabels(labels, train)[core.LabelSpam])
}

func TestStratifiedSplit_CappedQuotaMovesToOtherClass(t *testing.T) {
	// ham's rounded quota of 1 would take its only row, so spam holds out both
	labels := repeatLabels(1, 3)

	train, test, err := StratifiedSplit(labels, 0.5, 1)
	require.NoError(t, err)

	assert.Len(t, test, 2)
	assert.Equal(t, 2, countLabels(labels, test)[core.LabelSpam])
	assert.Equal(t, 1, countLabels(labels, train)[core.LabelHam])
}

func TestStratifiedSplit_NothingToHoldOut(t *testing.T) {
	labels := repeatLabels(1, 1)

	_, _, err := StratifiedSplit(labels, 0.1, 42)
	require.ErrorIs(t, err, ErrInvalidSplit)
	assert.Contains(t, err.Error(), "nothing to hold out")
}

func TestStratifiedSplit_Errors(t *testing.T) {
	labels := repeatLabels(2, 2)

	for _, fraction := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		_, _, err := StratifiedSplit(labels, fraction, 1)
		assert.ErrorIs(t, err, ErrInvalidSplit, "fraction %v", fraction)
	}

	_, _, err := StratifiedSplit(nil, 0.1, 1)
	assert.ErrorIs(t, err, core.ErrEmptyCorpus)

	_, _, err = StratifiedSplit([]core.Label{core.LabelHam, "maybe"}, 0.5, 1)
	assert.ErrorIs(t, err, core.ErrUnknownLabel)
}
