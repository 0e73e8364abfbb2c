package training

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/samber/lo"

	"github.com/mikey/nb-spam-filter/internal/core"
)

// ErrInvalidSplit is returned for a test fraction outside (0, 1) or a corpus too
// small to hold anything out
var ErrInvalidSplit = errors.New("invalid train/test split")

// StratifiedSplit partitions example positions into train and test sets that keep
// each label's share. The test set holds ceil(testFraction*n) positions, allotted
// per class by largest remainder (ties to the earlier class in core.Labels), and
// every class keeps at least one training example. Quota a class cannot give up
// moves to the next class with room. The test set is never empty. The same seed
// always yields the same split.
func StratifiedSplit(labels []core.Label, testFraction float64, seed int64) (train, test []int, err error) {
	if math.IsNaN(testFraction) || testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("%w: test fraction %v must be in (0, 1)", ErrInvalidSplit, testFraction)
	}
	n := len(labels)
	if n == 0 {
		return nil, nil, core.ErrEmptyCorpus
	}

	byClass := make([][]int, len(core.Labels))
	for i, label := range labels {
		c := label.Index()
		if c < 0 {
			return nil, nil, fmt.Errorf("%w: %q at position %d", core.ErrUnknownLabel, label, i)
		}
		byClass[c] = append(byClass[c], i)
	}

	nTest := int(math.Ceil(testFraction * float64(n)))
	quotas := allocate(nTest, byClass, n)
	if lo.Sum(quotas) == 0 {
		return nil, nil, fmt.Errorf("%w: %d examples leave nothing to hold out once every class keeps a training example", ErrInvalidSplit, n)
	}

	rng := rand.New(rand.NewSource(seed))
	for c, members := range byClass {
		shuffled := append([]int(nil), members...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		test = append(test, shuffled[:quotas[c]]...)
		train = append(train, shuffled[quotas[c]:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// allocate splits nTest across classes proportionally to their size
func allocate(nTest int, byClass [][]int, n int) []int {
	type remainder struct {
		class int
		frac  float64
	}

	quotas := make([]int, len(byClass))
	rems := make([]remainder, 0, len(byClass))
	assigned := 0
	for c, members := range byClass {
		exact := float64(nTest) * float64(len(members)) / float64(n)
		quotas[c] = int(math.Floor(exact))
		assigned += quotas[c]
		if len(members) > 0 {
			rems = append(rems, remainder{class: c, frac: exact - float64(quotas[c])})
		}
	}

	sort.SliceStable(rems, func(i, j int) bool {
		return rems[i].frac > rems[j].frac
	})
	for i := 0; assigned < nTest && i < len(rems); i++ {
		quotas[rems[i].class]++
		assigned++
	}

	spill := 0
	for c, members := range byClass {
		if limit := max(len(members)-1, 0); quotas[c] > limit {
			spill += quotas[c] - limit
			quotas[c] = limit
		}
	}
	for _, r := range rems {
		if spill == 0 {
			break
		}
		take := min(len(byClass[r.class])-1-quotas[r.class], spill)
		if take > 0 {
			quotas[r.class] += take
			spill -= take
		}
	}
	return quotas
}
