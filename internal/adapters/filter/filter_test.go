package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/artifact"
	"github.com/mikey/nb-spam-filter/internal/bayes"
	"github.com/mikey/nb-spam-filter/internal/classifier"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/features"
	"github.com/mikey/nb-spam-filter/internal/text"
)

// newTestService trains a tiny model so transports can be exercised end to end
func newTestService(t *testing.T, whitelisted ...string) *core.SpamFilterService {
	t.Helper()

	docs := []string{
		"Free money!!! Click http://x.co now",
		"WIN a free prize, claim your cash today",
		"Cheap viagra pills, limited offer",
		"Meeting moved to 3pm, see agenda",
		"Can you review the project report before Friday?",
		"Lunch tomorrow with the team",
	}
	labels := []core.Label{
		core.LabelSpam, core.LabelSpam, core.LabelSpam,
		core.LabelHam, core.LabelHam, core.LabelHam,
	}

	hasher := features.NewHasher(4096, text.EnglishStopWords())
	vectors := make([]features.Vector, len(docs))
	for i, doc := range docs {
		vectors[i] = hasher.TransformRaw(doc)
	}
	model, err := bayes.Fit(vectors, labels, 0.5, hasher.NFeatures)
	require.NoError(t, err)

	a, err := artifact.New(hasher, model, artifact.Metadata{})
	require.NoError(t, err)

	pipeline, err := classifier.NewPipeline(a, zap.NewNop())
	require.NoError(t, err)

	return core.NewSpamFilterService(pipeline, nil, zap.NewNop(), false, 0, 0.5, whitelisted)
}
