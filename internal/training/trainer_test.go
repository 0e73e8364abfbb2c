package training

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/nb-spam-filter/internal/bayes"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/text"
	"github.com/mikey/nb-spam-filter/internal/utils"
)

func syntheticCorpus(perClass int) []Example {
	examples := make([]Example, 0, 2*perClass)
	for i := 0; i < perClass; i++ {
		examples = append(examples,
			Example{
				Subject: fmt.Sprintf("WIN a FREE prize #%d", i),
				Message: "Claim your free money now, click http://prize.example.com",
				Label:   "spam",
			},
			Example{
				Subject: fmt.Sprintf("Project meeting %d", i),
				Message: "The agenda for the project review meeting is attached. See you tomorrow.",
				Label:   "Ham",
			},
		)
	}
	return examples
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.NFeatures = 1024
	opts.TestFraction = 0.25
	return opts
}

func TestTrain(t *testing.T) {
	examples := syntheticCorpus(20)

	a, report, err := Train(context.Background(), examples, testOptions(), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NotNil(t, report)

	assert.Equal(t, 10, report.Support)
	assert.Equal(t, 1.0, report.Accuracy)
	assert.Equal(t, [2][2]int{{5, 0}, {0, 5}}, report.Confusion)

	assert.Equal(t, 30, a.Metadata.TrainExamples)
	assert.Equal(t, 10, a.Metadata.TestExamples)
	assert.Equal(t, int64(42), a.Metadata.Seed)
	assert.Equal(t, 1024, a.Model.NFeatures())
	assert.Equal(t, 0.5, a.Model.Alpha())
	assert.Len(t, a.Hasher.StopWords, 318)

	hasher := a.NewHasher()
	posterior, err := a.Model.PredictProba(hasher.TransformRaw("free prize money"))
	require.NoError(t, err)
	assert.Greater(t, posterior.Spam, 0.5)
}

func TestTrain_Reproducible(t *testing.T) {
	examples := syntheticCorpus(15)

	a1, r1, err := Train(context.Background(), examples, testOptions(), nil)
	require.NoError(t, err)
	a2, r2, err := Train(context.Background(), examples, testOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, a1.Version(), a2.Version())
	assert.Equal(t, r1, r2)
}

func TestTrain_Errors(t *testing.T) {
	valid := syntheticCorpus(4)

	badLabel := syntheticCorpus(4)
	badLabel[3].Label = "unknown"

	emptyLabel := syntheticCorpus(4)
	emptyLabel[0].Label = "  "

	onlySpam := []Example{
		{Subject: "a", Label: "spam"},
		{Subject: "b", Label: "SPAM"},
	}

	tests := []struct {
		name     string
		examples []Example
		opts     func(*Options)
		wantErr  error
		contains string
	}{
		{name: "empty corpus", examples: nil, wantErr: core.ErrEmptyCorpus},
		{name: "unknown label", examples: badLabel, wantErr: core.ErrMissingField, contains: "row 3"},
		{name: "blank label", examples: emptyLabel, wantErr: core.ErrMissingField, contains: "row 0"},
		{name: "single class", examples: onlySpam, wantErr: core.ErrSingleClassCorpus},
		{
			name:     "zero alpha",
			examples: valid,
			opts:     func(o *Options) { o.Alpha = 0 },
			wantErr:  bayes.ErrInvalidAlpha,
		},
		{
			name: "one example per class",
			examples: []Example{
				{Subject: "free money", Label: "spam"},
				{Subject: "lunch meeting", Label: "ham"},
			},
			opts:    func(o *Options) { *o = DefaultOptions() },
			wantErr: ErrInvalidSplit,
		},
		{
			name:     "bad fraction",
			examples: valid,
			opts:     func(o *Options) { o.TestFraction = 1 },
			wantErr:  ErrInvalidSplit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			a, report, err := Train(context.Background(), tt.examples, opts, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
			assert.Nil(t, a)
			assert.Nil(t, report)
		})
	}
}

func TestTrain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, _, err := Train(ctx, syntheticCorpus(5), testOptions(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, a)
}

func TestEvaluateArtifact(t *testing.T) {
	a, _, err := Train(context.Background(), syntheticCorpus(10), testOptions(), nil)
	require.NoError(t, err)

	spamOnly := []Example{
		{Subject: "free prize", Message: "win money now", Label: "spam"},
		{Subject: "FREE money", Message: "claim your prize", Label: "spam"},
	}

	report, err := EvaluateArtifact(context.Background(), a, spamOnly, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Support)
	assert.Equal(t, 1.0, report.Accuracy)
	assert.Equal(t, [2][2]int{{0, 0}, {0, 2}}, report.Confusion)
}

func TestPrepare(t *testing.T) {
	examples := []Example{
		{Subject: "Limited offer", Message: "free money for you", Label: "spam"},
		{Subject: "ok\xffthen", Message: "short", Label: "ham"},
	}

	got := Prepare(examples, utils.NewTextProcessor(zap.NewNop(), 10))

	assert.Equal(t, Example{Subject: "Limited of", Message: "free money", Label: "spam"}, got[0])
	assert.Equal(t, Example{Subject: "okthen", Message: "short", Label: "ham"}, got[1])
	assert.Equal(t, "Limited offer", examples[0].Subject)
}

func TestTrain_BodyLimitMatchesServing(t *testing.T) {
	examples := syntheticCorpus(8)
	for i := range examples {
		examples[i].Message = "short " + examples[i].Message
	}
	limited := testOptions()
	limited.MaxBodySize = 6

	cut := make([]Example, len(examples))
	for i, e := range examples {
		cut[i] = Example{Subject: e.Subject[:6], Message: "short", Label: e.Label}
	}

	a, _, err := Train(context.Background(), examples, limited, nil)
	require.NoError(t, err)
	want, _, err := Train(context.Background(), cut, testOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, want.Model.State(), a.Model.State())
}

func TestExample_Text(t *testing.T) {
	ex := Example{Subject: "  Hello ", Message: " world  "}
	assert.Equal(t, "Hello\nworld", ex.Text())
	assert.Equal(t, "hello world", text.Normalize(ex.Text()))
}
