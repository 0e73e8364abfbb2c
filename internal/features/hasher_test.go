package features

import (
	"math"
	"testing"

	"github.com/spaolacci/murmur3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/nb-spam-filter/internal/text"
)

func newTestHasher(n int) *Hasher {
	return NewHasher(n, text.EnglishStopWords())
}

func TestHasher_Validate(t *testing.T) {
	tests := []struct {
		name    string
		hasher  Hasher
		wantErr bool
	}{
		{"default", Hasher{NFeatures: DefaultNFeatures, NgramRange: DefaultNgramRange}, false},
		{"zero features", Hasher{NFeatures: 0, NgramRange: DefaultNgramRange}, true},
		{"negative features", Hasher{NFeatures: -8, NgramRange: DefaultNgramRange}, true},
		{"max features", Hasher{NFeatures: MaxNFeatures, NgramRange: DefaultNgramRange}, false},
		{"too many features", Hasher{NFeatures: 1 << 40, NgramRange: DefaultNgramRange}, true},
		{"zero min", Hasher{NFeatures: 16, NgramRange: NgramRange{Min: 0, Max: 2}}, true},
		{"inverted range", Hasher{NFeatures: 16, NgramRange: NgramRange{Min: 2, Max: 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hasher.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidHasherConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHasher_Ngrams(t *testing.T) {
	h := newTestHasher(DefaultNFeatures)

	// "the" and "to" are stop words; their neighbours become adjacent
	got := h.Ngrams("claim the prize to win")
	assert.Equal(t, []string{"claim", "prize", "win", "claim prize", "prize win"}, got)

	assert.Equal(t, []string{"viagra"}, h.Ngrams("viagra"))
	assert.Empty(t, h.Ngrams(""))
	assert.Empty(t, h.Ngrams("the and of to"))
}

func TestHasher_NgramsUnigramOnly(t *testing.T) {
	h := &Hasher{NFeatures: 32, NgramRange: NgramRange{Min: 1, Max: 1}}
	assert.Equal(t, []string{"a", "b", "c"}, h.Ngrams("a b c"))
}

func TestHasher_Transform(t *testing.T) {
	h := newTestHasher(DefaultNFeatures)

	v := h.Transform("free money free money")
	// unigrams: free x2, money x2; bigrams: "free money" x2, "money free" x1
	assert.Equal(t, DefaultNFeatures, v.Dim)
	assert.Equal(t, 7.0, v.Sum())
	assert.Equal(t, 2.0, v.At(Bucket("free", DefaultNFeatures)))
	assert.Equal(t, 2.0, v.At(Bucket("free money", DefaultNFeatures)))
	assert.Equal(t, 1.0, v.At(Bucket("money free", DefaultNFeatures)))

	for i := 1; i < len(v.Indices); i++ {
		assert.Less(t, v.Indices[i-1], v.Indices[i])
	}
	for _, val := range v.Values {
		assert.Greater(t, val, 0.0)
	}
}

func TestHasher_Deterministic(t *testing.T) {
	h := newTestHasher(DefaultNFeatures)
	in := text.Normalize("Claim your prize now!!! Click http://win.biz")

	a := h.Transform(in)
	b := newTestHasher(DefaultNFeatures).Transform(in)
	assert.True(t, a.Equal(b))
}

func TestHasher_ZeroVector(t *testing.T) {
	h := newTestHasher(DefaultNFeatures)

	assert.True(t, h.Transform("").IsZero())
	assert.True(t, h.Transform("the of and you").IsZero())
	assert.True(t, h.TransformRaw("  !!! ").IsZero())
	assert.Equal(t, DefaultNFeatures, h.Transform("").Dim)
}

func TestHasher_CollisionsAccumulate(t *testing.T) {
	// two buckets force heavy collisions; totals must still equal the n-gram count
	h := newTestHasher(2)
	grams := h.Ngrams("alpha beta gamma delta epsilon")
	v := h.Transform("alpha beta gamma delta epsilon")

	assert.Equal(t, float64(len(grams)), v.Sum())
	assert.LessOrEqual(t, v.NNZ(), 2)
}

func TestBucket_KnownValues(t *testing.T) {
	// MurmurHash3 x86_32, seed 0, read as int32 then abs mod n
	tests := []struct {
		term   string
		sum    uint32
		bucket int
	}{
		{"", 0, 0},
		{"hello", 0x248bfa47, 260679},
		{"ham", 0x5362cff1, 184305},
		{"spam", 0xa1bd0758, 194728},
		{"free money", 0xca0a1f48, 123064},
		{"num num", 0xe6da4205, 114171},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.sum, murmur3.Sum32([]byte(tt.term)))
			assert.Equal(t, tt.bucket, Bucket(tt.term, DefaultNFeatures))
		})
	}

	assert.Equal(t, 336, Bucket("spam", 1000))
	assert.Equal(t, 689, Bucket("ham", 1000))
}

func TestFold(t *testing.T) {
	assert.Equal(t, 3, fold(7, 4))
	assert.Equal(t, 5, fold(-5, 16))
	assert.Equal(t, 0, fold(math.MaxInt32, 1))
	assert.Equal(t, 648, fold(math.MinInt32, 1000))
	assert.Equal(t, 0, fold(math.MinInt32, DefaultNFeatures))
	assert.Equal(t, 2, fold(math.MinInt32, 3))
}

func TestBucket(t *testing.T) {
	assert.Equal(t, 0, Bucket("", 16))

	for _, term := range []string{"spam", "ham", "free money", "url", "num num"} {
		b := Bucket(term, 1000)
		require.GreaterOrEqual(t, b, 0)
		require.Less(t, b, 1000)
		assert.Equal(t, b, Bucket(term, 1000))
	}
}

func TestVector(t *testing.T) {
	v := NewVector(10, map[int]float64{7: 2, 1: 1, 4: 0})

	assert.Equal(t, []int{1, 7}, v.Indices)
	assert.Equal(t, []float64{1, 2}, v.Values)
	assert.Equal(t, 2, v.NNZ())
	assert.Equal(t, 0.0, v.At(4))
	assert.Equal(t, 2.0, v.At(7))
	assert.False(t, v.IsZero())
	assert.False(t, v.Equal(NewVector(11, map[int]float64{7: 2, 1: 1})))
	assert.True(t, v.Equal(NewVector(10, map[int]float64{1: 1, 7: 2})))
}
