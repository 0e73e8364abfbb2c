// Package features maps normalized text to fixed-size sparse count vectors using
// the hashing trick over word n-grams.
package features

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mikey/nb-spam-filter/internal/text"
	"github.com/spaolacci/murmur3"
)

// DefaultNFeatures is the bucket count used when none is configured (2^18)
const DefaultNFeatures = 1 << 18

// MaxNFeatures caps the bucket count. A model holds two float64 rows of this size.
const MaxNFeatures = 1 << 28

// ErrInvalidHasherConfig is returned for a bucket count outside (0, MaxNFeatures] or a bad n-gram range
var ErrInvalidHasherConfig = errors.New("invalid hasher configuration")

// NgramRange bounds the n-gram lengths, inclusive on both ends
type NgramRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultNgramRange produces unigrams and bigrams
var DefaultNgramRange = NgramRange{Min: 1, Max: 2}

// Hasher is a stateless vectorizer. Bucket placement uses MurmurHash3 (x86, 32-bit,
// seed 0) over the UTF-8 bytes of each n-gram, read as a signed integer and folded
// with abs() mod NFeatures. All contributions are +1; signs never alternate.
type Hasher struct {
	NFeatures  int
	NgramRange NgramRange
	StopWords  text.StopWords
}

// NewHasher creates a unigram+bigram hasher
func NewHasher(nFeatures int, stopWords text.StopWords) *Hasher {
	return &Hasher{
		NFeatures:  nFeatures,
		NgramRange: DefaultNgramRange,
		StopWords:  stopWords,
	}
}

// Validate checks the configuration
func (h *Hasher) Validate() error {
	if err := ValidateNFeatures(h.NFeatures); err != nil {
		return err
	}
	if h.NgramRange.Min < 1 || h.NgramRange.Max < h.NgramRange.Min {
		return fmt.Errorf("%w: ngram range (%d, %d)", ErrInvalidHasherConfig, h.NgramRange.Min, h.NgramRange.Max)
	}
	return nil
}

// ValidateNFeatures rejects bucket counts that are not positive or exceed MaxNFeatures
func ValidateNFeatures(n int) error {
	if n <= 0 || n > MaxNFeatures {
		return fmt.Errorf("%w: n_features must be in (0, %d], got %d", ErrInvalidHasherConfig, MaxNFeatures, n)
	}
	return nil
}

// Ngrams returns the n-grams of normalized text after stop-word removal. Removed
// words do not break adjacency: their neighbours form a bigram.
func (h *Hasher) Ngrams(normalized string) []string {
	tokens := text.Tokens(normalized)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !h.StopWords.Contains(tok) {
			kept = append(kept, tok)
		}
	}

	var ngrams []string
	for n := h.NgramRange.Min; n <= h.NgramRange.Max && n <= len(kept); n++ {
		for i := 0; i+n <= len(kept); i++ {
			ngrams = append(ngrams, strings.Join(kept[i:i+n], " "))
		}
	}
	return ngrams
}

// Transform hashes already-normalized text into a count vector
func (h *Hasher) Transform(normalized string) Vector {
	counts := make(map[int]float64)
	for _, gram := range h.Ngrams(normalized) {
		counts[Bucket(gram, h.NFeatures)]++
	}
	return NewVector(h.NFeatures, counts)
}

// TransformRaw normalizes raw text and hashes it
func (h *Hasher) TransformRaw(raw string) Vector {
	return h.Transform(text.Normalize(raw))
}

// Bucket returns the index of term in [0, nFeatures)
func Bucket(term string, nFeatures int) int {
	return fold(int32(murmur3.Sum32([]byte(term))), nFeatures)
}

// fold maps a signed hash to abs(h) mod nFeatures. MinInt32 has no positive
// counterpart and is placed at (MaxInt32 - (nFeatures-1)) mod nFeatures.
func fold(signed int32, nFeatures int) int {
	if signed == math.MinInt32 {
		return (math.MaxInt32 - (nFeatures - 1)) % nFeatures
	}
	if signed < 0 {
		signed = -signed
	}
	return int(signed) % nFeatures
}
