package artifact

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/mikey/nb-spam-filter/internal/bayes"
	"github.com/mikey/nb-spam-filter/internal/core"
	"github.com/mikey/nb-spam-filter/internal/features"
)

const formatVersion = 1

var magic = []byte("NBSF")

// maxHeaderSize bounds the JSON header read from an untrusted stream
const maxHeaderSize = 16 << 20

// header is everything except the per-class feature weights
type header struct {
	FormatVersion int          `json:"format_version"`
	Hasher        HasherConfig `json:"hasher"`
	Metadata      Metadata     `json:"metadata"`
	Alpha         float64      `json:"alpha"`
	Classes       []core.Label `json:"classes"`
	ClassCount    []float64    `json:"class_count"`
	ClassLogPrior []float64    `json:"class_log_prior"`
}

// Encode writes the artifact as: magic, format byte, then a zstd stream holding a
// length-prefixed JSON header followed by little-endian float64 weights, one block
// of n_features values per class.
func Encode(w io.Writer, a *Artifact) error {
	if a == nil || a.Model == nil {
		return fmt.Errorf("%w: nothing to encode", ErrInvalidArtifact)
	}

	state := a.Model.State()
	h := header{
		FormatVersion: formatVersion,
		Hasher:        a.Hasher,
		Metadata:      a.Metadata,
		Alpha:         state.Alpha,
		Classes:       state.Classes,
		ClassCount:    state.ClassCount,
		ClassLogPrior: state.ClassLogPrior,
	}
	headerBytes, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact header: %w", err)
	}

	if _, err := w.Write(append(append([]byte(nil), magic...), formatVersion)); err != nil {
		return fmt.Errorf("failed to write artifact preamble: %w", err)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	bw := bufio.NewWriter(enc)

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(headerBytes))); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write header length: %w", err)
	}
	if _, err := bw.Write(headerBytes); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range state.FeatureLogProb {
		if err := binary.Write(bw, binary.LittleEndian, row); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write feature weights: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("failed to flush artifact: %w", err)
	}

	return enc.Close()
}

// Decode reads an artifact written by Encode
func Decode(r io.Reader) (*Artifact, error) {
	preamble := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return nil, fmt.Errorf("%w: reading preamble: %v", ErrInvalidArtifact, err)
	}
	if !bytes.Equal(preamble[:len(magic)], magic) {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidArtifact)
	}
	if preamble[len(magic)] != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrInvalidArtifact, preamble[len(magic)])
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	defer dec.Close()
	br := bufio.NewReader(dec)

	var headerLen uint32
	if err := binary.Read(br, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("%w: reading header length: %v", ErrInvalidArtifact, err)
	}
	if headerLen == 0 || headerLen > maxHeaderSize {
		return nil, fmt.Errorf("%w: header length %d", ErrInvalidArtifact, headerLen)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(br, headerBytes); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidArtifact, err)
	}

	var h header
	if err := json.Unmarshal(headerBytes, &h); err != nil {
		return nil, fmt.Errorf("%w: parsing header: %v", ErrInvalidArtifact, err)
	}
	hasher := features.Hasher{NFeatures: h.Hasher.NFeatures, NgramRange: h.Hasher.NgramRange}
	if err := hasher.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if len(h.Classes) != len(core.Labels) {
		return nil, fmt.Errorf("%w: expected %d classes, got %d", ErrInvalidArtifact, len(core.Labels), len(h.Classes))
	}

	state := bayes.State{
		NFeatures:      h.Hasher.NFeatures,
		Alpha:          h.Alpha,
		Classes:        h.Classes,
		ClassCount:     h.ClassCount,
		ClassLogPrior:  h.ClassLogPrior,
		FeatureLogProb: make([][]float64, len(h.Classes)),
	}
	for c := range state.FeatureLogProb {
		row := make([]float64, h.Hasher.NFeatures)
		if err := binary.Read(br, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("%w: reading weights of class %d: %v", ErrInvalidArtifact, c, err)
		}
		state.FeatureLogProb[c] = row
	}

	model, err := bayes.FromState(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}

	return &Artifact{Hasher: h.Hasher, Model: model, Metadata: h.Metadata}, nil
}
