package core

import "errors"

var (
	// ErrEmptyInput is returned when a document reduces to an empty string after trimming
	ErrEmptyInput = errors.New("empty input")

	// ErrModelNotLoaded is returned when scoring is attempted without a loaded artifact
	ErrModelNotLoaded = errors.New("model not loaded")

	// ErrDimensionMismatch is returned when a feature vector and the model disagree on size.
	// It indicates a corrupted artifact or version skew and is never recovered from.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")

	// ErrEmptyCorpus is returned when training is attempted on zero examples
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrSingleClassCorpus is returned when the corpus holds fewer than two distinct labels
	ErrSingleClassCorpus = errors.New("corpus must contain both spam and ham examples")

	// ErrMissingField is returned when a training record lacks a usable label
	ErrMissingField = errors.New("missing or invalid field")

	// ErrUnknownLabel is returned when a label outside {ham, spam} reaches the model
	ErrUnknownLabel = errors.New("unknown label")
)
