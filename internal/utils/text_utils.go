package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor prepares email bodies before they reach the classifier
type TextProcessor struct {
	logger      *zap.Logger
	maxBodySize int
}

// NewTextProcessor creates a new TextProcessor. A maxBodySize of 0 disables truncation.
func NewTextProcessor(logger *zap.Logger, maxBodySize int) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// TruncateText cuts text to at most maxSize bytes without splitting a rune.
// Nothing is appended, so no marker text can leak into the features.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	cut := maxSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 sequences
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")
	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// ProcessText sanitizes then truncates to the configured body size
func (tp *TextProcessor) ProcessText(text string) string {
	return tp.TruncateText(tp.SanitizeUTF8(text), tp.maxBodySize)
}
