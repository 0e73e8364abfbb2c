// Package text turns raw email text into the canonical form that the feature
// hasher consumes. Training and scoring must share these functions byte for byte.
package text

import (
	"regexp"
	"strings"
)

// Placeholder tokens substituted for URLs, addresses and digit runs. They are
// lowercase letters only so that normalizing twice yields the same output.
const (
	PlaceholderURL   = "url"
	PlaceholderEmail = "email"
	PlaceholderNum   = "num"
)

var (
	urlPattern   = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailPattern = regexp.MustCompile(`\S+@\S+`)
	digitPattern = regexp.MustCompile(`\d+`)
)

// Normalize lowercases s, replaces URLs, email addresses and digit runs with
// placeholders, turns every other non-letter into a separator and collapses
// whitespace. The steps run in that order: URL and address detection need the
// punctuation that the last step removes.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = urlPattern.ReplaceAllLiteralString(s, " "+PlaceholderURL+" ")
	s = emailPattern.ReplaceAllLiteralString(s, " "+PlaceholderEmail+" ")
	s = digitPattern.ReplaceAllLiteralString(s, " "+PlaceholderNum+" ")

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if r < 'a' || r > 'z' {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// NormalizePtr treats a nil string as empty
func NormalizePtr(s *string) string {
	if s == nil {
		return ""
	}
	return Normalize(*s)
}

// Tokens splits normalized text on whitespace
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}
