package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChecker_IsWhitelisted(t *testing.T) {
	checker := NewChecker([]string{" Example.com ", "trusted.org", ""}, zap.NewNop())

	tests := []struct {
		from string
		want bool
	}{
		{"user@example.com", true},
		{"USER@EXAMPLE.COM", true},
		{"Alice <alice@trusted.org>", true},
		{"\"Bob, Jr.\" <bob@trusted.org>", true},
		{"user@sub.example.com", false},
		{"user@example.com.evil.net", false},
		{"not-an-address", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.IsWhitelisted(tt.from))
		})
	}
}

func TestChecker_Empty(t *testing.T) {
	assert.False(t, NewChecker(nil, nil).IsWhitelisted("user@example.com"))

	var checker *Checker
	assert.False(t, checker.IsWhitelisted("user@example.com"))
}

func TestExtractAddress(t *testing.T) {
	assert.Equal(t, "a@b.c", ExtractAddress("Name <a@b.c>"))
	assert.Equal(t, "a@b.c", ExtractAddress("  a@b.c "))
	assert.Equal(t, "<broken", ExtractAddress("<broken"))
}
