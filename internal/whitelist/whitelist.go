package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether a sender bypasses classification
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		normalized[domain] = struct{}{}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized whitelist checker", zap.Int("domains", len(normalized)))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsWhitelisted checks if the sender's domain is in the whitelist.
// Accepts both bare addresses and "Name <user@example.com>".
func (c *Checker) IsWhitelisted(from string) bool {
	if c == nil || len(c.domains) == 0 {
		return false
	}

	address := ExtractAddress(from)
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return false
	}
	domain := strings.ToLower(parts[1])

	if _, ok := c.domains[domain]; ok {
		if c.logger != nil {
			c.logger.Debug("Domain is whitelisted",
				zap.String("domain", domain),
				zap.String("email", from))
		}
		return true
	}

	return false
}

// ExtractAddress pulls the address out of "Name <email@example.com>"
func ExtractAddress(s string) string {
	start := strings.LastIndex(s, "<")
	end := strings.LastIndex(s, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(s[start+1 : end])
	}
	return strings.TrimSpace(s)
}
