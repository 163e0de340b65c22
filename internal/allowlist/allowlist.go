package allowlist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether a URL host belongs to a trusted domain
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new allowlist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	// Normalize domains (lowercase, no trailing dot)
	normalized := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		d := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
		if d == "" {
			continue
		}
		normalized[d] = struct{}{}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized allowlist checker", zap.Int("domain_count", len(normalized)))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsAllowed reports whether host equals an allowlisted domain or is a
// subdomain of one
func (c *Checker) IsAllowed(host string) bool {
	if len(c.domains) == 0 {
		return false
	}

	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for candidate := host; candidate != ""; {
		if _, ok := c.domains[candidate]; ok {
			if c.logger != nil {
				c.logger.Debug("Host is allowlisted",
					zap.String("host", host),
					zap.String("domain", candidate))
			}
			return true
		}
		dot := strings.IndexByte(candidate, '.')
		if dot < 0 {
			break
		}
		candidate = candidate[dot+1:]
	}

	return false
}
