// Package safety post-filters model replies.
//
// The gate is a blunt pattern match over the final text. It catches the
// explicit phrasings it was configured with and nothing else, so it must not
// be treated as a safety guarantee.
package safety

import (
	"fmt"
	"regexp"

	"github.com/piskoqo/backend/internal/config"
)

// Gate replaces replies that match a disallowed pattern.
type Gate struct {
	pattern     *regexp.Regexp
	replacement string
}

// NewGate compiles policy.Pattern case-insensitively.
func NewGate(policy config.SafetyPolicy) (*Gate, error) {
	re, err := regexp.Compile("(?i)" + policy.Pattern)
	if err != nil {
		return nil, fmt.Errorf("compile safety pattern: %w", err)
	}
	return &Gate{pattern: re, replacement: policy.Replacement}, nil
}

// Check returns the text to send and whether it was replaced.
func (g *Gate) Check(reply string) (string, bool) {
	if g.pattern.MatchString(reply) {
		return g.replacement, true
	}
	return reply, false
}
