package connector

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/isometry/terraform-provider-dccon/internal/dcerr"
)

// Matcher selects names by a case-insensitive glob pattern. The zero value
// and the empty pattern match everything.
type Matcher struct {
	pattern string
	g       glob.Glob
}

// NewMatcher compiles pattern. Supported syntax is that of gobwas/glob:
// *, ?, [a-z], {alt1,alt2}.
func NewMatcher(pattern string) (Matcher, error) {
	if pattern == "" || pattern == "*" {
		return Matcher{}, nil
	}
	lower := strings.ToLower(pattern)
	g, err := glob.Compile(lower)
	if err != nil {
		return Matcher{}, dcerr.Precondition("compile_match", pattern, "invalid pattern: %v", err)
	}
	return Matcher{pattern: lower, g: g}, nil
}

// Match reports whether name is selected.
func (m Matcher) Match(name string) bool {
	if m.g == nil {
		return true
	}
	return m.g.Match(strings.ToLower(name))
}

func (m Matcher) String() string {
	if m.g == nil {
		return "*"
	}
	return m.pattern
}
