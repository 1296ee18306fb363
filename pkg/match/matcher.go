// Package match filters drive items by display name using glob patterns.
package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates include and exclude patterns against item names.
//
//   - Include patterns: a name must match at least one (none = match all)
//   - Exclude patterns: a name must not match any
//
// Patterns use doublestar syntax. Display names are matched as-is, so a
// name containing '/' is treated as a path by "**".
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes      []string
	excludes      []string
	excludeHidden bool
	ignoreCase    bool
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns a name must match (at least one).
	// Empty means every name is included.
	Includes []string

	// Excludes are glob patterns a name must not match (any).
	Excludes []string

	// ExcludeHidden skips names starting with '.'.
	ExcludeHidden bool

	// IgnoreCase matches patterns case-insensitively.
	IgnoreCase bool
}

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a Matcher from cfg. Blank patterns are ignored.
func New(cfg Config) (*Matcher, error) {
	includes, err := compile(cfg.Includes, cfg.IgnoreCase)
	if err != nil {
		return nil, err
	}
	excludes, err := compile(cfg.Excludes, cfg.IgnoreCase)
	if err != nil {
		return nil, err
	}
	return &Matcher{
		includes:      includes,
		excludes:      excludes,
		excludeHidden: cfg.ExcludeHidden,
		ignoreCase:    cfg.IgnoreCase,
	}, nil
}

// Match reports whether name passes the filter. A nil Matcher matches
// everything.
func (m *Matcher) Match(name string) bool {
	if m == nil {
		return true
	}
	if m.excludeHidden && strings.HasPrefix(name, ".") {
		return false
	}
	if m.ignoreCase {
		name = strings.ToLower(name)
	}

	if len(m.includes) > 0 && !matchAny(m.includes, name) {
		return false
	}
	return !matchAny(m.excludes, name)
}

// IsEmpty reports whether the matcher lets every name through.
func (m *Matcher) IsEmpty() bool {
	return m == nil || (len(m.includes) == 0 && len(m.excludes) == 0 && !m.excludeHidden)
}

// IncludePatterns returns the compiled include patterns.
func (m *Matcher) IncludePatterns() []string {
	return append([]string(nil), m.includes...)
}

// ExcludePatterns returns the compiled exclude patterns.
func (m *Matcher) ExcludePatterns() []string {
	return append([]string(nil), m.excludes...)
}

func compile(raw []string, ignoreCase bool) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if ignoreCase {
			p = strings.ToLower(p)
		}
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
		out = append(out, p)
	}
	return out, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		// Patterns were validated in New, so Match cannot fail here.
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
