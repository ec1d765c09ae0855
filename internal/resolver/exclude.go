package resolver

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dlclark/regexp2"
)

// matchTimeout bounds a single backtracking match.
const matchTimeout = time.Second

// pythonGroupSyntax rewrites the Python-only group forms to the spelling
// regexp2 understands.
var pythonGroupSyntax = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\(\?P<(\w+)>`), `(?<$1>`},
	{regexp.MustCompile(`\(\?P=(\w+)\)`), `\k<$1>`},
}

// ExclusionSet drops imports whose dotted name matches any pattern. Patterns
// use Python re syntax, including lookaround and backreferences, and are
// anchored at the start of the name only, so "greetings*" also matches
// "greetings.greeting".
type ExclusionSet struct {
	patterns []string
	compiled []*regexp2.Regexp
}

// NewExclusionSet compiles patterns. Duplicate patterns are kept once.
func NewExclusionSet(patterns []string) (*ExclusionSet, error) {
	s := &ExclusionSet{}
	seen := make(map[string]bool)
	for _, p := range patterns {
		if seen[p] {
			continue
		}
		seen[p] = true
		re, err := regexp2.Compile(`^(?:`+translatePattern(p)+`)`, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		re.MatchTimeout = matchTimeout
		s.patterns = append(s.patterns, p)
		s.compiled = append(s.compiled, re)
	}
	return s, nil
}

func translatePattern(p string) string {
	for _, g := range pythonGroupSyntax {
		p = g.re.ReplaceAllString(p, g.repl)
	}
	return p
}

// Patterns returns the source patterns in the order they were added.
func (s *ExclusionSet) Patterns() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.patterns...)
}

// Match reports whether name is excluded. A nil set excludes nothing. The
// only error is a match that exceeded its time budget.
func (s *ExclusionSet) Match(name string) (bool, error) {
	if s == nil {
		return false, nil
	}
	for i, re := range s.compiled {
		ok, err := re.MatchString(name)
		if err != nil {
			return false, fmt.Errorf("exclude pattern %q: %w", s.patterns[i], err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
