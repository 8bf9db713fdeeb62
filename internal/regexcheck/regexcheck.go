// Package regexcheck statically screens user-supplied regular expressions
// before compiling them, and provides a bounded-time match as a second line
// of defense.
//
// The static checks reject shapes known to backtrack catastrophically in
// other engines. Go's regexp is linear-time, but rule files are portable
// and a pattern that passes here must be safe to evaluate anywhere the
// vault is opened.
package regexcheck

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Static limits, checked in order before compilation.
const (
	MaxPatternLength = 500
	MaxCaptureGroups = 20
	MaxAlternations  = 50
	MaxNestingDepth  = 10
)

// ErrorKind distinguishes static rejection from compile failure.
type ErrorKind string

const (
	KindTooLong     ErrorKind = "too-long"
	KindDangerous   ErrorKind = "dangerous"
	KindTooComplex  ErrorKind = "too-complex"
	KindSyntax      ErrorKind = "syntax"
	KindInvalidFlag ErrorKind = "invalid-flag"
)

// ValidationError reports why a pattern was rejected.
type ValidationError struct {
	Kind    ErrorKind
	Pattern string
	Detail  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("unsafe pattern: %s (%s)", e.Kind, e.Detail)
}

// Pattern wraps a compiled regular expression. Matching through Pattern is
// stateless, so a compiled value can be shared across notes freely; there
// is no scan cursor to reset.
type Pattern struct {
	re       *regexp.Regexp
	Source   string
	Flags    string
	Warnings []string
}

// Dangerous backtracking shapes. These are deliberately conservative
// heuristics over the pattern text, applied after escape sequences are
// masked out; an unusual but safe pattern may be rejected.
var dangerousShapes = []struct {
	re     *regexp.Regexp
	detail string
}{
	{regexp.MustCompile(`\([^()]*[+*]\)[+*]`), "nested quantifier like (x+)+"},
	{regexp.MustCompile(`[+*][+*]`), "doubled quantifier"},
	{regexp.MustCompile(`\(([^()|]+)\|\1\)[+*]`), "quantified duplicate alternation like (a|a)+"},
	{regexp.MustCompile(`\([^()]*\([^()]*[+*][^()]*\)[^()]*[+*][^()]*\)`), "doubly-nested quantified group"},
}

var slowShape = regexp.MustCompile(`\.[+*][^()\[\]]*\.[+*]`)

// Compile validates pattern (with JS-style flags) and compiles it.
// Flags: i (case-insensitive), m (multiline), s (dot matches newline),
// g and u are accepted and ignored — Go matching is stateless and
// Unicode-aware by default.
func Compile(pattern, flags string) (*Pattern, error) {
	if len(pattern) > MaxPatternLength {
		return nil, &ValidationError{Kind: KindTooLong, Pattern: pattern,
			Detail: fmt.Sprintf("length %d exceeds %d", len(pattern), MaxPatternLength)}
	}

	masked := maskEscapes(pattern)

	for _, shape := range dangerousShapes {
		if shape.re.MatchString(masked) {
			return nil, &ValidationError{Kind: KindDangerous, Pattern: pattern, Detail: shape.detail}
		}
	}

	if groups := strings.Count(masked, "("); groups > MaxCaptureGroups {
		return nil, &ValidationError{Kind: KindTooComplex, Pattern: pattern,
			Detail: fmt.Sprintf("%d capturing groups exceed %d", groups, MaxCaptureGroups)}
	}
	if alts := strings.Count(masked, "|"); alts > MaxAlternations {
		return nil, &ValidationError{Kind: KindTooComplex, Pattern: pattern,
			Detail: fmt.Sprintf("%d alternations exceed %d", alts, MaxAlternations)}
	}
	if depth := nestingDepth(masked); depth > MaxNestingDepth {
		return nil, &ValidationError{Kind: KindTooComplex, Pattern: pattern,
			Detail: fmt.Sprintf("nesting depth %d exceeds %d", depth, MaxNestingDepth)}
	}

	var warnings []string
	if slowShape.MatchString(masked) {
		warnings = append(warnings, "consecutive unbounded wildcards may be slow on large inputs")
	}

	prefix, err := flagPrefix(flags)
	if err != nil {
		return nil, &ValidationError{Kind: KindInvalidFlag, Pattern: pattern, Detail: err.Error()}
	}

	re, err := regexp.Compile(prefix + pattern)
	if err != nil {
		return nil, &ValidationError{Kind: KindSyntax, Pattern: pattern, Detail: err.Error()}
	}

	return &Pattern{re: re, Source: pattern, Flags: flags, Warnings: warnings}, nil
}

// MatchString tests input against the pattern. Stateless.
func (p *Pattern) MatchString(input string) bool {
	return p.re.MatchString(input)
}

// MatchTimeout races the match against a timer. Both a timeout and a
// runtime panic inside the engine are treated as "no match"; the caller
// never sees an error. The timer goroutine is always released.
func (p *Pattern) MatchTimeout(input string, timeout time.Duration) bool {
	if timeout <= 0 {
		return p.MatchString(input)
	}

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if recover() != nil {
				done <- false
			}
		}()
		done <- p.re.MatchString(input)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case matched := <-done:
		return matched
	case <-timer.C:
		return false
	}
}

// maskEscapes replaces backslash escapes with a placeholder so the static
// scanners never mistake \( \| \+ for structure.
func maskEscapes(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '\\' && i+1 < len(pattern) {
			b.WriteString("__")
			i++
			continue
		}
		b.WriteByte(pattern[i])
	}
	return b.String()
}

// nestingDepth returns the maximum parenthesis nesting depth of a masked
// pattern.
func nestingDepth(masked string) int {
	depth, max := 0, 0
	for i := 0; i < len(masked); i++ {
		switch masked[i] {
		case '(':
			depth++
			if depth > max {
				max = depth
			}
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return max
}

// flagPrefix maps JS-style flags onto a Go inline flag group.
func flagPrefix(flags string) (string, error) {
	var goFlags strings.Builder
	for _, f := range flags {
		switch f {
		case 'i':
			goFlags.WriteRune('i')
		case 'm':
			goFlags.WriteRune('m')
		case 's':
			goFlags.WriteRune('s')
		case 'g', 'u':
			// No-op under stateless, Unicode-aware matching.
		default:
			return "", fmt.Errorf("unsupported flag %q", string(f))
		}
	}
	if goFlags.Len() == 0 {
		return "", nil
	}
	return "(?" + goFlags.String() + ")", nil
}
