package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/raido/internal/regexcheck"
)

// DefaultMatchTimeout bounds a single regex evaluation.
const DefaultMatchTimeout = 100 * time.Millisecond

// Matcher evaluates an ordered compiled rule set against note metadata.
type Matcher struct {
	timeout time.Duration
}

// NewMatcher creates a Matcher with the given regex match timeout;
// zero or negative selects DefaultMatchTimeout.
func NewMatcher(timeout time.Duration) *Matcher {
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}
	return &Matcher{timeout: timeout}
}

// Match scans rules in order and returns the first whose combined
// condition holds, or nil if none matches. Matching stops at the first
// hit: later rules are never evaluated, which gives users a predictable
// priority order.
func (m *Matcher) Match(metadata map[string]any, compiled []Compiled) *Compiled {
	for i := range compiled {
		c := &compiled[i]
		if !c.Rule.Enabled || KeyDenied(c.Rule.Key) {
			continue
		}
		if m.ruleHolds(metadata, c) {
			return c
		}
	}
	return nil
}

// ruleHolds combines the primary condition with any sub-conditions per
// the rule's operator.
func (m *Matcher) ruleHolds(metadata map[string]any, c *Compiled) bool {
	primary := m.evalCondition(metadata, c.Rule.Key, c.Rule.MatchType, c.Rule.Value,
		c.pattern, c.Rule.CaseInsensitive)

	if len(c.conditions) == 0 {
		return primary
	}

	if c.Rule.ConditionOperator == OperatorOr {
		if primary {
			return true
		}
		for _, cc := range c.conditions {
			if KeyDenied(cc.cond.Key) {
				continue
			}
			if m.evalCondition(metadata, cc.cond.Key, cc.cond.MatchType, cc.cond.Value,
				cc.pattern, cc.cond.CaseInsensitive) {
				return true
			}
		}
		return false
	}

	// AND: all must hold.
	if !primary {
		return false
	}
	for _, cc := range c.conditions {
		if KeyDenied(cc.cond.Key) {
			return false
		}
		if !m.evalCondition(metadata, cc.cond.Key, cc.cond.MatchType, cc.cond.Value,
			cc.pattern, cc.cond.CaseInsensitive) {
			return false
		}
	}
	return true
}

func (m *Matcher) evalCondition(metadata map[string]any, key string, mt MatchType,
	value string, pattern *regexcheck.Pattern, caseInsensitive bool) bool {

	raw, ok := metadata[key]
	if !ok || raw == nil {
		return false
	}

	elements, isArray := elementStrings(raw)
	if len(elements) == 0 {
		return false
	}

	if mt == MatchRegex {
		if pattern == nil {
			return false
		}
		for _, el := range elements {
			if pattern.MatchTimeout(el, m.timeout) {
				return true
			}
		}
		return false
	}

	candidates := candidateSet(value, isArray)
	for _, el := range elements {
		for _, cand := range candidates {
			if relationHolds(mt, el, cand, caseInsensitive) {
				return true
			}
		}
	}
	return false
}

// elementStrings flattens a metadata value into its element string forms.
func elementStrings(raw any) (elements []string, isArray bool) {
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			elements = append(elements, stringify(item))
		}
		return elements, true
	case []string:
		return append(elements, v...), true
	default:
		return []string{stringify(v)}, false
	}
}

// candidateSet builds the comparison candidates for a rule value. For
// array metadata the value is additionally tokenized on whitespace, so a
// rule value like "work urgent" matches a tag array containing either tag
// individually. Empty candidates are dropped: an empty value can never
// meaningfully equal, contain, start, or end anything.
func candidateSet(value string, isArray bool) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if !isArray {
		return []string{value}
	}

	seen := map[string]struct{}{}
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, tok := range strings.Fields(trimmed) {
		add(tok)
	}
	add(trimmed)
	return out
}

func relationHolds(mt MatchType, element, candidate string, caseInsensitive bool) bool {
	if caseInsensitive {
		element = strings.ToLower(element)
		candidate = strings.ToLower(candidate)
	}
	switch mt {
	case MatchEquals:
		return element == candidate
	case MatchContains:
		return strings.Contains(element, candidate)
	case MatchStartsWith:
		return strings.HasPrefix(element, candidate)
	case MatchEndsWith:
		return strings.HasSuffix(element, candidate)
	default:
		return false
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
