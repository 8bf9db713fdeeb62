package rules

import (
	"fmt"

	"github.com/starford/raido/internal/regexcheck"
)

// Compiled is a rule ready for evaluation: regex values are validated and
// compiled, legacy fields migrated.
type Compiled struct {
	Rule       Rule
	Index      int
	pattern    *regexcheck.Pattern
	conditions []compiledCondition
}

type compiledCondition struct {
	cond    Condition
	pattern *regexcheck.Pattern
}

// Issue records a per-rule compile failure. One malformed rule never
// disables the rest of the set.
type Issue struct {
	Index int
	Key   string
	Err   error
}

func (i Issue) String() string {
	return fmt.Sprintf("rule %d (%s): %v", i.Index, i.Key, i.Err)
}

// CompileAll normalizes, validates, and compiles every rule. Rules that
// fail are reported as Issues and excluded from the compiled set; their
// positions in the original ordering are preserved via Index.
func CompileAll(rs []Rule) ([]Compiled, []Issue) {
	var compiled []Compiled
	var issues []Issue

	for i := range rs {
		rs[i].Normalize()
		c, err := compileOne(rs[i], i)
		if err != nil {
			issues = append(issues, Issue{Index: i, Key: rs[i].Key, Err: err})
			continue
		}
		compiled = append(compiled, c)
	}
	return compiled, issues
}

func compileOne(r Rule, index int) (Compiled, error) {
	if err := r.Validate(); err != nil {
		return Compiled{}, err
	}

	c := Compiled{Rule: r, Index: index}

	if r.MatchType == MatchRegex {
		p, err := regexcheck.Compile(r.Value, r.Flags)
		if err != nil {
			return Compiled{}, fmt.Errorf("pattern: %w", err)
		}
		c.pattern = p
	}

	for _, cond := range r.Conditions {
		cc := compiledCondition{cond: cond}
		if cond.MatchType == MatchRegex {
			p, err := regexcheck.Compile(cond.Value, cond.Flags)
			if err != nil {
				return Compiled{}, fmt.Errorf("condition pattern: %w", err)
			}
			cc.pattern = p
		}
		c.conditions = append(c.conditions, cc)
	}

	return c, nil
}
