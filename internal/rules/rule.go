// Package rules defines the ordered rule model, its persisted form, and
// the frontmatter matcher.
//
// Rule order is semantically significant: the first enabled rule whose
// condition holds against a note's metadata wins, and later rules are
// never evaluated. Reordering is a caller concern; this package only
// consumes the ordered sequence.
package rules

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MatchType selects the string relation used to evaluate a rule.
type MatchType string

const (
	MatchEquals     MatchType = "equals"
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts-with"
	MatchEndsWith   MatchType = "ends-with"
	MatchRegex      MatchType = "regex"
)

// ConflictResolution selects how a destination collision is handled.
type ConflictResolution string

const (
	ConflictFail            ConflictResolution = "fail"
	ConflictSkip            ConflictResolution = "skip"
	ConflictAppendNumber    ConflictResolution = "append-number"
	ConflictAppendTimestamp ConflictResolution = "append-timestamp"
)

// ConditionOperator combines a rule's primary condition with its
// sub-conditions.
type ConditionOperator string

const (
	OperatorAnd ConditionOperator = "AND"
	OperatorOr  ConditionOperator = "OR"
)

// Condition is an additional predicate attached to a rule.
type Condition struct {
	Key             string    `json:"key"`
	MatchType       MatchType `json:"matchType"`
	Value           string    `json:"value"`
	Flags           string    `json:"flags,omitempty"`
	CaseInsensitive bool      `json:"caseInsensitive,omitempty"`
}

// Rule is the persisted form of a user-defined rule. Regex values are
// decomposed into (Value, Flags); the legacy IsRegex boolean is migrated
// to MatchType on load by Normalize.
type Rule struct {
	Key                string             `json:"key"`
	MatchType          MatchType          `json:"matchType"`
	Value              string             `json:"value"`
	Flags              string             `json:"flags,omitempty"`
	IsRegex            bool               `json:"isRegex,omitempty"`
	Destination        string             `json:"destination"`
	Enabled            bool               `json:"enabled"`
	CaseInsensitive    bool               `json:"caseInsensitive,omitempty"`
	Debug              bool               `json:"debug,omitempty"`
	ConflictResolution ConflictResolution `json:"conflictResolution,omitempty"`
	Conditions         []Condition        `json:"conditions,omitempty"`
	ConditionOperator  ConditionOperator  `json:"conditionOperator,omitempty"`
}

// deniedKeys is the defensive key denylist: these names are never honored
// as match keys regardless of what the metadata or rule says.
var deniedKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// KeyDenied reports whether a metadata key is on the defensive denylist.
func KeyDenied(key string) bool {
	_, ok := deniedKeys[key]
	return ok
}

// Normalize migrates legacy serialized state in place and restores the
// serialized-form invariant: matchType=regex always carries isRegex=true
// and a flags string; any other matchType carries no regex-only fields.
func (r *Rule) Normalize() {
	if r.MatchType == "" {
		if r.IsRegex {
			r.MatchType = MatchRegex
		} else {
			r.MatchType = MatchEquals
		}
	}
	if r.MatchType == MatchRegex {
		r.IsRegex = true
	} else {
		r.IsRegex = false
		r.Flags = ""
	}
	if len(r.Conditions) > 0 && r.ConditionOperator == "" {
		r.ConditionOperator = OperatorAnd
	}
}

// Validate checks the rule's enum fields. Destination may be empty; an
// empty destination makes the rule a no-op, not an error.
func (r Rule) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required),
		validation.Field(&r.MatchType, validation.Required, validation.In(
			MatchEquals, MatchContains, MatchStartsWith, MatchEndsWith, MatchRegex)),
		validation.Field(&r.ConflictResolution, validation.In(
			ConflictResolution(""), ConflictFail, ConflictSkip, ConflictAppendNumber, ConflictAppendTimestamp)),
		validation.Field(&r.ConditionOperator, validation.In(
			ConditionOperator(""), OperatorAnd, OperatorOr)),
	)
	if err != nil {
		return err
	}
	for i, c := range r.Conditions {
		if c.Key == "" {
			return fmt.Errorf("condition %d: key is required", i)
		}
		switch c.MatchType {
		case MatchEquals, MatchContains, MatchStartsWith, MatchEndsWith, MatchRegex:
		default:
			return fmt.Errorf("condition %d: unknown matchType %q", i, c.MatchType)
		}
	}
	return nil
}
