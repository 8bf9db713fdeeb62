package rules

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalize_LegacyIsRegex(t *testing.T) {
	r := Rule{Key: "status", IsRegex: true, Value: "^done$"}
	r.Normalize()
	if r.MatchType != MatchRegex {
		t.Errorf("matchType = %q, want regex", r.MatchType)
	}
	if !r.IsRegex {
		t.Error("regex rule must keep isRegex=true")
	}
}

func TestNormalize_DefaultsToEquals(t *testing.T) {
	r := Rule{Key: "status", Value: "done"}
	r.Normalize()
	if r.MatchType != MatchEquals {
		t.Errorf("matchType = %q, want equals", r.MatchType)
	}
}

func TestNormalize_StripsRegexFieldsFromPlainRules(t *testing.T) {
	r := Rule{Key: "status", MatchType: MatchContains, Flags: "i", IsRegex: true}
	r.Normalize()
	if r.IsRegex || r.Flags != "" {
		t.Errorf("plain rule kept regex fields: isRegex=%v flags=%q", r.IsRegex, r.Flags)
	}
}

func TestNormalize_ConditionOperatorDefault(t *testing.T) {
	r := Rule{Key: "a", MatchType: MatchEquals, Conditions: []Condition{{Key: "b", MatchType: MatchEquals}}}
	r.Normalize()
	if r.ConditionOperator != OperatorAnd {
		t.Errorf("operator = %q, want AND", r.ConditionOperator)
	}
}

func TestValidate_UnknownMatchType(t *testing.T) {
	r := Rule{Key: "status", MatchType: "magic"}
	if err := r.Validate(); err == nil {
		t.Error("expected validation error")
	}
}

func TestValidate_ConditionFields(t *testing.T) {
	r := Rule{Key: "a", MatchType: MatchEquals,
		Conditions: []Condition{{Key: "", MatchType: MatchEquals}}}
	if err := r.Validate(); err == nil {
		t.Error("expected error for empty condition key")
	}
}

func TestRoundTrip(t *testing.T) {
	in := []Rule{
		{Key: "status", MatchType: MatchEquals, Value: "done", Destination: "Archive", Enabled: true},
		{Key: "tags", MatchType: MatchRegex, Value: "^proj-", Flags: "i", IsRegex: true,
			Destination: "Projects/{project}", Enabled: true, Debug: true,
			ConflictResolution: ConflictAppendNumber},
		{Key: "type", MatchType: MatchContains, Value: "meeting", Destination: "Meetings",
			Enabled: false, CaseInsensitive: true,
			Conditions:        []Condition{{Key: "status", MatchType: MatchEquals, Value: "done"}},
			ConditionOperator: OperatorOr},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []Rule
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n in: %+v\nout: %+v", in, out)
	}
}

func TestCompileAll_CollectsIssuesPerRule(t *testing.T) {
	rs := []Rule{
		{Key: "a", MatchType: MatchEquals, Value: "x", Enabled: true},
		{Key: "bad", MatchType: MatchRegex, Value: "(unclosed", Enabled: true},
		{Key: "worse", MatchType: MatchRegex, Value: "(a+)+", Enabled: true},
		{Key: "b", MatchType: MatchEquals, Value: "y", Enabled: true},
	}
	compiled, issues := CompileAll(rs)
	if len(compiled) != 2 {
		t.Fatalf("compiled = %d, want 2", len(compiled))
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %d, want 2", len(issues))
	}
	if issues[0].Index != 1 || issues[1].Index != 2 {
		t.Errorf("issue indices = %d, %d", issues[0].Index, issues[1].Index)
	}
	// Surviving rules keep their original positions.
	if compiled[0].Index != 0 || compiled[1].Index != 3 {
		t.Errorf("compiled indices = %d, %d", compiled[0].Index, compiled[1].Index)
	}
}

func TestKeyDenied(t *testing.T) {
	for _, k := range []string{"__proto__", "constructor", "prototype"} {
		if !KeyDenied(k) {
			t.Errorf("%q should be denied", k)
		}
	}
	if KeyDenied("status") {
		t.Error("status should not be denied")
	}
}
