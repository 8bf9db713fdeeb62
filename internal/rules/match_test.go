package rules

import (
	"testing"
)

func compile(t *testing.T, rs []Rule) []Compiled {
	t.Helper()
	compiled, issues := CompileAll(rs)
	if len(issues) != 0 {
		t.Fatalf("compile issues: %v", issues)
	}
	return compiled
}

func TestMatch_EqualsScalar(t *testing.T) {
	m := NewMatcher(0)
	compiled := compile(t, []Rule{
		{Key: "status", MatchType: MatchEquals, Value: "done", Destination: "Archive", Enabled: true},
	})

	if got := m.Match(map[string]any{"status": "done"}, compiled); got == nil {
		t.Error("expected match")
	}
	if got := m.Match(map[string]any{"status": "pending"}, compiled); got != nil {
		t.Error("expected no match")
	}
	if got := m.Match(map[string]any{}, compiled); got != nil {
		t.Error("absent key must not match")
	}
	if got := m.Match(map[string]any{"status": nil}, compiled); got != nil {
		t.Error("null value must not match")
	}
}

func TestMatch_CaseInsensitive(t *testing.T) {
	m := NewMatcher(0)
	compiled := compile(t, []Rule{
		{Key: "status", MatchType: MatchEquals, Value: "Done", CaseInsensitive: true, Enabled: true},
	})
	if got := m.Match(map[string]any{"status": "DONE"}, compiled); got == nil {
		t.Error("expected case-folded match")
	}
}

func TestMatch_FirstMatchWins(t *testing.T) {
	m := NewMatcher(0)
	compiled := compile(t, []Rule{
		{Key: "status", MatchType: MatchEquals, Value: "done", Destination: "First", Enabled: true},
		{Key: "status", MatchType: MatchEquals, Value: "done", Destination: "Second", Enabled: true},
	})
	got := m.Match(map[string]any{"status": "done"}, compiled)
	if got == nil || got.Rule.Destination != "First" {
		t.Errorf("got %+v, want first rule", got)
	}
}

func TestMatch_DisabledSkipped(t *testing.T) {
	m := NewMatcher(0)
	compiled := compile(t, []Rule{
		{Key: "status", MatchType: MatchEquals, Value: "done", Destination: "Off", Enabled: false},
		{Key: "status", MatchType: MatchEquals, Value: "done", Destination: "On", Enabled: true},
	})
	got := m.Match(map[string]any{"status": "done"}, compiled)
	if got == nil || got.Rule.Destination != "On" {
		t.Errorf("disabled rule must be skipped, got %+v", got)
	}
}

func TestMatch_DeniedKeyNeverMatches(t *testing.T) {
	m := NewMatcher(0)
	compiled := compile(t, []Rule{
		{Key: "__proto__", MatchType: MatchEquals, Value: "x", Enabled: true},
	})
	if got := m.Match(map[string]any{"__proto__": "x"}, compiled); got != nil {
		t.Error("denylisted key must never match")
	}
}

func TestMatch_ArrayCandidateTokenization(t *testing.T) {
	m := NewMatcher(0)
	compiled := compile(t, []Rule{
		{Key: "tags", MatchType: MatchEquals, Value: "work urgent", Enabled: true},
	})

	// Either token matches an array element individually.
	md := map[string]any{"tags": []any{"urgent", "client"}}
	if got := m.Match(md, compiled); got == nil {
		t.Error("token should match array element")
	}

	// The full trimmed value is also a candidate.
	md = map[string]any{"tags": []any{"work urgent"}}
	if got := m.Match(md, compiled); got == nil {
		t.Error("full value should match array element")
	}

	// Scalar metadata only compares the whole value.
	md = map[string]any{"tags": "urgent"}
	if got := m.Match(md, compiled); got != nil {
		t.Error("scalar metadata must not be tokenized")
	}
}

func TestMatch_EmptyValueNeverUniversal(t *testing.T) {
	m := NewMatcher(0)
	for _, mt := range []MatchType{MatchContains, MatchStartsWith, MatchEndsWith, MatchEquals} {
		compiled := compile(t, []Rule{
			{Key: "status", MatchType: mt, Value: "", Enabled: true},
		})
		if got := m.Match(map[string]any{"status": "anything"}, compiled); got != nil {
			t.Errorf("%s: empty rule value must not match", mt)
		}
	}
}

func TestMatch_StringRelations(t *testing.T) {
	m := NewMatcher(0)
	md := map[string]any{"title": "weekly standup notes"}

	cases := []struct {
		mt    MatchType
		value string
		want  bool
	}{
		{MatchContains, "standup", true},
		{MatchContains, "retro", false},
		{MatchStartsWith, "weekly", true},
		{MatchStartsWith, "standup", false},
		{MatchEndsWith, "notes", true},
		{MatchEndsWith, "weekly", false},
	}
	for _, tc := range cases {
		compiled := compile(t, []Rule{{Key: "title", MatchType: tc.mt, Value: tc.value, Enabled: true}})
		got := m.Match(md, compiled) != nil
		if got != tc.want {
			t.Errorf("%s %q: match = %v, want %v", tc.mt, tc.value, got, tc.want)
		}
	}
}

func TestMatch_RegexAgainstElements(t *testing.T) {
	m := NewMatcher(0)
	compiled := compile(t, []Rule{
		{Key: "tags", MatchType: MatchRegex, Value: "^proj-", Enabled: true},
	})
	md := map[string]any{"tags": []any{"misc", "proj-raido"}}
	if got := m.Match(md, compiled); got == nil {
		t.Error("regex should match any array element")
	}

	// Non-string elements are matched via their string form.
	md = map[string]any{"tags": []any{42}}
	compiled = compile(t, []Rule{{Key: "tags", MatchType: MatchRegex, Value: `^\d+$`, Enabled: true}})
	if got := m.Match(md, compiled); got == nil {
		t.Error("numeric element should match via string form")
	}
}

func TestMatch_ConditionsAnd(t *testing.T) {
	m := NewMatcher(0)
	compiled := compile(t, []Rule{
		{Key: "status", MatchType: MatchEquals, Value: "done", Enabled: true,
			ConditionOperator: OperatorAnd,
			Conditions:        []Condition{{Key: "type", MatchType: MatchEquals, Value: "task"}}},
	})

	if got := m.Match(map[string]any{"status": "done", "type": "task"}, compiled); got == nil {
		t.Error("AND: both hold, expected match")
	}
	if got := m.Match(map[string]any{"status": "done", "type": "note"}, compiled); got != nil {
		t.Error("AND: sub-condition fails, expected no match")
	}
}

func TestMatch_ConditionsOr(t *testing.T) {
	m := NewMatcher(0)
	compiled := compile(t, []Rule{
		{Key: "status", MatchType: MatchEquals, Value: "done", Enabled: true,
			ConditionOperator: OperatorOr,
			Conditions:        []Condition{{Key: "archived", MatchType: MatchEquals, Value: "true"}}},
	})

	if got := m.Match(map[string]any{"status": "open", "archived": true}, compiled); got == nil {
		t.Error("OR: sub-condition holds, expected match")
	}
	if got := m.Match(map[string]any{"status": "open", "archived": false}, compiled); got != nil {
		t.Error("OR: neither holds, expected no match")
	}
}
