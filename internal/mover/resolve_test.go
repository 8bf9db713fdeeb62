package mover

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/rules"
)

func compiled(t *testing.T, rs ...rules.Rule) []rules.Compiled {
	t.Helper()
	cs, issues := rules.CompileAll(rs)
	if len(issues) > 0 {
		t.Fatalf("compile issues: %+v", issues)
	}
	return cs
}

func resolveOne(t *testing.T, metadata map[string]any, rs ...rules.Rule) Outcome {
	t.Helper()
	return Resolve(models.NewNoteFile("Inbox/note.md"), metadata,
		compiled(t, rs...), rules.NewMatcher(0))
}

func TestResolve_NoMatch(t *testing.T) {
	out := resolveOne(t, map[string]any{"status": "draft"},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "Archive", Enabled: true})
	if out.Kind != KindNoMatch {
		t.Errorf("Kind = %v, want no-match", out.Kind)
	}
}

func TestResolve_EmptyDestinationSkipped(t *testing.T) {
	out := resolveOne(t, map[string]any{"status": "done"},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "   ", Enabled: true})
	if out.Kind != KindSkippedEmptyDestination {
		t.Errorf("Kind = %v, want skipped-empty-destination", out.Kind)
	}
	if out.RuleKey != "status" {
		t.Errorf("RuleKey = %q", out.RuleKey)
	}
}

func TestResolve_FixedDestination(t *testing.T) {
	out := resolveOne(t, map[string]any{"status": "done"},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "Archive/2024", Enabled: true})
	if out.Kind != KindMoved {
		t.Fatalf("Kind = %v, want moved", out.Kind)
	}
	if out.To != "Archive/2024/note.md" {
		t.Errorf("To = %q", out.To)
	}
}

func TestResolve_TemplateSubstitution(t *testing.T) {
	out := resolveOne(t, map[string]any{
		"status":   "done",
		"project":  "Apollo",
		"category": []any{"work", "reports"},
	},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "{category}/{project}", Enabled: true})
	if out.Kind != KindMoved {
		t.Fatalf("Kind = %v, want moved", out.Kind)
	}
	// Array values become nested folder segments.
	if out.To != "work/reports/Apollo/note.md" {
		t.Errorf("To = %q", out.To)
	}
}

func TestResolve_MissingVariableCollapsesLevel(t *testing.T) {
	out := resolveOne(t, map[string]any{"status": "done"},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "Archive/{project}/done", Enabled: true})
	if out.Kind != KindMoved {
		t.Fatalf("Kind = %v, want moved", out.Kind)
	}
	if out.To != "Archive/done/note.md" {
		t.Errorf("To = %q", out.To)
	}
	if len(out.MissingVars) != 1 || out.MissingVars[0] != "project" {
		t.Errorf("MissingVars = %v", out.MissingVars)
	}
}

func TestResolve_AllVariablesMissingTargetsRoot(t *testing.T) {
	out := resolveOne(t, map[string]any{"status": "done"},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "{project}", Enabled: true})
	if out.Kind != KindMoved {
		t.Fatalf("Kind = %v, want moved", out.Kind)
	}
	if out.To != "note.md" {
		t.Errorf("To = %q, want vault root", out.To)
	}
}

func TestResolve_InvalidIdentifierPreservedWithWarning(t *testing.T) {
	out := resolveOne(t, map[string]any{"status": "done"},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "Archive/{not valid}", Enabled: true})
	if out.Kind != KindMoved {
		t.Fatalf("Kind = %v, want moved", out.Kind)
	}
	if !strings.Contains(out.To, "{not valid}") {
		t.Errorf("placeholder not preserved: To = %q", out.To)
	}
	if len(out.Warnings) == 0 {
		t.Error("expected a warning for the invalid identifier")
	}
}

func TestResolve_TraversalDestinationFails(t *testing.T) {
	out := resolveOne(t, map[string]any{"status": "done"},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "../outside", Enabled: true})
	if out.Kind != KindFailed {
		t.Fatalf("Kind = %v, want failed", out.Kind)
	}
	var ipe *apperr.InvalidPathError
	if !errors.As(out.Err, &ipe) || ipe.Reason != apperr.ReasonTraversal {
		t.Errorf("Err = %v, want traversal InvalidPathError", out.Err)
	}
}

func TestResolve_NoopWhenAlreadyThere(t *testing.T) {
	out := Resolve(models.NewNoteFile("Archive/note.md"), map[string]any{"status": "done"},
		compiled(t, rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "Archive", Enabled: true}), rules.NewMatcher(0))
	if out.Kind != KindNoop {
		t.Errorf("Kind = %v, want no-op", out.Kind)
	}
}

func TestResolve_DebugRuleIsDryRun(t *testing.T) {
	out := resolveOne(t, map[string]any{"status": "done"},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "Archive", Enabled: true, Debug: true})
	if out.Kind != KindDryRun {
		t.Fatalf("Kind = %v, want dry-run", out.Kind)
	}
	if out.To != "Archive/note.md" {
		t.Errorf("To = %q", out.To)
	}
}

func TestResolve_RuleIndexZeroSurvivesJSON(t *testing.T) {
	out := resolveOne(t, map[string]any{"status": "done"},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "Archive", Enabled: true})
	if out.RuleIndex == nil || *out.RuleIndex != 0 {
		t.Fatalf("RuleIndex = %v, want 0", out.RuleIndex)
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"ruleIndex":0`) {
		t.Errorf("index 0 dropped from JSON: %s", data)
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	out := resolveOne(t, map[string]any{"status": "done", "project": "Apollo"},
		rules.Rule{Key: "status", MatchType: rules.MatchEquals, Value: "done",
			Destination: "First", Enabled: true},
		rules.Rule{Key: "project", MatchType: rules.MatchEquals, Value: "Apollo",
			Destination: "Second", Enabled: true})
	if out.To != "First/note.md" {
		t.Errorf("To = %q, want First/note.md", out.To)
	}
}
