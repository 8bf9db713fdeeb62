// Package mover implements the destination-resolution pipeline: rule
// matching, template substitution, path validation, move execution, and
// single-step undo against the move ledger.
package mover

import (
	"fmt"

	"github.com/starford/raido/internal/models"
)

// Kind discriminates pipeline outcomes. Every stage produces exactly one
// variant; there is no implicit fallthrough.
type Kind int

const (
	// KindNoMatch: no enabled rule matched the note's metadata.
	KindNoMatch Kind = iota
	// KindExcluded: the note path matches an exclude pattern.
	KindExcluded
	// KindUnchanged: content checksum unchanged since last processing.
	KindUnchanged
	// KindSkippedEmptyDestination: the matched rule has an empty
	// destination template.
	KindSkippedEmptyDestination
	// KindDryRun: the matched rule is in debug mode; the move was
	// computed but not executed.
	KindDryRun
	// KindNoop: the computed destination equals the current path.
	KindNoop
	// KindMoved: the move was executed and recorded.
	KindMoved
	// KindSkippedConflict: destination occupied and the rule resolves
	// conflicts by skipping.
	KindSkippedConflict
	// KindFailed: validation or host I/O failed; Err carries the
	// categorized error.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindNoMatch:
		return "no-match"
	case KindExcluded:
		return "excluded"
	case KindUnchanged:
		return "unchanged"
	case KindSkippedEmptyDestination:
		return "skipped-empty-destination"
	case KindDryRun:
		return "dry-run"
	case KindNoop:
		return "no-op"
	case KindMoved:
		return "moved"
	case KindSkippedConflict:
		return "skipped-conflict"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var kindNames = map[string]Kind{
	"no-match":                  KindNoMatch,
	"excluded":                  KindExcluded,
	"unchanged":                 KindUnchanged,
	"skipped-empty-destination": KindSkippedEmptyDestination,
	"dry-run":                   KindDryRun,
	"no-op":                     KindNoop,
	"moved":                     KindMoved,
	"skipped-conflict":          KindSkippedConflict,
	"failed":                    KindFailed,
}

// MarshalText serializes Kind as its name, so JSON consumers see
// "moved" rather than an opaque number.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, ok := kindNames[string(b)]
	if !ok {
		return fmt.Errorf("mover: unknown outcome kind %q", b)
	}
	*k = v
	return nil
}

// Outcome is the result of running one note through the pipeline.
type Outcome struct {
	Kind        Kind            `json:"kind"`
	File        models.NoteFile `json:"file"`
	RuleKey     string          `json:"ruleKey,omitempty"`
	// RuleIndex is a pointer so index 0 survives serialization; nil means
	// no rule was involved.
	RuleIndex *int `json:"ruleIndex,omitempty"`
	To          string          `json:"to,omitempty"`
	MissingVars []string        `json:"missingVars,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Err         error           `json:"-"`
	// Error mirrors Err for JSON consumers.
	Error string `json:"error,omitempty"`
}

func failed(file models.NoteFile, ruleKey string, err error) Outcome {
	return Outcome{Kind: KindFailed, File: file, RuleKey: ruleKey, Err: err, Error: err.Error()}
}
