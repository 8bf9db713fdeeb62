package mover

import (
	"strings"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/pathcheck"
	"github.com/starford/raido/internal/rules"
	"github.com/starford/raido/internal/subst"
)

// Resolve runs the pure half of the pipeline: rule matching, template
// substitution, and path validation. It touches no storage; the returned
// Outcome is either terminal (no match, empty destination, no-op, dry
// run, validation failure) or a KindMoved plan for the engine to execute.
func Resolve(file models.NoteFile, metadata map[string]any,
	compiled []rules.Compiled, matcher *rules.Matcher) Outcome {

	matched := matcher.Match(metadata, compiled)
	if matched == nil {
		return Outcome{Kind: KindNoMatch, File: file}
	}

	idx := matched.Index

	template := strings.TrimSpace(matched.Rule.Destination)
	if template == "" {
		return Outcome{
			Kind:      KindSkippedEmptyDestination,
			File:      file,
			RuleKey:   matched.Rule.Key,
			RuleIndex: &idx,
		}
	}

	sub := subst.Expand(template, metadata)

	out := Outcome{
		File:        file,
		RuleKey:     matched.Rule.Key,
		RuleIndex:   &idx,
		MissingVars: sub.Missing,
		Warnings:    sub.Warnings,
	}

	// The folder may legitimately collapse to empty when every variable
	// in the template is missing; that targets the vault root.
	folder, err := pathcheck.Validate(sub.Path, pathcheck.Options{AllowEmpty: true})
	if err != nil {
		out.Kind = KindFailed
		out.Err = err
		out.Error = err.Error()
		return out
	}
	out.Warnings = append(out.Warnings, folder.Warnings...)

	dest := file.Name
	if folder.Sanitized != "" {
		dest = folder.Sanitized + "/" + file.Name
	}

	full, err := pathcheck.Validate(dest, pathcheck.Options{})
	if err != nil {
		out.Kind = KindFailed
		out.Err = err
		out.Error = err.Error()
		return out
	}
	out.Warnings = append(out.Warnings, full.Warnings...)
	out.To = full.Sanitized

	if out.To == file.Path {
		out.Kind = KindNoop
		return out
	}

	if matched.Rule.Debug {
		out.Kind = KindDryRun
		return out
	}

	out.Kind = KindMoved
	return out
}
