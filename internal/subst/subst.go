// Package subst resolves {key} placeholders in destination templates
// against note metadata.
//
// Identifiers may address a top-level key or a dotted nested path
// ({author.name}). Malformed identifiers — traversal sequences, embedded
// separators, nested braces, excessive length — are never treated as
// lookups: the placeholder is preserved literally and a warning recorded,
// so a crafted template or metadata schema cannot escape the destination
// folder.
package subst

import (
	"fmt"
	"regexp"
	"strings"
)

const maxIdentifierLength = 64

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)
	stripCharsRe = regexp.MustCompile(`[<>:"|?*]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Result is the outcome of expanding a template.
type Result struct {
	// Path is the substituted template after separator cleanup.
	Path string
	// Substituted lists identifiers that resolved to a value.
	Substituted []string
	// Missing lists identifiers that were absent or null in the metadata.
	Missing []string
	// Warnings carries non-fatal notices (invalid identifiers, dropped
	// empty segments).
	Warnings []string
	// HadVariables reports whether the template contained any placeholder
	// at all, letting callers distinguish a fixed path from a templated
	// path with nothing to substitute.
	HadVariables bool
}

// Expand substitutes every valid {identifier} in template against metadata.
// Nested-brace constructs like {a{b}c} are never partially expanded: the
// whole span is preserved literally with a warning, so an inner match
// cannot leave stray brace fragments in the path.
func Expand(template string, metadata map[string]any) Result {
	var res Result
	var out strings.Builder

	for i := 0; i < len(template); {
		if template[i] != '{' {
			out.WriteByte(template[i])
			i++
			continue
		}

		span, nested, closed := scanBraces(template[i:])
		if !closed && !nested {
			// A stray opening brace with no closer is plain text.
			out.WriteByte('{')
			i++
			continue
		}

		res.HadVariables = true
		i += len(span)

		if nested || !closed {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("malformed variable %q left unexpanded", span))
			out.WriteString(span)
			continue
		}

		ident := span[1 : len(span)-1]
		if !validIdentifier(ident) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("invalid variable %q left unexpanded", span))
			out.WriteString(span)
			continue
		}

		value, ok := lookup(metadata, ident)
		if !ok || value == nil {
			res.Missing = append(res.Missing, ident)
			continue
		}
		rendered := renderValue(value)
		if rendered == "" {
			res.Missing = append(res.Missing, ident)
			continue
		}
		res.Substituted = append(res.Substituted, ident)
		out.WriteString(rendered)
	}

	res.Path = cleanSeparators(out.String())
	return res
}

// scanBraces scans the brace construct starting at s[0] == '{'. It
// returns the covered span, whether it contains nested braces, and
// whether the outermost brace was closed before the template ended.
func scanBraces(s string) (span string, nested, closed bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
			if depth > 1 {
				nested = true
			}
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], nested, true
			}
		}
	}
	return s, nested, false
}

// validIdentifier rejects anything that could smuggle path structure
// through a variable name.
func validIdentifier(ident string) bool {
	if ident == "" || len(ident) > maxIdentifierLength {
		return false
	}
	if strings.Contains(ident, "..") {
		return false
	}
	return identifierRe.MatchString(ident)
}

// lookup resolves a dotted path through nested maps.
func lookup(metadata map[string]any, ident string) (any, bool) {
	parts := strings.Split(ident, ".")
	var current any = metadata
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// renderValue converts a metadata value into path-safe text. Arrays are
// sanitized element-wise and joined with "/" so a list becomes nested
// folder segments.
func renderValue(value any) string {
	switch v := value.(type) {
	case []any:
		var segs []string
		for _, item := range v {
			if s := sanitizeSegment(stringify(item)); s != "" {
				segs = append(segs, s)
			}
		}
		return strings.Join(segs, "/")
	default:
		return sanitizeSegment(stringify(v))
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// sanitizeSegment makes a single metadata value safe for use as a path
// segment: invalid filename characters are stripped, separators mapped to
// hyphens, whitespace collapsed, leading/trailing dots and spaces trimmed.
func sanitizeSegment(s string) string {
	s = stripCharsRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, ". ")
	return s
}

// cleanSeparators collapses consecutive separators, strips leading and
// trailing ones, and drops empty segments. This is how a missing variable
// silently removes a path level instead of leaving a broken path.
func cleanSeparators(p string) string {
	parts := strings.Split(p, "/")
	var kept []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "/")
}
