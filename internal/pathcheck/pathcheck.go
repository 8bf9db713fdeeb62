// Package pathcheck normalizes and validates vault-relative paths.
//
// Validation is fail-fast: the first violation is returned as a single
// *apperr.InvalidPathError. Harmless irregularities (repeated separators)
// are normalized away and reported as warnings instead.
package pathcheck

import (
	"regexp"
	"strings"

	"github.com/starford/raido/internal/apperr"
)

// DefaultMaxLength is the Windows-safe total path length limit.
const DefaultMaxLength = 260

const maxComponentLength = 255

// Options controls path validation.
type Options struct {
	// AllowEmpty accepts an empty path (meaning the vault root).
	AllowEmpty bool
	// MaxLength overrides the total length limit; 0 means DefaultMaxLength.
	MaxLength int
}

// Result is the successful outcome of validation.
type Result struct {
	Sanitized string
	Warnings  []string
}

var (
	driveLetterRe  = regexp.MustCompile(`^[A-Za-z]:`)
	invalidCharsRe = regexp.MustCompile(`[<>:"|?*\x00-\x1f]`)
	reservedNames  = map[string]struct{}{
		"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
		"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
		"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
		"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
		"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	}
)

// Validate normalizes p and rejects unsafe or pathological inputs.
func Validate(p string, opts Options) (Result, error) {
	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	var warnings []string

	trimmed := strings.TrimSpace(p)
	normalized := strings.ReplaceAll(trimmed, "\\", "/")

	if normalized == "" {
		if opts.AllowEmpty {
			return Result{Sanitized: "", Warnings: warnings}, nil
		}
		return Result{}, &apperr.InvalidPathError{Path: p, Reason: apperr.ReasonEmpty}
	}

	if strings.HasPrefix(normalized, "/") || driveLetterRe.MatchString(normalized) {
		return Result{}, &apperr.InvalidPathError{Path: p, Reason: apperr.ReasonAbsolute}
	}

	if strings.Contains(normalized, "//") {
		warnings = append(warnings, "redundant path separators collapsed")
		for strings.Contains(normalized, "//") {
			normalized = strings.ReplaceAll(normalized, "//", "/")
		}
	}
	normalized = strings.Trim(normalized, "/")
	if normalized == "" {
		if opts.AllowEmpty {
			return Result{Sanitized: "", Warnings: warnings}, nil
		}
		return Result{}, &apperr.InvalidPathError{Path: p, Reason: apperr.ReasonEmpty}
	}

	var kept []string
	for _, seg := range strings.Split(normalized, "/") {
		if seg == "." {
			// Current-directory segments carry no information.
			continue
		}
		if seg == ".." {
			return Result{}, &apperr.InvalidPathError{Path: p, Reason: apperr.ReasonTraversal}
		}
		if invalidCharsRe.MatchString(seg) {
			return Result{}, &apperr.InvalidPathError{
				Path:   p,
				Reason: apperr.ReasonInvalidChars,
				Detail: "component " + seg,
			}
		}
		if len(seg) > maxComponentLength {
			return Result{}, &apperr.InvalidPathError{
				Path:   p,
				Reason: apperr.ReasonTooLong,
				Detail: "component exceeds 255 characters",
			}
		}
		if isReserved(seg) {
			return Result{}, &apperr.InvalidPathError{
				Path:   p,
				Reason: apperr.ReasonReservedName,
				Detail: seg,
			}
		}
		if strings.HasSuffix(seg, ".") || strings.HasSuffix(seg, " ") {
			return Result{}, &apperr.InvalidPathError{
				Path:   p,
				Reason: apperr.ReasonInvalidChars,
				Detail: "component ends with dot or space",
			}
		}
		kept = append(kept, seg)
	}

	sanitized := strings.Join(kept, "/")
	if sanitized == "" {
		if opts.AllowEmpty {
			return Result{Sanitized: "", Warnings: warnings}, nil
		}
		return Result{}, &apperr.InvalidPathError{Path: p, Reason: apperr.ReasonEmpty}
	}
	if len(sanitized) > maxLen {
		return Result{}, &apperr.InvalidPathError{Path: p, Reason: apperr.ReasonTooLong}
	}

	return Result{Sanitized: sanitized, Warnings: warnings}, nil
}

// isReserved reports whether a component is a Windows device name,
// regardless of extension or case (e.g. "con", "NUL.md").
func isReserved(seg string) bool {
	stem := seg
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	_, ok := reservedNames[strings.ToUpper(stem)]
	return ok
}
