// Package apperr defines the categorized error kinds used across the mover
// pipeline and maps raw filesystem errors onto them.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNothingToUndo = errors.New("nothing to undo")
)

// PathReason categorizes why a path was rejected.
type PathReason string

const (
	ReasonEmpty        PathReason = "empty"
	ReasonAbsolute     PathReason = "absolute"
	ReasonTraversal    PathReason = "traversal"
	ReasonInvalidChars PathReason = "invalid-characters"
	ReasonTooLong      PathReason = "too-long"
	ReasonReservedName PathReason = "reserved-name"
)

// ConflictReason categorizes a destination conflict.
type ConflictReason string

const (
	ConflictExists ConflictReason = "exists"
	ConflictLocked ConflictReason = "locked"
	ConflictInUse  ConflictReason = "in-use"
)

// InvalidPathError reports a rejected path with a single reason.
type InvalidPathError struct {
	Path   string
	Reason PathReason
	Detail string
}

func (e *InvalidPathError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid path %q: %s (%s)", e.Path, e.Reason, e.Detail)
	}
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// PathConflictError reports a source/destination collision.
type PathConflictError struct {
	Source string
	Dest   string
	Reason ConflictReason
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("path conflict moving %q to %q: %s", e.Source, e.Dest, e.Reason)
}

// PermissionError reports an operation denied by the filesystem.
type PermissionError struct {
	Op   string
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s %q", e.Op, e.Path)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// OperationError is the fallback kind for unrecognized host failures.
type OperationError struct {
	Op   string
	Path string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("file operation failed: %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Classify maps a raw host error onto one of the categorized kinds by
// case-insensitive keyword matching. Unrecognized errors fall back to
// OperationError rather than propagating untyped.
func Classify(op, path string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "permission denied", "eacces", "eperm", "access is denied"):
		return &PermissionError{Op: op, Path: path, Err: err}
	case containsAny(msg, "eexist", "already exists"):
		return &PathConflictError{Source: path, Dest: path, Reason: ConflictExists}
	case containsAny(msg, "ebusy", "locked"):
		return &PathConflictError{Source: path, Dest: path, Reason: ConflictLocked}
	case containsAny(msg, "in use", "etxtbsy"):
		return &PathConflictError{Source: path, Dest: path, Reason: ConflictInUse}
	case containsAny(msg, "enametoolong", "too long"):
		return &InvalidPathError{Path: path, Reason: ReasonTooLong}
	case containsAny(msg, "einval", "invalid argument", "invalid character"):
		return &InvalidPathError{Path: path, Reason: ReasonInvalidChars}
	default:
		return &OperationError{Op: op, Path: path, Err: err}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
