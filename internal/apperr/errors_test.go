package apperr

import (
	"errors"
	"testing"
)

func TestClassify_Permission(t *testing.T) {
	err := Classify("rename", "a.md", errors.New("open a.md: EACCES permission denied"))
	var pe *PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PermissionError, got %T: %v", err, err)
	}
	if pe.Op != "rename" || pe.Path != "a.md" {
		t.Errorf("unexpected fields: %+v", pe)
	}
}

func TestClassify_ConflictReasons(t *testing.T) {
	cases := []struct {
		msg  string
		want ConflictReason
	}{
		{"rename: file already exists", ConflictExists},
		{"EEXIST", ConflictExists},
		{"device or resource busy (EBUSY)", ConflictLocked},
		{"file is locked", ConflictLocked},
		{"text file in use", ConflictInUse},
		{"ETXTBSY", ConflictInUse},
	}
	for _, tc := range cases {
		err := Classify("rename", "x.md", errors.New(tc.msg))
		var ce *PathConflictError
		if !errors.As(err, &ce) {
			t.Errorf("%q: expected PathConflictError, got %T", tc.msg, err)
			continue
		}
		if ce.Reason != tc.want {
			t.Errorf("%q: reason = %q, want %q", tc.msg, ce.Reason, tc.want)
		}
	}
}

func TestClassify_InvalidPath(t *testing.T) {
	err := Classify("create", "x", errors.New("ENAMETOOLONG: name too long"))
	var ie *InvalidPathError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InvalidPathError, got %T", err)
	}
	if ie.Reason != ReasonTooLong {
		t.Errorf("reason = %q, want %q", ie.Reason, ReasonTooLong)
	}

	err = Classify("create", "x", errors.New("EINVAL bad name"))
	if !errors.As(err, &ie) || ie.Reason != ReasonInvalidChars {
		t.Errorf("expected invalid-characters, got %v", err)
	}
}

func TestClassify_FallbackAndCase(t *testing.T) {
	err := Classify("rename", "x.md", errors.New("something completely unexpected"))
	var oe *OperationError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OperationError fallback, got %T", err)
	}

	// Keyword matching is case-insensitive.
	err = Classify("rename", "x.md", errors.New("Permission Denied"))
	var pe *PermissionError
	if !errors.As(err, &pe) {
		t.Errorf("expected PermissionError for mixed case, got %T", err)
	}
}

func TestClassify_Nil(t *testing.T) {
	if err := Classify("rename", "x.md", nil); err != nil {
		t.Errorf("nil in, nil out; got %v", err)
	}
}
