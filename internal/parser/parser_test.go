package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\nstatus: done\ntags:\n  - work\n  - urgent\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter["status"] != "done" {
		t.Errorf("status = %v", r.Frontmatter["status"])
	}
	if len(r.Tags) != 2 || r.Tags[0] != "work" || r.Tags[1] != "urgent" {
		t.Errorf("tags = %v, want [work urgent]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r, err := Parse([]byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r, err := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Error("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	r, err := Parse([]byte("---\nstatus: done\nno closing fence\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Error("unclosed frontmatter should be treated as body")
	}
}

func TestMetadata_MergesInlineTags(t *testing.T) {
	input := []byte("---\nstatus: done\ntags:\n  - alpha\n---\ntext #beta and #alpha again\n")
	r, _ := Parse(input)
	md := r.Metadata()

	tags, ok := md["tags"].([]any)
	if !ok {
		t.Fatalf("tags type = %T", md["tags"])
	}
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
	if md["status"] != "done" {
		t.Errorf("status = %v", md["status"])
	}
}

func TestMetadata_ScalarTagField(t *testing.T) {
	r, _ := Parse([]byte("---\ntags: solo\n---\nbody\n"))
	md := r.Metadata()
	tags, ok := md["tags"].([]any)
	if !ok || len(tags) != 1 || tags[0] != "solo" {
		t.Errorf("tags = %v", md["tags"])
	}
}

func TestMetadata_NestedValuesPreserved(t *testing.T) {
	r, _ := Parse([]byte("---\nauthor:\n  name: Anna\n---\nbody\n"))
	md := r.Metadata()
	author, ok := md["author"].(map[string]any)
	if !ok || author["name"] != "Anna" {
		t.Errorf("author = %v", md["author"])
	}
}
