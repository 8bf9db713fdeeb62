package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestRename(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.md", []byte("data"))
	if err := s.CreateFolder("sub"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if err := s.Rename("old.md", "sub/new.md"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, err := s.Read("sub/new.md")
	if err != nil {
		t.Fatalf("Read after rename: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if s.Exists("old.md") {
		t.Error("old path should not exist")
	}
}

func TestRename_FailsOnCollision(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("b.md", []byte("b"))
	err := s.Rename("a.md", "b.md")
	if err == nil {
		t.Fatal("expected collision error")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("unexpected error: %v", err)
	}
	// Nothing was changed.
	if got, _ := s.Read("b.md"); string(got) != "b" {
		t.Errorf("destination clobbered: %q", got)
	}
}

func TestCreateFolder_Idempotent(t *testing.T) {
	s := tempVault(t)
	if err := s.CreateFolder("a/b/c"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	// Second call with existing segments is a no-op.
	if err := s.CreateFolder("a/b/c"); err != nil {
		t.Fatalf("CreateFolder repeat: %v", err)
	}
	if err := s.CreateFolder("a/b/c/d"); err != nil {
		t.Fatalf("CreateFolder extend: %v", err)
	}
	if !s.Exists("a/b/c/d") {
		t.Error("folder chain missing")
	}
}

func TestCreateFolder_SegmentIsFile(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("x"))
	if err := s.CreateFolder("a.md/sub"); err == nil {
		t.Error("expected error when a segment is a file")
	}
}

func TestExistsAndIsFile(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("f.md", []byte("x"))
	_ = s.CreateFolder("d")

	if !s.Exists("f.md") || !s.Exists("d") {
		t.Error("Exists should see file and folder")
	}
	if !s.IsFile("f.md") {
		t.Error("IsFile should see plain file")
	}
	if s.IsFile("d") {
		t.Error("folder is not a plain file")
	}
	if s.Exists("missing.md") {
		t.Error("Exists on missing path")
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if strings.Contains(it.Path, "\\") {
			t.Errorf("path not slash-normalized: %q", it.Path)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.Rename(p, "dest.md"); err == nil {
			t.Errorf("expected error for rename from %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".raido-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/raido-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "raido-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
