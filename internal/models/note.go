// Package models defines the domain types for Raido.
package models

import (
	"path"
	"strings"
	"time"
)

// NoteFile is a lightweight handle to a vault file, as exposed by the
// storage collaborator. Paths are relative to the vault root and use
// forward slashes.
type NoteFile struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Basename  string `json:"basename"`
	Extension string `json:"extension"`
}

// NewNoteFile builds a NoteFile handle from a vault-relative path.
func NewNoteFile(rel string) NoteFile {
	name := path.Base(rel)
	ext := path.Ext(name)
	return NoteFile{
		Path:      rel,
		Name:      name,
		Basename:  strings.TrimSuffix(name, ext),
		Extension: strings.TrimPrefix(ext, "."),
	}
}

// Folder returns the directory part of the note path, "" for vault root.
func (f NoteFile) Folder() string {
	dir := path.Dir(f.Path)
	if dir == "." {
		return ""
	}
	return dir
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
