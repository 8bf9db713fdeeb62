// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/raido/internal/models"

// Provider is the interface for vault file operations. All paths are
// relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Exists reports whether anything exists at path.
	Exists(path string) bool
	// IsFile reports whether path exists and is a plain file.
	IsFile(path string) bool
	// CreateFolder creates the folder at path, one segment at a time,
	// skipping segments that already exist.
	CreateFolder(path string) error
	// Rename moves oldPath to newPath. It fails when the destination
	// already exists.
	Rename(oldPath, newPath string) error
}
