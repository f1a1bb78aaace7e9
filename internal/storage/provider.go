// Package storage defines the file-system abstraction behind the template
// library folder and uploaded source documents.
package storage

import "github.com/starford/minuta/internal/models"

// Provider is the interface for file operations relative to a root directory.
type Provider interface {
	// List returns metadata for every matching file under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// RemoveAll removes dir and everything below it.
	RemoveAll(dir string) error
}

var _ Provider = (*FS)(nil)
