// Package storage is the file-system abstraction of the Markdown backup
// directory used by export and import.
package storage

// File describes one Markdown file of the backup directory.
type File struct {
	// Path is slash-separated and relative to the root.
	Path     string
	Checksum string
}

// Provider is the interface for backup directory operations.
type Provider interface {
	// List returns every .md file under dir (relative to root), sorted by path.
	List(dir string) ([]File, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
}
