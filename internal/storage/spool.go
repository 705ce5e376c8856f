// Package storage provides the temp-file spool for uploaded documents.
// Uploads only live long enough for one translation call; the spool hands
// out uniquely named files and guarantees they can be released on every
// exit path.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Spool writes uploaded documents to uniquely named files under a single
// directory. Each interaction gets its own file, so no locking is needed
// beyond what the filesystem provides.
type Spool struct {
	dir string
}

// SpoolFile describes one spooled upload.
type SpoolFile struct {
	ID   string
	Name string // original display name of the upload
	Path string
	Size int64
}

// NewSpool creates a spool rooted at dir, creating the directory if needed.
func NewSpool(dir string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}
	return &Spool{dir: dir}, nil
}

// Add writes the upload to a uuid-named file, preserving the original
// extension so downstream tooling can recognize the format.
func (s *Spool) Add(name string, r io.Reader) (*SpoolFile, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id+filepath.Ext(name))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing spool file: %w", err)
	}

	// A failed Close can mean unflushed data; the file must not be handed
	// to the parser short.
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing spool file: %w", err)
	}

	return &SpoolFile{
		ID:   id,
		Name: name,
		Path: path,
		Size: size,
	}, nil
}

// Remove deletes the spooled file. Callers defer this right after Add so the
// file is released whether or not the translation succeeds. Removing a file
// that is already gone is not an error.
func (f *SpoolFile) Remove() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing spool file: %w", err)
	}
	return nil
}

// Dir returns the spool's root directory.
func (s *Spool) Dir() string {
	return s.dir
}
