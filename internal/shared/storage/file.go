package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

// FileDocument stores a document in a regular file.
type FileDocument struct {
	path string
}

// NewFileDocument creates the parent directory and returns a document at path.
func NewFileDocument(path string) (*FileDocument, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, oops.With("path", path, "context", "failed to create document directory").Wrap(err)
	}
	return &FileDocument{path: path}, nil
}

// Name returns the file path.
func (d *FileDocument) Name() string { return d.path }

// Read returns the file content or ErrNotFound if the file does not exist.
func (d *FileDocument) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, oops.With("path", d.path, "context", "failed to read document").Wrap(err)
	}
	return data, nil
}

// Write replaces the file content. The data goes to a temporary file first
// and is renamed over the target, so readers never see a half-written file.
func (d *FileDocument) Write(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return oops.With("path", d.path, "context", "failed to create temporary file").Wrap(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return oops.With("path", d.path, "context", "failed to write document").Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return oops.With("path", d.path, "context", "failed to close document").Wrap(err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return oops.With("path", d.path, "context", "failed to chmod document").Wrap(err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return oops.With("path", d.path, "context", "failed to replace document").Wrap(err)
	}
	return nil
}
