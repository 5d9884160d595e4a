// Package storage keeps whole serialized documents, either as plain files
// or as keys of a bbolt database.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document has never been written.
var ErrNotFound = errors.New("document not found")

// Document is a single named blob that is always read and written as a whole.
type Document interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Name() string
}
