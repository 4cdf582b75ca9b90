// Package storage holds the physical bytes of uploaded attachments.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Open when no object is stored under the name.
var ErrNotExist = errors.New("stored object does not exist")

// Store is a flat namespace of immutable objects addressed by storage name.
type Store interface {
	// Exists reports whether bytes are stored under name.
	Exists(ctx context.Context, name string) (bool, error)
	// Open returns a reader over the stored bytes. Callers must close it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Save writes r under name and returns the number of bytes written.
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	// Remove deletes the bytes; removing a missing object is not an error.
	Remove(ctx context.Context, name string) error
}
