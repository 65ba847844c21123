package upload

import (
	"context"
	"io"
)

// Store persists uploaded objects under a generated name.
type Store interface {
	// Put writes size bytes from r and returns the public URL of the object.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
	// Ping reports whether the store is usable.
	Ping(ctx context.Context) error
}
