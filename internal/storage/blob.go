package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound = errors.New("storage: object not found")
	ErrBadKey   = errors.New("storage: invalid key")
)

// BlobStore holds uploaded assignment files. Keys are slash-separated and
// relative; they never escape the store's root.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
