package storage

import "context"

// ObjectStore defines the interface for keyed object store backends.
// Writes are fire-and-forget from the pipeline's point of view: the
// store never retries internally, it only reports the failure.
type ObjectStore interface {
	// Put stores data under the given key with optional object metadata
	Put(ctx context.Context, key string, data []byte, metadata map[string]string) error

	// Get retrieves the object stored under the given key
	Get(ctx context.Context, key string) ([]byte, error)
}
