// Package secrets provides access to the external secret store the
// ingest run reads broker credentials from and writes refreshed tokens
// back to.
package secrets

import "context"

// Source defines the interface for secret store backends
type Source interface {
	// Get returns the raw secret value for the given name
	Get(ctx context.Context, name string) ([]byte, error)

	// Update overwrites the secret value for the given name
	Update(ctx context.Context, name string, value []byte) error
}
