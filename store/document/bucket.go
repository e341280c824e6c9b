package document

import "context"

// Bucket is a flat key/value space holding one document per user.
// Keys are user identities in canonical UUID string form. Implementations
// live in the dir, bolt, redis, s3 and gcs subpackages.
type Bucket interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)
	// Get returns the document stored under key, or store.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the document stored under key.
	Put(ctx context.Context, key string, data []byte) error
}
