package providers

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key is absent or expired. A miss
// is a normal condition, not a failure.
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for caching operations. Implementations
// must be safe for concurrent use; racing writes to the same key may cause
// redundant recomputation but never corruption.
type CacheProvider interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)
}
