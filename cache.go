package cypher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache is the interface for caching the rows of read-only statements.
// Users may implement it with their preferred caching solution (e.g. Redis,
// Memcached); dialect.MemoryCache is an in-process implementation.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies the rows of one compiled statement.
type CacheKey struct {
	Store  string         // Target store of the statement
	Query  string         // Compiled statement text
	Params map[string]any // Statement parameters
}

// String returns the string representation of the cache key. Keys of the
// same store share a prefix, so they can be invalidated together with
// DeletePrefix.
func (k CacheKey) String() string {
	return k.Prefix() + k.digest()
}

// Prefix returns the store prefix of the key.
func (k CacheKey) Prefix() string {
	return "cypher:" + k.Store + ":"
}

func (k CacheKey) digest() string {
	h := sha256.New()
	h.Write([]byte(k.Query))
	// Map keys are marshaled in sorted order.
	if b, err := json.Marshal(k.Params); err == nil {
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}
