// Package cache holds the fast keyed TTL stores the auth service uses: the
// access-token denylist and the refresh-token fast-lookup cache. The durable
// store is always the source of truth; these exist for read latency and, in
// the Redis case, for visibility across gateway instances.
package cache

import (
	"context"
	"time"
)

// Denylist records revoked access tokens until they would have expired
// anyway. Entries past their TTL read as absent.
type Denylist interface {
	// Put records key for ttl. A non-positive ttl is ignored.
	Put(ctx context.Context, key string, ttl time.Duration) error

	// Exists reports whether key is currently denied.
	Exists(ctx context.Context, key string) (bool, error)
}

// TokenCache is a read-through cache over refresh-token fingerprints. A miss
// means nothing; rotation decisions always consult the durable store.
type TokenCache interface {
	// Get returns the cached user id for a fingerprint, or ok=false on miss.
	Get(ctx context.Context, fingerprint string) (userID string, ok bool, err error)

	// Set caches a fingerprint with the token's remaining lifetime.
	Set(ctx context.Context, fingerprint, userID string, ttl time.Duration) error

	// Delete drops a fingerprint. Deleting an absent key is a no-op.
	Delete(ctx context.Context, fingerprints ...string) error
}
