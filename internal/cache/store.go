// Package cache holds the key-value store behind the products cache.
//
// Values are tagged entries (see Entry) so the negative "no data" marker is
// distinguishable from a missing key with a single read. Stores never expire
// or evict on their own unless a TTL is configured; removing a key is an
// operator action.
package cache

import "context"

// Store is the process-wide key-value namespace shared by all callers.
// Implementations must be safe for concurrent use.
type Store interface {
	// Read returns AbsentEntry for a missing key. Errors are transport or
	// decoding failures, never "not found".
	Read(ctx context.Context, key string) (Entry, error)

	// Write stores e under key, replacing any previous value.
	Write(ctx context.Context, key string, e Entry) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key holds any entry, negative included.
	Exists(ctx context.Context, key string) (bool, error)
}
