// Package localstore provides the durable local key-value store backing
// draft persistence. The canonical implementation is SQLite; an in-memory
// implementation exists for tests and hosts without a writable disk.
package localstore

import "context"

// KV describes the minimal key-value contract the draft store needs.
type KV interface {
	// Get returns the stored value, or common.ErrNotFound when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
