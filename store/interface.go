package store

import "context"

// KV is a string key-value store that survives process restarts.
// Get reports ok=false when the key has never been written.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error

	Close() error
}
