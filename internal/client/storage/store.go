// Package storage is the client's durable key/value store. It survives
// process restarts and holds the session tokens and the preferred language.
package storage

import "context"

// Store maps string keys to string values.
//
// Get returns "" and a nil error for a key that was never set.
// SetMany writes all pairs atomically.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}
