// Package storage persists the budget collections as JSON arrays in a
// key-value store.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Store when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Store is the key-value port behind the gateway. Values are opaque bytes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
