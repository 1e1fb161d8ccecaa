// Package kv defines the raw key-value primitive that snapshots are
// persisted into. Implementations live in internal/data/stores.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is the raw key-value primitive. Values are opaque bytes.
//
// A Store can fail without warning and is not guaranteed to be durable
// across a crash in the middle of a write. Delete of a missing key is not
// an error. ListKeys returns keys in sorted order.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// IsNotFound reports whether err signals a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
