// Package kv defines the byte-oriented key-value stores that hold database
// snapshots.
//
// A Store maps string keys to opaque byte buffers. Values are always written
// wholesale; there is no partial update or append.
//
// # Error Types
//
//   - ErrNotFound: the key has never been written.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound indicates that no value is stored under the requested key.
var ErrNotFound = errors.New("kv: key not found")

// Store reads and writes whole byte buffers by key.
type Store interface {
	// Get returns a copy of the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
}
