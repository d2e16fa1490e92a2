// Package kvstore defines the string-keyed persistence surface the record
// repository is built on, with a Redis implementation for production and an
// in-memory one for tests.
package kvstore

import "context"

// Store is a synchronous string-keyed blob store. Keys are namespaced by a
// caller-supplied prefix; Clear removes only keys under that prefix.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
