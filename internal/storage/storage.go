package storage

import (
	"context"
	"errors"
)

// Storage is the key-value persistence contract the cart store writes
// through. Consumers define this interface, not the backends.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")
