package cart

import (
	"errors"
	"fmt"
)

var ErrInvalidProduct = errors.New("product has no id")

// StorageError reports a persistence failure after the in-memory mutation
// already applied. Callers should treat it as a non-fatal warning: the cart
// stays usable for the current session even if durability is temporarily
// broken.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cart storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
