package alloc

import "github.com/pkg/errors"

var (
	// ErrExhausted is returned when an allocation would exceed the pool limit.
	ErrExhausted = errors.New("alloc: pool limit exceeded")
	// ErrFreed is returned when freeing a buffer a second time.
	ErrFreed = errors.New("alloc: buffer already freed")
)
