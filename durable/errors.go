package durable

import "github.com/pkg/errors"

var (
	// ErrClosed is returned when writing to an accumulator that has been finalized.
	ErrClosed = errors.New("durable: accumulator is closed")
	// ErrReleased is returned by any use of an accumulator after Release.
	ErrReleased = errors.New("durable: accumulator buffers already released")
	// ErrNotFrozen is returned when appending a buffer that is still writable.
	ErrNotFrozen = errors.New("durable: appended buffer is not frozen")
	// ErrBadBlock is returned when a block prefix cannot be decoded.
	ErrBadBlock = errors.New("durable: malformed block")
	// ErrNotFound is returned when a handle names nothing stored in a target.
	ErrNotFound = errors.New("durable: no such block")
)
