package durable

import (
	"io"

	"github.com/tchajed/durable/alloc"
)

// Handle names a block stored in a Target.
type Handle struct {
	Name string
	// Size is the stored size in bytes, prefix included.
	Size int64
}

// Target is a destination that blocks can be saved to and read back from.
type Target interface {
	// Save runs body against a fresh accumulator and stores the result as a
	// single block of type t.
	Save(t BlockType, body func(out *Accumulator) error) (Handle, error)
	// Read returns the stored bytes of h, prefix included.
	Read(h Handle) ([]byte, error)
	Remove(h Handle) error
}

// Build runs body against a new accumulator and finalizes it.
//
// On error the accumulator has been released; otherwise the caller owns it
// and must Release it.
func Build(a alloc.Allocator, opts Options, body func(out *Accumulator) error) (*Accumulator, error) {
	acc, err := New(a, opts)
	if err != nil {
		return nil, err
	}
	if err := body(acc); err != nil {
		acc.Release()
		return nil, err
	}
	if err := acc.Close(); err != nil {
		acc.Release()
		return nil, err
	}
	return acc, nil
}

// WriteBlock builds a block of type t with body and writes it to w,
// releasing every buffer before returning.
func WriteBlock(w io.Writer, a alloc.Allocator, opts Options, t BlockType,
	body func(out *Accumulator) error) (int64, error) {
	acc, err := Build(a, opts, body)
	if err != nil {
		return 0, err
	}
	defer acc.Release()
	return acc.FlushBlockTo(w, t)
}
