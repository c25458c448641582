package alloc

import "github.com/tchajed/durable/bin"

type bufferState uint8

const (
	writable bufferState = iota
	frozen
	freed
)

// A Buffer is a byte region owned by exactly one holder until it is freed or
// handed to another holder.
//
// A buffer starts writable; Close freezes it at the number of bytes actually
// written, after which only the frozen view is valid.
type Buffer struct {
	owner reclaimer
	slab  []byte
	n     int
	state bufferState
}

// Wrap creates a frozen buffer over data that belongs to no pool.
func Wrap(data []byte) *Buffer {
	return &Buffer{slab: data, n: len(data), state: frozen}
}

// Bytes is the writable view of the buffer, or nil once it is frozen.
func (b *Buffer) Bytes() []byte {
	if b.state != writable {
		return nil
	}
	return b.slab
}

// Size is the capacity of a writable buffer and the written length of a
// frozen one.
func (b *Buffer) Size() int {
	if b.state == writable {
		return len(b.slab)
	}
	return b.n
}

// Frozen reports whether Close has been called.
func (b *Buffer) Frozen() bool {
	return b.state == frozen
}

// Close freezes the buffer holding its first n bytes.
func (b *Buffer) Close(n int) *Buffer {
	if b.state != writable {
		panic("alloc: Close on a buffer that is not writable")
	}
	if n < 0 || n > len(b.slab) {
		panic("alloc: Close length out of range")
	}
	b.n = n
	b.state = frozen
	return b
}

// Data is the frozen contents of the buffer.
func (b *Buffer) Data() []byte {
	if b.state != frozen {
		return nil
	}
	return b.slab[:b.n]
}

// Input returns a readable view of the frozen contents.
func (b *Buffer) Input() *bin.Input {
	return bin.NewInput(b.Data())
}

// Free returns the buffer to its allocator. The buffer must not be used
// afterward.
func (b *Buffer) Free() error {
	if b.state == freed {
		return ErrFreed
	}
	b.state = freed
	if b.owner != nil {
		b.owner.reclaim(b)
	}
	b.slab = nil
	return nil
}
