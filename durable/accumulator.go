// Package durable accumulates serialized output in allocator buffers and
// writes it out as raw streams or as length/type-prefixed blocks.
//
// An Accumulator is owned by one writer from New until a terminal operation
// (FlushTo, FlushBlockTo, Input, DrainInto) followed by Release. Callers must
// make sure Release runs on every exit path, typically with defer.
package durable

import (
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/tchajed/durable/alloc"
	"github.com/tchajed/durable/bin"
)

// Output is the write surface encoders serialize into.
//
// All fixed-width values are little endian (see bin.Order).
type Output interface {
	io.Writer
	io.ByteWriter
	WriteInt16(v int16) error
	// WriteUint16 also serves for 16-bit characters.
	WriteUint16(v uint16) error
	WriteInt32(v int32) error
	WriteUint32(v uint32) error
	WriteInt64(v int64) error
	WriteUint64(v uint64) error
	WriteFloat32(v float32) error
	WriteFloat64(v float64) error
	WriteUvarint(v uint64) error
	Written() int64
}

// Accumulator is an append-only sink backed by a list of allocator buffers.
//
// Writes go to the current buffer; when it cannot hold the next value it is
// frozen onto the flushed list and a new, larger buffer is allocated. A
// scalar value is never split across buffers.
//
// Not safe for concurrent use.
type Accumulator struct {
	alloc alloc.Allocator
	opts  Options

	flushed      []*alloc.Buffer
	flushedBytes int64

	// cur is nil once closed, and between retiring a buffer and the next
	// write, which allocates lazily
	cur   *alloc.Buffer
	bytes []byte
	pos   int

	open     bool
	released bool
}

var _ Output = &Accumulator{}

// New creates an accumulator holding one buffer of opts.MinBufferSize.
func New(a alloc.Allocator, opts Options) (*Accumulator, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	buf, err := a.Allocate(opts.MinBufferSize)
	if err != nil {
		return nil, errors.Wrap(err, "durable: allocating first buffer")
	}
	return &Accumulator{
		alloc: a,
		opts:  opts,
		cur:   buf,
		bytes: buf.Bytes(),
		open:  true,
	}, nil
}

// Child creates a new accumulator sharing a's allocator and options.
func (a *Accumulator) Child() (*Accumulator, error) {
	return New(a.alloc, a.opts)
}

// Written is the number of bytes written so far, flushed or buffered.
func (a *Accumulator) Written() int64 {
	return a.flushedBytes + int64(a.pos)
}

// Buffers returns the frozen buffers flushed so far. They remain owned by a.
func (a *Accumulator) Buffers() []*alloc.Buffer {
	return append([]*alloc.Buffer(nil), a.flushed...)
}

// bufferSize is a quarter of the bytes written, clamped to the configured
// bounds and never less than n.
func (a *Accumulator) bufferSize(n int) int {
	size := a.Written() / 4
	if size > int64(a.opts.MaxBufferSize) {
		size = int64(a.opts.MaxBufferSize)
	}
	if size < int64(a.opts.MinBufferSize) {
		size = int64(a.opts.MinBufferSize)
	}
	if size < int64(n) {
		size = int64(n)
	}
	return int(size)
}

func (a *Accumulator) checkWritable() error {
	if a.released {
		return ErrReleased
	}
	if !a.open {
		return ErrClosed
	}
	return nil
}

func (a *Accumulator) appendBuffer(b *alloc.Buffer) {
	a.flushed = append(a.flushed, b)
	a.flushedBytes += int64(b.Size())
}

// retire gives up the current buffer: frozen onto the flushed list if it
// holds anything, freed otherwise.
func (a *Accumulator) retire() {
	if a.cur == nil {
		return
	}
	if a.pos > 0 {
		a.appendBuffer(a.cur.Close(a.pos))
	} else {
		_ = a.cur.Free()
	}
	a.cur, a.bytes, a.pos = nil, nil, 0
}

// ensureCapacity makes room for n contiguous bytes in the current buffer.
//
// The replacement is allocated before the current buffer is retired, so a
// failed allocation leaves the accumulator as it was.
func (a *Accumulator) ensureCapacity(n int) error {
	if err := a.checkWritable(); err != nil {
		return err
	}
	if a.cur != nil && len(a.bytes)-a.pos >= n {
		return nil
	}
	next, err := a.alloc.Allocate(a.bufferSize(n))
	if err != nil {
		return errors.Wrap(err, "durable: allocating buffer")
	}
	a.retire()
	a.cur, a.bytes = next, next.Bytes()
	return nil
}

func (a *Accumulator) WriteByte(c byte) error {
	if err := a.ensureCapacity(1); err != nil {
		return err
	}
	a.bytes[a.pos] = c
	a.pos++
	return nil
}

func (a *Accumulator) WriteUint16(v uint16) error {
	if err := a.ensureCapacity(2); err != nil {
		return err
	}
	bin.Order.PutUint16(a.bytes[a.pos:], v)
	a.pos += 2
	return nil
}

func (a *Accumulator) WriteUint32(v uint32) error {
	if err := a.ensureCapacity(4); err != nil {
		return err
	}
	bin.Order.PutUint32(a.bytes[a.pos:], v)
	a.pos += 4
	return nil
}

func (a *Accumulator) WriteUint64(v uint64) error {
	if err := a.ensureCapacity(8); err != nil {
		return err
	}
	bin.Order.PutUint64(a.bytes[a.pos:], v)
	a.pos += 8
	return nil
}

func (a *Accumulator) WriteInt16(v int16) error { return a.WriteUint16(uint16(v)) }
func (a *Accumulator) WriteInt32(v int32) error { return a.WriteUint32(uint32(v)) }
func (a *Accumulator) WriteInt64(v int64) error { return a.WriteUint64(uint64(v)) }

func (a *Accumulator) WriteFloat32(v float32) error {
	return a.WriteUint32(math.Float32bits(v))
}

func (a *Accumulator) WriteFloat64(v float64) error {
	return a.WriteUint64(math.Float64bits(v))
}

// WriteUvarint writes v as a varint (see bin.Decoder.VarInt).
func (a *Accumulator) WriteUvarint(v uint64) error {
	if err := a.ensureCapacity(bin.MaxVarIntLen); err != nil {
		return err
	}
	a.pos += len(bin.AppendVarInt(a.bytes[a.pos:a.pos], v))
	return nil
}

// Write copies p, spanning as many buffers as needed.
func (a *Accumulator) Write(p []byte) (int, error) {
	if err := a.checkWritable(); err != nil {
		return 0, err
	}
	total := 0
	for len(p) > 0 {
		if err := a.ensureCapacity(1); err != nil {
			return total, err
		}
		n := copy(a.bytes[a.pos:], p)
		a.pos += n
		p = p[n:]
		total += n
	}
	return total, nil
}

// TransferFrom copies all remaining bytes of in.
func (a *Accumulator) TransferFrom(in *bin.Input) error {
	if err := a.checkWritable(); err != nil {
		return err
	}
	for in.Remaining() > 0 {
		if err := a.ensureCapacity(1); err != nil {
			return err
		}
		n, _ := in.Read(a.bytes[a.pos:])
		a.pos += n
	}
	return nil
}

// AppendBuffers takes ownership of frozen buffers and appends their contents.
//
// A buffer smaller than the merge threshold is copied into the current buffer
// and freed; a larger one is adopted as its own segment without copying.
// Every buffer passed is owned by a afterward, even when an error is
// returned: buffers that were not appended have been freed.
func (a *Accumulator) AppendBuffers(bufs ...*alloc.Buffer) error {
	for i, b := range bufs {
		if err := a.appendOne(b); err != nil {
			for _, rest := range bufs[i+1:] {
				_ = rest.Free()
			}
			return err
		}
	}
	return nil
}

func (a *Accumulator) appendOne(b *alloc.Buffer) error {
	if err := a.checkWritable(); err != nil {
		_ = b.Free()
		return err
	}
	if !b.Frozen() {
		_ = b.Free()
		return ErrNotFrozen
	}
	if b.Size() < a.opts.MergeThreshold {
		err := a.TransferFrom(b.Input())
		_ = b.Free()
		return err
	}
	// an empty current buffer can stay: its later contents still follow b
	if a.pos > 0 {
		a.retire()
	}
	a.appendBuffer(b)
	return nil
}

// finish freezes the current buffer and forbids further writes.
func (a *Accumulator) finish() {
	if a.open {
		a.open = false
		a.retire()
	}
}

// Close finalizes the accumulator. It is idempotent.
func (a *Accumulator) Close() error {
	a.finish()
	return nil
}

// FlushTo finalizes the accumulator and writes its contents to w.
//
// The buffers stay owned by a, so FlushTo may be repeated and writes the same
// bytes each time.
func (a *Accumulator) FlushTo(w io.Writer) (int64, error) {
	if a.released {
		return 0, ErrReleased
	}
	a.finish()
	var total int64
	for _, b := range a.flushed {
		n, err := w.Write(b.Data())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// FlushBlockTo is FlushTo preceded by a block prefix of type t.
func (a *Accumulator) FlushBlockTo(w io.Writer, t BlockType) (int64, error) {
	if a.released {
		return 0, ErrReleased
	}
	a.finish()
	p := BlockPrefix{Length: a.flushedBytes, Type: t}
	n, err := p.WriteTo(w)
	if err != nil {
		return n, err
	}
	m, err := a.FlushTo(w)
	return n + m, err
}

// Input finalizes the accumulator and returns a view over its contents,
// valid until Release.
func (a *Accumulator) Input() (*bin.Input, error) {
	if a.released {
		return nil, ErrReleased
	}
	a.finish()
	segs := make([][]byte, 0, len(a.flushed))
	for _, b := range a.flushed {
		segs = append(segs, b.Data())
	}
	return bin.NewInput(segs...), nil
}

// DrainInto finalizes a and hands all its buffers to dst (see AppendBuffers).
// Afterward a owns nothing and behaves as released.
func (a *Accumulator) DrainInto(dst *Accumulator) error {
	if a.released {
		return ErrReleased
	}
	if err := dst.checkWritable(); err != nil {
		a.Release()
		return err
	}
	a.finish()
	bufs := a.flushed
	a.flushed = nil
	a.released = true
	return dst.AppendBuffers(bufs...)
}

// DrainBlockInto writes a block prefix of type t to dst, then drains a into it.
func (a *Accumulator) DrainBlockInto(dst *Accumulator, t BlockType) error {
	if a.released {
		return ErrReleased
	}
	a.finish()
	p := BlockPrefix{Length: a.flushedBytes, Type: t}
	if _, err := dst.Write(p.AppendTo(nil)); err != nil {
		a.Release()
		return err
	}
	return a.DrainInto(dst)
}

// Release finalizes the accumulator if needed and frees all its buffers.
// Calling it again does nothing.
func (a *Accumulator) Release() {
	if a.released {
		return
	}
	a.finish()
	for _, b := range a.flushed {
		_ = b.Free()
	}
	a.flushed = nil
	a.released = true
}
