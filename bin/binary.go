package bin

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Simple binary parsing/serialization library.
//
// Every fixed-width value in this module is little endian; Order is the single
// place that choice is made.

// Order is the byte order of all fixed-width fields.
var Order = binary.LittleEndian

// ErrShortInput is reported when a decoder runs out of bytes.
var ErrShortInput = errors.New("bin: short input")

// Decoder streams binary data from an Input.
//
// Decoding errors are sticky: after the first short read every value decodes
// as zero and Err reports the failure.
type Decoder struct {
	in  *Input
	err error
}

// NewDecoder creates a decoder that parses data from buffer b.
//
// Retains b, which the caller should not use afterward.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{in: NewInput(b)}
}

// NewInputDecoder creates a decoder that consumes in.
func NewInputDecoder(in *Input) *Decoder {
	return &Decoder{in: in}
}

// Err returns the first error encountered while decoding.
func (r *Decoder) Err() error {
	return r.err
}

// RemainingBytes gives the number of bytes remaining in the input.
func (r *Decoder) RemainingBytes() int64 {
	return r.in.Remaining()
}

// Bytes is a primitive decoder that reads a fixed number of bytes.
func (r *Decoder) Bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	d, err := r.in.Next(n)
	if err != nil {
		r.err = err
		return nil
	}
	return d
}

// Skip discards n bytes.
func (r *Decoder) Skip(n int64) {
	if r.err != nil {
		return
	}
	if err := r.in.Skip(n); err != nil {
		r.err = err
	}
}

func (r *Decoder) fixed(n int) []byte {
	b := r.Bytes(n)
	if b == nil {
		return make([]byte, n)
	}
	return b
}

// Uint64 decodes a uint64 (in little endian format).
func (r *Decoder) Uint64() uint64 {
	return Order.Uint64(r.fixed(8))
}

// Uint32 decodes a uint32 (in little endian format).
func (r *Decoder) Uint32() uint32 {
	return Order.Uint32(r.fixed(4))
}

// Uint16 decodes a uint16 (in little endian format).
func (r *Decoder) Uint16() uint16 {
	return Order.Uint16(r.fixed(2))
}

// Uint8 decodes a uint8
func (r *Decoder) Uint8() uint8 {
	return r.fixed(1)[0]
}

func (r *Decoder) Int16() int16 { return int16(r.Uint16()) }
func (r *Decoder) Int32() int32 { return int32(r.Uint32()) }
func (r *Decoder) Int64() int64 { return int64(r.Uint64()) }

func (r *Decoder) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

func (r *Decoder) Float64() float64 {
	return math.Float64frombits(r.Uint64())
}

// Encoder encodes values to an output stream.
//
// The first write error is retained; later calls do nothing.
type Encoder struct {
	w io.Writer
	// total bytes written since initialization
	bytesWritten int64
	err          error
	scratch      [MaxVarIntLen]byte
}

// NewEncoder creates an encoder that writes data to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// BytesWritten returns the number of bytes written to the encoder since this
// encoder was created.
func (w *Encoder) BytesWritten() int64 {
	return w.bytesWritten
}

// Err returns the first write error.
func (w *Encoder) Err() error {
	return w.err
}

// Bytes is a primitive encoder that copies bytes.
func (w *Encoder) Bytes(b []byte) {
	for len(b) > 0 && w.err == nil {
		n, err := w.w.Write(b)
		w.bytesWritten += int64(n)
		b = b[n:]
		if err != nil {
			w.err = err
		} else if n == 0 {
			w.err = io.ErrShortWrite
		}
	}
}

// Uint64 encodes a uint64 (in little endian format).
func (w *Encoder) Uint64(v uint64) {
	Order.PutUint64(w.scratch[:8], v)
	w.Bytes(w.scratch[:8])
}

// Uint32 encodes a uint32 (in little endian format).
func (w *Encoder) Uint32(v uint32) {
	Order.PutUint32(w.scratch[:4], v)
	w.Bytes(w.scratch[:4])
}

// Uint16 encodes a uint16 (in little endian format).
func (w *Encoder) Uint16(v uint16) {
	Order.PutUint16(w.scratch[:2], v)
	w.Bytes(w.scratch[:2])
}

// Uint8 encodes a uint8
func (w *Encoder) Uint8(b uint8) {
	w.scratch[0] = b
	w.Bytes(w.scratch[:1])
}
