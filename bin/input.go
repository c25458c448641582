package bin

import "io"

// Input is a read-only view over an ordered list of byte segments.
//
// The segments are retained, not copied; an Input is only valid as long as
// whatever owns the segments keeps them alive.
type Input struct {
	segs [][]byte
	// seg is the index of the segment being read and off the offset within it
	seg  int
	off  int
	size int64
	read int64
}

// NewInput creates an Input over segs, read in order.
func NewInput(segs ...[]byte) *Input {
	in := &Input{}
	for _, s := range segs {
		if len(s) == 0 {
			continue
		}
		in.segs = append(in.segs, s)
		in.size += int64(len(s))
	}
	return in
}

// Size is the total number of bytes in the input.
func (in *Input) Size() int64 {
	return in.size
}

// Remaining is the number of unread bytes.
func (in *Input) Remaining() int64 {
	return in.size - in.read
}

// Read implements io.Reader.
func (in *Input) Read(p []byte) (int, error) {
	if in.Remaining() == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	total := 0
	for len(p) > 0 && in.seg < len(in.segs) {
		n := copy(p, in.segs[in.seg][in.off:])
		p = p[n:]
		total += n
		in.advance(n)
	}
	return total, nil
}

func (in *Input) advance(n int) {
	in.off += n
	in.read += int64(n)
	if in.off == len(in.segs[in.seg]) {
		in.seg++
		in.off = 0
	}
}

// Next returns the next n bytes.
//
// The result aliases the underlying segment when the bytes lie within one
// segment and is a fresh copy when they span segments.
func (in *Input) Next(n int) ([]byte, error) {
	if int64(n) > in.Remaining() {
		return nil, ErrShortInput
	}
	if n == 0 {
		return []byte{}, nil
	}
	cur := in.segs[in.seg][in.off:]
	if len(cur) >= n {
		d := cur[:n:n]
		in.advance(n)
		return d, nil
	}
	d := make([]byte, n)
	_, _ = in.Read(d)
	return d, nil
}

// Skip discards n bytes.
func (in *Input) Skip(n int64) error {
	if n > in.Remaining() {
		return ErrShortInput
	}
	for n > 0 {
		cur := int64(len(in.segs[in.seg]) - in.off)
		if cur > n {
			cur = n
		}
		in.advance(int(cur))
		n -= cur
	}
	return nil
}

// WriteTo implements io.WriterTo, writing all unread bytes to w.
func (in *Input) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for in.seg < len(in.segs) {
		n, err := w.Write(in.segs[in.seg][in.off:])
		total += int64(n)
		in.advance(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
