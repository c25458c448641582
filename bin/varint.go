package bin

// varint parsing, factored out since it's a complex feature to support (due to
// the need for additional bitwise operations and reasoning about those
// operations)

// MaxVarIntLen is the longest encoding of a 64-bit varint.
const MaxVarIntLen = 10

// VarInt parses a varint
//
// See the protocol-buffer documentation for the encoding format:
// https://developers.google.com/protocol-buffers/docs/encoding#varints.
func (r *Decoder) VarInt() uint64 {
	n := uint64(0)
	for shift := uint(0); shift < 64; shift += 7 {
		b := r.Uint8()
		n = n | (uint64(b&0x7f) << shift)
		if b&0x80 == 0 {
			return n
		}
	}
	return n
}

// Array decodes an array prefixed with a varint length.
func (r *Decoder) Array() []byte {
	length := r.VarInt()
	if r.err == nil && length > uint64(r.RemainingBytes()) {
		r.err = ErrShortInput
		return nil
	}
	return r.Bytes(int(length))
}

// AppendVarInt appends the varint encoding of u to b.
func AppendVarInt(b []byte, u uint64) []byte {
	for {
		c := uint8(u & 0x7f)
		u = u >> 7
		if u > 0 {
			b = append(b, c|0x80)
		} else {
			// this is the most significant byte
			return append(b, c)
		}
	}
}

// VarInt encodes a 64-bit int as a varint
func (w *Encoder) VarInt(u uint64) {
	w.Bytes(AppendVarInt(w.scratch[:0], u))
}

// Array encodes an array prefixed with a varint length.
func (w *Encoder) Array(data []byte) {
	w.VarInt(uint64(len(data)))
	w.Bytes(data)
}
