package durable

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/tchajed/durable/bin"
)

// BlockType tags the payload of a block.
type BlockType uint8

const (
	// a zero-filled region never decodes as a block
	blockInvalid BlockType = iota
	// BlockRaw is an opaque payload.
	BlockRaw
	// BlockMap is a saved ordered map: an entry count followed by
	// BlockEntries chunks.
	BlockMap
	// BlockEntries is one chunk of encoded entries.
	BlockEntries
)

func (t BlockType) String() string {
	switch t {
	case BlockRaw:
		return "raw"
	case BlockMap:
		return "map"
	case BlockEntries:
		return "entries"
	}
	return fmt.Sprintf("BlockType(%d)", uint8(t))
}

// PrefixSize is the encoded size of a BlockPrefix.
const PrefixSize = 9

// BlockPrefix precedes every block: the payload length in bytes (uint64) and
// the type (uint8), both in bin.Order.
type BlockPrefix struct {
	Length int64
	Type   BlockType
}

// AppendTo appends the encoded prefix to b.
func (p BlockPrefix) AppendTo(b []byte) []byte {
	b = bin.Order.AppendUint64(b, uint64(p.Length))
	return append(b, byte(p.Type))
}

func (p BlockPrefix) WriteTo(w io.Writer) (int64, error) {
	e := bin.NewEncoder(w)
	e.Uint64(uint64(p.Length))
	e.Uint8(uint8(p.Type))
	return e.BytesWritten(), e.Err()
}

// ReadBlockPrefix decodes a prefix and checks that its payload fits in what
// remains of d.
func ReadBlockPrefix(d *bin.Decoder) (BlockPrefix, error) {
	length := d.Uint64()
	t := BlockType(d.Uint8())
	if err := d.Err(); err != nil {
		return BlockPrefix{}, errors.Wrapf(ErrBadBlock, "prefix: %v", err)
	}
	if t == blockInvalid {
		return BlockPrefix{}, errors.Wrap(ErrBadBlock, "invalid block type 0")
	}
	if length > math.MaxInt64 || int64(length) > d.RemainingBytes() {
		return BlockPrefix{}, errors.Wrapf(ErrBadBlock,
			"%v block of %d bytes with %d remaining", t, length, d.RemainingBytes())
	}
	return BlockPrefix{Length: int64(length), Type: t}, nil
}

// SkipBlock skips the payload of the block whose prefix was just read.
func SkipBlock(d *bin.Decoder, p BlockPrefix) error {
	d.Skip(p.Length)
	return errors.Wrapf(d.Err(), "skip %v block", p.Type)
}
