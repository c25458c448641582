package coll

import (
	"github.com/pkg/errors"

	"github.com/tchajed/durable/bin"
	"github.com/tchajed/durable/durable"
)

// entriesPerChunk bounds the entries in one BlockEntries chunk.
const entriesPerChunk = 256

// Save writes m to target as a single BlockMap block.
//
// The payload is the entry count (int64) followed by BlockEntries chunks,
// each holding a varint entry count and that many encoded key/value pairs.
// Readers skip chunks of any other block type.
func Save[K, V any](m OrderedMap[K, V], enc Encoding[K, V], target durable.Target) (durable.Handle, error) {
	return target.Save(durable.BlockMap, func(out *durable.Accumulator) error {
		size := m.Size()
		if err := out.WriteInt64(size); err != nil {
			return err
		}
		it := m.Iterator()
		for left := size; left > 0; {
			n := min(left, entriesPerChunk)
			if err := saveChunk(out, it, n, enc); err != nil {
				return err
			}
			left -= n
		}
		return nil
	})
}

// saveChunk encodes n entries in a child accumulator and drains it into out
// as one nested block.
func saveChunk[K, V any](out *durable.Accumulator, it Iterator[Entry[K, V]], n int64, enc Encoding[K, V]) error {
	chunk, err := out.Child()
	if err != nil {
		return err
	}
	if err := encodeEntries(chunk, it, n, enc); err != nil {
		chunk.Release()
		return err
	}
	return chunk.DrainBlockInto(out, durable.BlockEntries)
}

func encodeEntries[K, V any](out durable.Output, it Iterator[Entry[K, V]], n int64, enc Encoding[K, V]) error {
	if err := out.WriteUvarint(uint64(n)); err != nil {
		return err
	}
	for i := int64(0); i < n; i++ {
		if !it.HasNext() {
			return errors.Errorf("coll: map iterator ended %d entries short", n-i)
		}
		e := it.Next()
		if err := enc.EncodeKey(out, e.Key); err != nil {
			return errors.Wrap(err, "encode key")
		}
		if err := enc.EncodeValue(out, e.Value); err != nil {
			return errors.Wrap(err, "encode value")
		}
	}
	return nil
}

// DurableMap is a map read back from a Target. It keeps the stored bytes so
// that persisting it elsewhere copies them unchanged.
type DurableMap[K, V any] struct {
	*LinearMap[K, V]
	target durable.Target
	handle durable.Handle
	data   []byte
}

var _ OrderedMap[uint64, []byte] = &DurableMap[uint64, []byte]{}

// Open reads the map saved at h.
func Open[K, V any](target durable.Target, h durable.Handle, enc Encoding[K, V]) (*DurableMap[K, V], error) {
	data, err := target.Read(h)
	if err != nil {
		return nil, err
	}
	d := bin.NewDecoder(data)
	p, err := durable.ReadBlockPrefix(d)
	if err != nil {
		return nil, err
	}
	if p.Type != durable.BlockMap {
		return nil, errors.Wrapf(ErrNotMap, "%s holds a %v block", h.Name, p.Type)
	}
	m := NewLinearMap[K, V](enc.KeyHash, enc.KeyEqual)
	if err := decodeMap(d, m, enc); err != nil {
		return nil, errors.Wrapf(err, "open %s", h.Name)
	}
	return &DurableMap[K, V]{LinearMap: m, target: target, handle: h, data: data}, nil
}

func decodeMap[K, V any](d *bin.Decoder, m *LinearMap[K, V], enc Encoding[K, V]) error {
	count := d.Int64()
	for m.Size() < count {
		if err := d.Err(); err != nil {
			return errors.Wrapf(ErrCorrupt, "%d of %d entries: %v", m.Size(), count, err)
		}
		p, err := durable.ReadBlockPrefix(d)
		if err != nil {
			return err
		}
		if p.Type != durable.BlockEntries {
			if err := durable.SkipBlock(d, p); err != nil {
				return err
			}
			continue
		}
		end := d.RemainingBytes() - p.Length
		n := d.VarInt()
		for i := uint64(0); i < n; i++ {
			k, err := enc.DecodeKey(d)
			if err != nil {
				return errors.Wrapf(ErrCorrupt, "key: %v", err)
			}
			v, err := enc.DecodeValue(d)
			if err != nil {
				return errors.Wrapf(ErrCorrupt, "value: %v", err)
			}
			m.Put(k, v)
			if d.RemainingBytes() < end {
				return errors.Wrapf(ErrCorrupt, "entries overrun their %d byte chunk", p.Length)
			}
		}
		if d.RemainingBytes() != end {
			return errors.Wrapf(ErrCorrupt, "chunk of %d bytes has %d bytes left over",
				p.Length, d.RemainingBytes()-end)
		}
	}
	return d.Err()
}

func (m *DurableMap[K, V]) Handle() durable.Handle {
	return m.handle
}

// Persist returns the existing handle when target is where m was read from,
// and otherwise copies the stored block to target byte for byte.
func (m *DurableMap[K, V]) Persist(enc Encoding[K, V], target durable.Target) (durable.Handle, error) {
	if target == m.target {
		return m.handle, nil
	}
	return target.Save(durable.BlockMap, func(out *durable.Accumulator) error {
		return out.TransferFrom(bin.NewInput(m.data[durable.PrefixSize:]))
	})
}
