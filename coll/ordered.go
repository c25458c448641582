package coll

import (
	"bytes"

	"github.com/cespare/xxhash/v2"

	"github.com/tchajed/durable/bin"
	"github.com/tchajed/durable/durable"
)

type Entry[K, V any] struct {
	Key   K
	Value V
}

// OrderedMap is an ordered sequence of entries with distinct keys, addressable
// both by key and by position.
type OrderedMap[K, V any] interface {
	Size() int64
	// IndexOf is the position of k, or false if k is absent.
	IndexOf(k K) (int64, bool)
	Nth(i int64) (Entry[K, V], error)
	Get(k K) (V, bool)
	Iterator() Iterator[Entry[K, V]]
	KeyHash() func(K) uint64
	KeyEqual() func(a, b K) bool
	// Persist saves the map to target and returns a handle to re-open it.
	Persist(enc Encoding[K, V], target durable.Target) (durable.Handle, error)
}

// Encoding serializes keys and values, and defines key identity.
type Encoding[K, V any] interface {
	EncodeKey(out durable.Output, k K) error
	DecodeKey(d *bin.Decoder) (K, error)
	EncodeValue(out durable.Output, v V) error
	DecodeValue(d *bin.Decoder) (V, error)
	KeyHash(k K) uint64
	KeyEqual(a, b K) bool
}

func Uint64Hash(k uint64) uint64 {
	return xxhash.Sum64(bin.Order.AppendUint64(nil, k))
}

func StringHash(k string) uint64 {
	return xxhash.Sum64String(k)
}

func BytesHash(k []byte) uint64 {
	return xxhash.Sum64(k)
}

// Equal is key equality for comparable keys.
func Equal[K comparable](a, b K) bool {
	return a == b
}

func BytesEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}

// Uint64Bytes encodes uint64 keys as 8 bytes and []byte values with a varint
// length.
type Uint64Bytes struct{}

var _ Encoding[uint64, []byte] = Uint64Bytes{}

func (Uint64Bytes) EncodeKey(out durable.Output, k uint64) error {
	return out.WriteUint64(k)
}

func (Uint64Bytes) DecodeKey(d *bin.Decoder) (uint64, error) {
	k := d.Uint64()
	return k, d.Err()
}

func (Uint64Bytes) EncodeValue(out durable.Output, v []byte) error {
	if err := out.WriteUvarint(uint64(len(v))); err != nil {
		return err
	}
	_, err := out.Write(v)
	return err
}

func (Uint64Bytes) DecodeValue(d *bin.Decoder) ([]byte, error) {
	v := d.Array()
	return v, d.Err()
}

func (Uint64Bytes) KeyHash(k uint64) uint64 { return Uint64Hash(k) }
func (Uint64Bytes) KeyEqual(a, b uint64) bool { return a == b }
