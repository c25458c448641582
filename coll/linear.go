package coll

import (
	"github.com/pkg/errors"

	"github.com/tchajed/durable/durable"
)

// LinearMap is an in-memory OrderedMap in insertion order, indexed by hash
// buckets.
//
// Put is for single-threaded construction; once built the map may be read
// concurrently.
type LinearMap[K, V any] struct {
	entries []Entry[K, V]
	buckets map[uint64][]int64
	hash    func(K) uint64
	eq      func(a, b K) bool
}

var _ OrderedMap[uint64, []byte] = &LinearMap[uint64, []byte]{}

func NewLinearMap[K, V any](hash func(K) uint64, eq func(a, b K) bool) *LinearMap[K, V] {
	return &LinearMap[K, V]{
		buckets: make(map[uint64][]int64),
		hash:    hash,
		eq:      eq,
	}
}

// FromEntries builds a LinearMap; a repeated key keeps its first position and
// its last value.
func FromEntries[K, V any](hash func(K) uint64, eq func(a, b K) bool, entries ...Entry[K, V]) *LinearMap[K, V] {
	m := NewLinearMap[K, V](hash, eq)
	for _, e := range entries {
		m.Put(e.Key, e.Value)
	}
	return m
}

// Put sets the value of k, appending it if k is new.
func (m *LinearMap[K, V]) Put(k K, v V) {
	if i, ok := m.IndexOf(k); ok {
		m.entries[i].Value = v
		return
	}
	h := m.hash(k)
	m.buckets[h] = append(m.buckets[h], int64(len(m.entries)))
	m.entries = append(m.entries, Entry[K, V]{k, v})
}

func (m *LinearMap[K, V]) Size() int64 {
	return int64(len(m.entries))
}

func (m *LinearMap[K, V]) IndexOf(k K) (int64, bool) {
	for _, i := range m.buckets[m.hash(k)] {
		if m.eq(m.entries[i].Key, k) {
			return i, true
		}
	}
	return 0, false
}

func (m *LinearMap[K, V]) Nth(i int64) (Entry[K, V], error) {
	if i < 0 || i >= m.Size() {
		return Entry[K, V]{}, errors.Wrapf(ErrIndexOutOfRange, "index %d of %d", i, m.Size())
	}
	return m.entries[i], nil
}

func (m *LinearMap[K, V]) Get(k K) (V, bool) {
	if i, ok := m.IndexOf(k); ok {
		return m.entries[i].Value, true
	}
	var zero V
	return zero, false
}

func (m *LinearMap[K, V]) Iterator() Iterator[Entry[K, V]] {
	return SliceIterator(m.entries)
}

func (m *LinearMap[K, V]) KeyHash() func(K) uint64 {
	return m.hash
}

func (m *LinearMap[K, V]) KeyEqual() func(a, b K) bool {
	return m.eq
}

func (m *LinearMap[K, V]) Persist(enc Encoding[K, V], target durable.Target) (durable.Handle, error) {
	return Save[K, V](m, enc, target)
}
