package coll

import (
	"github.com/pkg/errors"

	"github.com/tchajed/durable/durable"
)

// DiffMap is an edited view of an underlying map that is never modified.
//
// The view consists of the underlying entries, minus those at the removed
// physical positions, followed by the added entries. Removed positions cover
// both deleted entries and entries shadowed by an added entry with the same
// key. The constructing layer guarantees that removed is within
// [0, underlying.Size()) and that added shares no key with a surviving
// underlying entry; neither is checked here.
//
// A DiffMap is immutable and safe for concurrent reads.
type DiffMap[K, V any] struct {
	underlying OrderedMap[K, V]
	added      OrderedMap[K, V]
	removed    RemovedSet
}

var _ OrderedMap[uint64, []byte] = &DiffMap[uint64, []byte]{}

// NewDiffMap creates a view of underlying with removed positions dropped and
// added appended. added must use the key identity of underlying.
func NewDiffMap[K, V any](underlying, added OrderedMap[K, V], removed RemovedSet) *DiffMap[K, V] {
	return &DiffMap[K, V]{underlying: underlying, added: added, removed: removed}
}

func (m *DiffMap[K, V]) Underlying() OrderedMap[K, V] { return m.underlying }
func (m *DiffMap[K, V]) Added() OrderedMap[K, V]      { return m.added }
func (m *DiffMap[K, V]) RemovedIndices() RemovedSet   { return m.removed }

// Rebase binds the same edits to a different underlying map, for example
// after the underlying map has been persisted. Positions must still line up.
func (m *DiffMap[K, V]) Rebase(underlying OrderedMap[K, V]) *DiffMap[K, V] {
	return &DiffMap[K, V]{underlying: underlying, added: m.added, removed: m.removed}
}

func (m *DiffMap[K, V]) KeyHash() func(K) uint64 {
	return m.underlying.KeyHash()
}

func (m *DiffMap[K, V]) KeyEqual() func(a, b K) bool {
	return m.underlying.KeyEqual()
}

// surviving is the number of underlying entries still visible.
func (m *DiffMap[K, V]) surviving() int64 {
	return m.underlying.Size() - m.removed.Size()
}

func (m *DiffMap[K, V]) Size() int64 {
	return m.surviving() + m.added.Size()
}

// IndexOf looks in added first, so an added key wins even if the underlying
// copy was (wrongly) left unremoved.
func (m *DiffMap[K, V]) IndexOf(k K) (int64, bool) {
	if p, ok := m.added.IndexOf(k); ok {
		return m.surviving() + p, true
	}
	u, ok := m.underlying.IndexOf(k)
	if !ok {
		return 0, false
	}
	before, ok := RemovedPredecessors(m.removed, u)
	if !ok {
		return 0, false
	}
	return u - before, true
}

func (m *DiffMap[K, V]) Nth(i int64) (Entry[K, V], error) {
	if i < 0 || i >= m.Size() {
		return Entry[K, V]{}, errors.Wrapf(ErrIndexOutOfRange, "index %d of %d", i, m.Size())
	}
	if s := m.surviving(); i >= s {
		return m.added.Nth(i - s)
	}
	return m.underlying.Nth(OffsetIndex(m.removed, i))
}

func (m *DiffMap[K, V]) Get(k K) (V, bool) {
	if v, ok := m.added.Get(k); ok {
		return v, true
	}
	var zero V
	u, ok := m.underlying.IndexOf(k)
	if !ok || m.removed.Contains(u) {
		return zero, false
	}
	e, err := m.underlying.Nth(u)
	if err != nil {
		// IndexOf returned u, so the underlying map is inconsistent
		panic(errors.Wrapf(err, "coll: underlying entry %d", u))
	}
	return e.Value, true
}

// Iterator yields entries in the same order as Nth.
func (m *DiffMap[K, V]) Iterator() Iterator[Entry[K, V]] {
	return Concat(
		SkipIndices(m.underlying.Iterator(), m.removed.Iterator()),
		m.added.Iterator(),
	)
}

// Persist saves the view. An unedited view persists exactly as its
// underlying map does.
func (m *DiffMap[K, V]) Persist(enc Encoding[K, V], target durable.Target) (durable.Handle, error) {
	if m.removed.Size() == 0 && m.added.Size() == 0 {
		return m.underlying.Persist(enc, target)
	}
	return Save[K, V](m, enc, target)
}
