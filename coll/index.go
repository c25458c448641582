package coll

import (
	"slices"
	"sort"
)

// RemovedSet is an immutable sorted set of distinct physical indices.
type RemovedSet struct {
	vals []int64
}

// NewRemovedSet creates a set of the given indices, in any order and
// possibly repeated.
func NewRemovedSet(indices ...int64) RemovedSet {
	vals := slices.Clone(indices)
	slices.Sort(vals)
	return RemovedSet{vals: slices.Compact(vals)}
}

func (s RemovedSet) Size() int64 {
	return int64(len(s.vals))
}

func (s RemovedSet) Contains(x int64) bool {
	_, found := slices.BinarySearch(s.vals, x)
	return found
}

// Rank is the number of elements less than x.
func (s RemovedSet) Rank(x int64) int64 {
	i, _ := slices.BinarySearch(s.vals, x)
	return int64(i)
}

// Values returns the elements in increasing order.
func (s RemovedSet) Values() []int64 {
	return slices.Clone(s.vals)
}

func (s RemovedSet) Iterator() Iterator[int64] {
	return SliceIterator(s.vals)
}

// RemovedPredecessors counts the removed indices below index. It reports
// false if index is itself removed, since a removed slot has no rank.
func RemovedPredecessors(removed RemovedSet, index int64) (int64, bool) {
	i, found := slices.BinarySearch(removed.vals, index)
	if found {
		return 0, false
	}
	return int64(i), true
}

// OffsetIndex is the physical position of the logical-th (0-based) index not
// in removed. It inverts RemovedPredecessors on indices that are not removed.
func OffsetIndex(removed RemovedSet, logical int64) int64 {
	// removed[i]-i is nondecreasing and counts the survivors before removed[i]
	k := sort.Search(len(removed.vals), func(i int) bool {
		return removed.vals[i]-int64(i) > logical
	})
	return logical + int64(k)
}

type skipIterator[T any] struct {
	base    Iterator[T]
	removed Iterator[int64]

	pos      int64
	skip     int64
	haveSkip bool

	primed bool
	next   T
	ok     bool
}

// SkipIndices iterates over base, leaving out the elements whose position
// appears in removed. removed must be increasing. Both inputs are consumed
// once, lazily.
func SkipIndices[T any](base Iterator[T], removed Iterator[int64]) Iterator[T] {
	return &skipIterator[T]{base: base, removed: removed}
}

func (it *skipIterator[T]) loadSkip() {
	it.haveSkip = it.removed.HasNext()
	if it.haveSkip {
		it.skip = it.removed.Next()
	}
}

func (it *skipIterator[T]) advance() {
	if !it.primed {
		it.primed = true
		it.loadSkip()
	}
	it.ok = false
	for it.base.HasNext() {
		v := it.base.Next()
		p := it.pos
		it.pos++
		for it.haveSkip && it.skip < p {
			it.loadSkip()
		}
		if it.haveSkip && it.skip == p {
			it.loadSkip()
			continue
		}
		it.next, it.ok = v, true
		return
	}
}

func (it *skipIterator[T]) HasNext() bool {
	if !it.primed {
		it.advance()
	}
	return it.ok
}

func (it *skipIterator[T]) Next() T {
	if !it.HasNext() {
		panic("coll: Next on an exhausted iterator")
	}
	v := it.next
	it.advance()
	return v
}
