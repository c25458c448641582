// Package coll implements ordered maps that can be persisted to a
// durable.Target, including DiffMap, an edited view over an unmodified map.
package coll

// Iterator is a forward-only sequence. Next may only be called after HasNext
// returns true.
type Iterator[T any] interface {
	HasNext() bool
	Next() T
}

type sliceIterator[T any] struct {
	s []T
}

// SliceIterator iterates over the elements of s.
func SliceIterator[T any](s []T) Iterator[T] {
	return &sliceIterator[T]{s}
}

func (it *sliceIterator[T]) HasNext() bool {
	return len(it.s) > 0
}

func (it *sliceIterator[T]) Next() T {
	v := it.s[0]
	it.s = it.s[1:]
	return v
}

type concatIterator[T any] struct {
	its []Iterator[T]
}

// Concat iterates over each of its in turn.
func Concat[T any](its ...Iterator[T]) Iterator[T] {
	return &concatIterator[T]{its}
}

func (it *concatIterator[T]) HasNext() bool {
	for len(it.its) > 0 {
		if it.its[0].HasNext() {
			return true
		}
		it.its = it.its[1:]
	}
	return false
}

func (it *concatIterator[T]) Next() T {
	if !it.HasNext() {
		panic("coll: Next on an exhausted iterator")
	}
	return it.its[0].Next()
}

// Collect drains it into a slice.
func Collect[T any](it Iterator[T]) []T {
	var s []T
	for it.HasNext() {
		s = append(s, it.Next())
	}
	return s
}
