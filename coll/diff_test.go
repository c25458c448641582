package coll

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strMap(entries ...Entry[string, int]) *LinearMap[string, int] {
	return FromEntries(StringHash, Equal[string], entries...)
}

func keys[V any](it Iterator[Entry[string, V]]) []string {
	var ks []string
	for it.HasNext() {
		ks = append(ks, it.Next().Key)
	}
	return ks
}

func exampleDiff() *DiffMap[string, int] {
	underlying := strMap(Entry[string, int]{"k1", 1}, Entry[string, int]{"k2", 2}, Entry[string, int]{"k3", 3})
	added := strMap(Entry[string, int]{"k4", 4})
	return NewDiffMap[string, int](underlying, added, NewRemovedSet(1))
}

func TestDiffExample(t *testing.T) {
	m := exampleDiff()
	assert.Equal(t, int64(3), m.Size())
	assert.Equal(t, []string{"k1", "k3", "k4"}, keys(m.Iterator()))

	i, ok := m.IndexOf("k3")
	assert.True(t, ok)
	assert.Equal(t, int64(1), i)
	_, ok = m.IndexOf("k2")
	assert.False(t, ok)
	_, ok = m.IndexOf("missing")
	assert.False(t, ok)

	e, err := m.Nth(2)
	require.NoError(t, err)
	assert.Equal(t, Entry[string, int]{"k4", 4}, e)

	v, ok := m.Get("k3")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = m.Get("k2")
	assert.False(t, ok)
}

func TestDiffNthOutOfRange(t *testing.T) {
	m := exampleDiff()
	_, err := m.Nth(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = m.Nth(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAddedWinsOverUnremoved(t *testing.T) {
	underlying := strMap(Entry[string, int]{"a", 1}, Entry[string, int]{"b", 2})
	added := strMap(Entry[string, int]{"a", 10})
	m := NewDiffMap[string, int](underlying, added, NewRemovedSet())
	i, ok := m.IndexOf("a")
	assert.True(t, ok)
	assert.Equal(t, int64(2), i)
	v, _ := m.Get("a")
	assert.Equal(t, 10, v)
}

func TestDiffDelegatesKeyIdentity(t *testing.T) {
	m := exampleDiff()
	assert.Equal(t, StringHash("x"), m.KeyHash()("x"))
	assert.True(t, m.KeyEqual()("x", "x"))
}

func TestUneditedIteratesLikeUnderlying(t *testing.T) {
	underlying := strMap(Entry[string, int]{"a", 1}, Entry[string, int]{"b", 2})
	m := NewDiffMap[string, int](underlying, strMap(), NewRemovedSet())
	assert.Equal(t, Collect(underlying.Iterator()), Collect(m.Iterator()))
}

func TestRebase(t *testing.T) {
	m := exampleDiff()
	other := strMap(Entry[string, int]{"x1", 1}, Entry[string, int]{"x2", 2}, Entry[string, int]{"x3", 3})
	r := m.Rebase(other)
	assert.Equal(t, []string{"x1", "x3", "k4"}, keys(r.Iterator()))
	assert.Same(t, m.Added(), r.Added())
	assert.Equal(t, m.RemovedIndices(), r.RemovedIndices())
	assert.Equal(t, []string{"k1", "k3", "k4"}, keys(m.Iterator()), "rebase leaves m unchanged")
}

// brokenNth finds keys but cannot return their entries.
type brokenNth struct {
	*LinearMap[string, int]
}

func (brokenNth) Nth(i int64) (Entry[string, int], error) {
	return Entry[string, int]{}, ErrIndexOutOfRange
}

func TestGetSurfacesInconsistentUnderlying(t *testing.T) {
	underlying := brokenNth{strMap(Entry[string, int]{"a", 1})}
	m := NewDiffMap[string, int](underlying, strMap(), NewRemovedSet())
	assert.Panics(t, func() { m.Get("a") })
	_, ok := m.Get("missing")
	assert.False(t, ok, "absent keys are still reported as absent")
}

// randomDiff removes a random subset of the underlying entries, shadowing some
// of them with new values in added.
func randomDiff(r *rand.Rand, n int) *DiffMap[string, int] {
	underlying := strMap()
	for i := 0; i < n; i++ {
		underlying.Put(fmt.Sprintf("u%d", i), i)
	}
	added := strMap()
	var removed []int64
	for i := 0; i < n; i++ {
		switch r.Intn(4) {
		case 0:
			removed = append(removed, int64(i))
		case 1:
			removed = append(removed, int64(i))
			added.Put(fmt.Sprintf("u%d", i), -i)
		}
	}
	extra := r.Intn(10)
	for i := 0; i < extra; i++ {
		added.Put(fmt.Sprintf("a%d", i), i)
	}
	return NewDiffMap[string, int](underlying, added, NewRemovedSet(removed...))
}

func TestDiffProperties(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for trial := 0; trial < 30; trial++ {
		m := randomDiff(r, 50)
		require.Equal(t, m.Underlying().Size()+m.Added().Size()-m.RemovedIndices().Size(), m.Size())

		entries := Collect(m.Iterator())
		require.Len(t, entries, int(m.Size()))
		for i := int64(0); i < m.Size(); i++ {
			e, err := m.Nth(i)
			require.NoError(t, err)
			require.Equal(t, entries[i], e, "Nth agrees with iteration")
			idx, ok := m.IndexOf(e.Key)
			require.True(t, ok)
			require.Equal(t, i, idx)
			v, ok := m.Get(e.Key)
			require.True(t, ok)
			require.Equal(t, e.Value, v)
		}
	}
}
