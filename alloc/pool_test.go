package alloc

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClasses(t *testing.T) {
	assert := assert.New(t)
	for _, tc := range []struct {
		n     int
		class int
	}{
		{0, 0}, {1, 0}, {1024, 0}, {1025, 1}, {2048, 1}, {4096, 2}, {4097, 3},
	} {
		assert.Equal(tc.class, classOf(tc.n), "class of %d", tc.n)
		assert.GreaterOrEqual(classSize(classOf(tc.n)), tc.n)
	}
}

func TestAllocateNeverSmaller(t *testing.T) {
	p := NewPool(PoolConfig{MaxPooledBytes: 64 << 10})
	for _, n := range []int{1, 100, 4096, 5000, 64 << 10, 100 << 10} {
		b, err := p.Allocate(n)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b.Size(), n)
		assert.Len(t, b.Bytes(), b.Size())
		require.NoError(t, b.Free())
	}
	assert.Zero(t, p.Live())
	assert.Zero(t, p.LiveBytes())
}

func TestOversizedNotRounded(t *testing.T) {
	p := NewPool(PoolConfig{MaxPooledBytes: 4096})
	b, err := p.Allocate(10000)
	require.NoError(t, err)
	assert.Equal(t, 10000, b.Size())
	require.NoError(t, b.Free())
}

func TestBufferLifecycle(t *testing.T) {
	assert := assert.New(t)
	p := NewPool(PoolConfig{})
	b, err := p.Allocate(10)
	require.NoError(t, err)
	assert.False(b.Frozen())
	assert.Nil(b.Data())
	copy(b.Bytes(), []byte{1, 2, 3})

	b.Close(3)
	assert.True(b.Frozen())
	assert.Nil(b.Bytes(), "writable view is invalid after close")
	assert.Equal([]byte{1, 2, 3}, b.Data())
	assert.Equal(3, b.Size())
	assert.Equal(int64(3), b.Input().Remaining())

	assert.Equal(int64(1), p.Live())
	assert.NoError(b.Free())
	assert.ErrorIs(b.Free(), ErrFreed)
	assert.Zero(p.Live())
}

func TestCloseTwicePanics(t *testing.T) {
	b := Wrap([]byte{1})
	assert.Panics(t, func() { b.Close(1) })
}

func TestLimit(t *testing.T) {
	p := NewPool(PoolConfig{LimitBytes: 4096})
	a, err := p.Allocate(4096)
	require.NoError(t, err)
	_, err = p.Allocate(1)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, int64(1), p.Live(), "failed allocation holds nothing")
	require.NoError(t, a.Free())
	b, err := p.Allocate(1)
	require.NoError(t, err)
	require.NoError(t, b.Free())
}

func TestWrapIsUnpooled(t *testing.T) {
	p := NewPool(PoolConfig{})
	b := Wrap([]byte("abc"))
	assert.True(t, b.Frozen())
	assert.Equal(t, "abc", string(b.Data()))
	assert.NoError(t, b.Free())
	assert.Zero(t, p.Live())
}

func TestMetrics(t *testing.T) {
	p := NewPool(PoolConfig{Name: "test"})
	reg := prometheus.NewPedanticRegistry()
	for _, c := range p.Collectors() {
		require.NoError(t, reg.Register(c))
	}
	b1, _ := p.Allocate(1)
	b2, _ := p.Allocate(2000)
	require.NoError(t, b1.Free())

	assert.Equal(t, 2.0, testutil.ToFloat64(p.allocations))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.frees))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.bufferGauge))
	assert.Equal(t, 2048.0, testutil.ToFloat64(p.bytesGauge))
	require.NoError(t, b2.Free())
}
