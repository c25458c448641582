package durable

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tchajed/durable/alloc"
	"github.com/tchajed/durable/bin"
)

func TestBlockPrefixLayout(t *testing.T) {
	p := BlockPrefix{Length: 3, Type: BlockMap}
	b := p.AppendTo(nil)
	assert.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0, byte(BlockMap)}, b)
	assert.Len(t, b, PrefixSize)

	var buf bytes.Buffer
	n, err := p.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(PrefixSize), n)
	assert.Equal(t, b, buf.Bytes())
}

func TestFlushBlockTo(t *testing.T) {
	pool := alloc.NewPool(alloc.PoolConfig{})
	acc := newAcc(t, pool, DefaultOptions())
	defer acc.Release()
	write(t, acc, []byte("payload"))

	var buf bytes.Buffer
	n, err := acc.FlushBlockTo(&buf, BlockRaw)
	require.NoError(t, err)
	assert.Equal(t, int64(PrefixSize+7), n)

	d := bin.NewDecoder(buf.Bytes())
	p, err := ReadBlockPrefix(d)
	require.NoError(t, err)
	assert.Equal(t, BlockPrefix{Length: 7, Type: BlockRaw}, p)
	assert.Equal(t, []byte("payload"), d.Bytes(int(p.Length)))
}

func TestZeroRegionIsInvalid(t *testing.T) {
	_, err := ReadBlockPrefix(bin.NewDecoder(make([]byte, 32)))
	assert.ErrorIs(t, err, ErrBadBlock)
}

func TestTruncatedBlock(t *testing.T) {
	b := BlockPrefix{Length: 100, Type: BlockRaw}.AppendTo(nil)
	_, err := ReadBlockPrefix(bin.NewDecoder(append(b, 1, 2, 3)))
	assert.ErrorIs(t, err, ErrBadBlock)

	_, err = ReadBlockPrefix(bin.NewDecoder([]byte{1, 2}))
	assert.ErrorIs(t, err, ErrBadBlock)
}

func TestSkipBlock(t *testing.T) {
	b := BlockPrefix{Length: 2, Type: BlockType(200)}.AppendTo(nil)
	b = append(b, 0xaa, 0xbb, 0x07)
	d := bin.NewDecoder(b)
	p, err := ReadBlockPrefix(d)
	require.NoError(t, err)
	assert.Equal(t, "BlockType(200)", p.Type.String())
	require.NoError(t, SkipBlock(d, p))
	assert.Equal(t, uint8(7), d.Uint8())
}
