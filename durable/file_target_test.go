package durable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tchajed/durable/alloc"
	"github.com/tchajed/durable/bin"
	"github.com/tchajed/durable/fs"
	"github.com/tchajed/durable/logging"
)

type FileTargetSuite struct {
	suite.Suite
	fs     fs.Filesys
	pool   *alloc.Pool
	target *FileTarget
}

func TestFileTarget(t *testing.T) {
	suite.Run(t, new(FileTargetSuite))
}

func (suite *FileTargetSuite) SetupTest() {
	suite.fs = fs.MemFs()
	suite.pool = alloc.NewPool(alloc.PoolConfig{})
	suite.target = NewFileTarget(suite.fs, suite.pool, DefaultOptions(), logging.Discard())
}

func (suite *FileTargetSuite) TearDownTest() {
	suite.Equal(int64(0), suite.pool.Live(), "target leaked buffers")
}

func (suite *FileTargetSuite) save(data []byte) Handle {
	h, err := suite.target.Save(BlockRaw, func(out *Accumulator) error {
		_, err := out.Write(data)
		return err
	})
	suite.Require().NoError(err)
	return h
}

func (suite *FileTargetSuite) TestSaveAndRead() {
	h := suite.save([]byte("hello"))
	suite.Equal(int64(PrefixSize+5), h.Size)

	data, err := suite.target.Read(h)
	suite.Require().NoError(err)
	d := bin.NewDecoder(data)
	p, err := ReadBlockPrefix(d)
	suite.Require().NoError(err)
	suite.Equal(BlockRaw, p.Type)
	suite.Equal([]byte("hello"), d.Bytes(int(p.Length)))
}

func (suite *FileTargetSuite) TestHandles() {
	h1 := suite.save([]byte{1})
	h2 := suite.save([]byte{2, 2})
	hs, err := suite.target.Handles()
	suite.Require().NoError(err)
	suite.ElementsMatch([]Handle{h1, h2}, hs)
}

func (suite *FileTargetSuite) TestRemove() {
	h := suite.save([]byte{1})
	suite.NoError(suite.target.Remove(h))
	_, err := suite.target.Read(h)
	suite.ErrorIs(err, ErrNotFound)
	suite.ErrorIs(suite.target.Remove(h), ErrNotFound)
}

func (suite *FileTargetSuite) TestFailedSaveLeavesNothing() {
	boom := errors.New("boom")
	_, err := suite.target.Save(BlockRaw, func(out *Accumulator) error {
		_ = out.WriteInt64(1)
		return boom
	})
	suite.ErrorIs(err, boom)
	names, err := suite.fs.List()
	suite.Require().NoError(err)
	suite.Empty(names, "temporary file should be removed")
}

// renameFails is a Filesys whose renames always fail.
type renameFails struct {
	fs.Filesys
}

func (renameFails) Rename(src, dst string) error {
	return errors.New("rename not supported")
}

func (suite *FileTargetSuite) TestFailedRenameRemovesTmp() {
	target := NewFileTarget(renameFails{suite.fs}, suite.pool, DefaultOptions(), logging.Discard())
	_, err := target.Save(BlockRaw, func(out *Accumulator) error {
		return out.WriteInt64(1)
	})
	suite.Error(err)
	names, err := suite.fs.List()
	suite.Require().NoError(err)
	suite.Empty(names, "temporary file should be removed")
}

func (suite *FileTargetSuite) TestReadUnknownName() {
	_, err := suite.target.Read(Handle{Name: "nope"})
	suite.ErrorIs(err, ErrNotFound)
}
