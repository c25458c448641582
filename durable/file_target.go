package durable

import (
	"bufio"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tchajed/durable/alloc"
	"github.com/tchajed/durable/fs"
	"github.com/tchajed/durable/logging"
)

const blockExt = ".blk"

// FileTarget stores each block in its own file of a Filesys.
type FileTarget struct {
	fs    fs.Filesys
	alloc alloc.Allocator
	opts  Options
	log   logging.Logger
}

var _ Target = &FileTarget{}

// NewFileTarget creates a target over filesys. Blocks are built in buffers
// from a.
func NewFileTarget(filesys fs.Filesys, a alloc.Allocator, opts Options, log logging.Logger) *FileTarget {
	return &FileTarget{fs: filesys, alloc: a, opts: opts, log: log}
}

// Save writes the block to <uuid>.blk.tmp, syncs it and renames it into
// place, so a crash never leaves a partial .blk file.
func (t *FileTarget) Save(bt BlockType, body func(out *Accumulator) error) (Handle, error) {
	name := uuid.NewString() + blockExt
	tmp := name + ".tmp"
	f, err := t.fs.Create(tmp)
	if err != nil {
		return Handle{}, err
	}
	fail := func(err error) (Handle, error) {
		_ = f.Close()
		_ = t.fs.Delete(tmp)
		return Handle{}, err
	}
	w := bufio.NewWriter(f)
	n, err := WriteBlock(w, t.alloc, t.opts, bt, body)
	if err != nil {
		return fail(errors.Wrapf(err, "save %s", name))
	}
	if err := w.Flush(); err != nil {
		return fail(errors.Wrapf(err, "flush %s", tmp))
	}
	if err := f.Sync(); err != nil {
		return fail(errors.Wrapf(err, "sync %s", tmp))
	}
	if err := f.Close(); err != nil {
		_ = t.fs.Delete(tmp)
		return Handle{}, errors.Wrapf(err, "close %s", tmp)
	}
	if err := t.fs.Rename(tmp, name); err != nil {
		_ = t.fs.Delete(tmp)
		return Handle{}, err
	}
	t.log.Debug("saved block", "name", name, "type", bt.String(), "bytes", n)
	return Handle{Name: name, Size: n}, nil
}

func (t *FileTarget) Read(h Handle) ([]byte, error) {
	if !strings.HasSuffix(h.Name, blockExt) {
		return nil, errors.Wrapf(ErrNotFound, "%q", h.Name)
	}
	data, err := fs.ReadAll(t.fs, h.Name)
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "%s: %v", h.Name, err)
	}
	return data, nil
}

func (t *FileTarget) Remove(h Handle) error {
	if err := t.fs.Delete(h.Name); err != nil {
		return errors.Wrapf(ErrNotFound, "%s: %v", h.Name, err)
	}
	t.log.Debug("removed block", "name", h.Name)
	return nil
}

// Handles lists every complete block in the target.
func (t *FileTarget) Handles() ([]Handle, error) {
	names, err := t.fs.List()
	if err != nil {
		return nil, err
	}
	var hs []Handle
	for _, n := range names {
		if !strings.HasSuffix(n, blockExt) {
			continue
		}
		f, err := t.fs.Open(n)
		if err != nil {
			return nil, err
		}
		hs = append(hs, Handle{Name: n, Size: f.Size()})
		_ = f.Close()
	}
	return hs, nil
}
