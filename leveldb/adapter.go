// Package leveldb stores durable blocks in a LevelDB database.
package leveldb

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/jmhodges/levigo"
	"github.com/pkg/errors"

	"github.com/tchajed/durable/alloc"
	"github.com/tchajed/durable/durable"
	"github.com/tchajed/durable/logging"
)

// Target is a durable.Target keeping each block as one LevelDB value
type Target struct {
	db    *levigo.DB
	cache *levigo.Cache
	wo    *levigo.WriteOptions
	ro    *levigo.ReadOptions
	alloc alloc.Allocator
	opts  durable.Options
	log   logging.Logger
}

var _ durable.Target = &Target{}

func levelDbOpts(cache *levigo.Cache) *levigo.Options {
	opts := levigo.NewOptions()
	opts.SetCreateIfMissing(true)
	// blocks are written once and read whole
	opts.SetCompression(levigo.NoCompression)
	opts.SetCache(cache)
	// 4MB is the default
	opts.SetWriteBufferSize(4 * 1024 * 1024)
	return opts
}

// New opens (creating if needed) a LevelDB database at path.
func New(path string, a alloc.Allocator, opts durable.Options, log logging.Logger) (*Target, error) {
	cache := levigo.NewLRUCache(8 << 20)
	lopts := levelDbOpts(cache)
	defer lopts.Close()
	db, err := levigo.Open(path, lopts)
	if err != nil {
		cache.Close()
		return nil, errors.Wrapf(err, "leveldb: open %s", path)
	}
	wo := levigo.NewWriteOptions()
	wo.SetSync(true)
	return &Target{
		db:    db,
		cache: cache,
		wo:    wo,
		ro:    levigo.NewReadOptions(),
		alloc: a,
		opts:  opts,
		log:   log,
	}, nil
}

func (t *Target) Save(bt durable.BlockType, body func(out *durable.Accumulator) error) (durable.Handle, error) {
	var buf bytes.Buffer
	n, err := durable.WriteBlock(&buf, t.alloc, t.opts, bt, body)
	if err != nil {
		return durable.Handle{}, err
	}
	name := uuid.NewString()
	if err := t.db.Put(t.wo, []byte(name), buf.Bytes()); err != nil {
		return durable.Handle{}, errors.Wrapf(err, "leveldb: put %s", name)
	}
	t.log.Debug("saved block", "name", name, "type", bt.String(), "bytes", n)
	return durable.Handle{Name: name, Size: n}, nil
}

func (t *Target) Read(h durable.Handle) ([]byte, error) {
	data, err := t.db.Get(t.ro, []byte(h.Name))
	if err != nil {
		return nil, errors.Wrapf(err, "leveldb: get %s", h.Name)
	}
	if data == nil {
		return nil, errors.Wrapf(durable.ErrNotFound, "%s", h.Name)
	}
	return data, nil
}

func (t *Target) Remove(h durable.Handle) error {
	if _, err := t.Read(h); err != nil {
		return err
	}
	return errors.Wrapf(t.db.Delete(t.wo, []byte(h.Name)), "leveldb: delete %s", h.Name)
}

// Compact runs log and sstable compaction.
func (t *Target) Compact() {
	t.db.CompactRange(levigo.Range{})
}

// Close shuts down the database.
func (t *Target) Close() {
	t.ro.Close()
	t.wo.Close()
	t.db.Close()
	t.cache.Close()
}
