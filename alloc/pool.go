// Package alloc supplies the fixed-capacity byte buffers that durable output is
// accumulated into.
//
// A Pool rounds every request up to a power-of-two size class between
// MinClassBytes and its largest pooled class, and keeps freed slabs of each class
// in a sync.Pool for reuse. Requests above the largest class are allocated at
// their exact size and dropped on Free. There is no generational bookkeeping:
// idle slabs are reclaimed by the garbage collector.
package alloc

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// MinClassBytes is the smallest size class.
	MinClassBytes = 1 << 10
	// DefaultMaxPooledBytes is the largest pooled size class unless configured.
	DefaultMaxPooledBytes = 16 << 20
)

// Allocator hands out buffers of at least the requested size.
type Allocator interface {
	Allocate(n int) (*Buffer, error)
}

// reclaimer takes back the slab of a freed buffer.
type reclaimer interface {
	reclaim(b *Buffer)
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	// MaxPooledBytes is the largest size class; it is rounded up to a power of two.
	MaxPooledBytes int
	// LimitBytes caps the bytes held by live buffers (0 means no limit).
	LimitBytes int64
	// Name labels the pool's metrics.
	Name string
}

// Pool is a size-class allocator. It is safe for concurrent use.
type Pool struct {
	classes  []sync.Pool
	maxClass int
	limit    int64

	liveBuffers atomic.Int64
	liveBytes   atomic.Int64

	allocations prometheus.Counter
	frees       prometheus.Counter
	bufferGauge prometheus.GaugeFunc
	bytesGauge  prometheus.GaugeFunc
}

var _ Allocator = &Pool{}

// NewPool creates a Pool.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.MaxPooledBytes <= 0 {
		cfg.MaxPooledBytes = DefaultMaxPooledBytes
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	maxClass := classOf(cfg.MaxPooledBytes)
	p := &Pool{
		classes:  make([]sync.Pool, maxClass+1),
		maxClass: maxClass,
		limit:    cfg.LimitBytes,
	}
	labels := prometheus.Labels{"pool": cfg.Name}
	p.allocations = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "durable_alloc_allocations_total",
		Help:        "Buffers handed out by the allocator",
		ConstLabels: labels,
	})
	p.frees = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "durable_alloc_frees_total",
		Help:        "Buffers returned to the allocator",
		ConstLabels: labels,
	})
	p.bufferGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "durable_alloc_live_buffers",
		Help:        "Buffers allocated and not yet freed",
		ConstLabels: labels,
	}, func() float64 { return float64(p.liveBuffers.Load()) })
	p.bytesGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "durable_alloc_live_bytes",
		Help:        "Bytes held by live buffers",
		ConstLabels: labels,
	}, func() float64 { return float64(p.liveBytes.Load()) })
	return p
}

// classOf returns the index of the smallest class holding n bytes; class i
// holds MinClassBytes << i.
func classOf(n int) int {
	if n <= MinClassBytes {
		return 0
	}
	return bits.Len(uint(n-1)) - bits.Len(uint(MinClassBytes-1))
}

func classSize(c int) int {
	return MinClassBytes << c
}

// Allocate returns a writable buffer of at least n bytes.
func (p *Pool) Allocate(n int) (*Buffer, error) {
	if n < 0 {
		return nil, errors.Errorf("alloc: negative size %d", n)
	}
	c := classOf(n)
	size := n
	if c <= p.maxClass {
		size = classSize(c)
	}
	if live := p.liveBytes.Add(int64(size)); p.limit > 0 && live > p.limit {
		p.liveBytes.Add(-int64(size))
		return nil, errors.Wrapf(ErrExhausted, "allocating %d bytes with %d live", size, live-int64(size))
	}
	var slab []byte
	if c <= p.maxClass {
		if s, ok := p.classes[c].Get().(*[]byte); ok {
			slab = *s
		}
	}
	if slab == nil {
		slab = make([]byte, size)
	}
	p.liveBuffers.Add(1)
	p.allocations.Inc()
	return &Buffer{owner: p, slab: slab[:size]}, nil
}

func (p *Pool) reclaim(b *Buffer) {
	size := len(b.slab)
	p.liveBuffers.Add(-1)
	p.liveBytes.Add(-int64(size))
	p.frees.Inc()
	c := classOf(size)
	if c <= p.maxClass && classSize(c) == size {
		slab := b.slab
		p.classes[c].Put(&slab)
	}
}

// Live reports the number of buffers allocated from p and not yet freed.
func (p *Pool) Live() int64 {
	return p.liveBuffers.Load()
}

// LiveBytes reports the bytes held by live buffers.
func (p *Pool) LiveBytes() int64 {
	return p.liveBytes.Load()
}

// Collectors returns the pool's metrics for registration.
func (p *Pool) Collectors() []prometheus.Collector {
	return []prometheus.Collector{p.allocations, p.frees, p.bufferGauge, p.bytesGauge}
}
