package durable

import "github.com/pkg/errors"

const (
	DefaultMinBufferSize  = 4 << 10
	DefaultMaxBufferSize  = 16 << 20
	DefaultMergeThreshold = 64 << 10
)

// Options controls how an Accumulator sizes and merges buffers.
type Options struct {
	// MinBufferSize is the size of the first buffer and the lower bound for
	// every later one.
	MinBufferSize int `yaml:"min_buffer_bytes"`
	// MaxBufferSize bounds every buffer after the first.
	MaxBufferSize int `yaml:"max_buffer_bytes"`
	// MergeThreshold is the size below which appended buffers are copied
	// into the current buffer rather than adopted.
	MergeThreshold int `yaml:"merge_threshold_bytes"`
}

// DefaultOptions returns the standard buffer sizing.
func DefaultOptions() Options {
	return Options{
		MinBufferSize:  DefaultMinBufferSize,
		MaxBufferSize:  DefaultMaxBufferSize,
		MergeThreshold: DefaultMergeThreshold,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinBufferSize <= 0 {
		o.MinBufferSize = d.MinBufferSize
	}
	if o.MaxBufferSize <= 0 {
		o.MaxBufferSize = d.MaxBufferSize
	}
	if o.MergeThreshold <= 0 {
		o.MergeThreshold = d.MergeThreshold
	}
	return o
}

// Validate checks that the sizes are consistent.
func (o Options) Validate() error {
	o = o.withDefaults()
	// scalar writes need room for the widest value
	if o.MinBufferSize < 16 {
		return errors.Errorf("durable: min buffer size %d is below 16 bytes", o.MinBufferSize)
	}
	if o.MaxBufferSize < o.MinBufferSize {
		return errors.Errorf("durable: max buffer size %d is below min buffer size %d",
			o.MaxBufferSize, o.MinBufferSize)
	}
	return nil
}
