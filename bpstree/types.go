package bpstree

import "bpstree/matras"

// Codec gives the tree a fixed-size binary encoding for the element
// type E, the same role storage_engine/access/indexfile_manager/bplustree's
// SerializeNode/DeserializeNode play for whole nodes, narrowed down to a
// single element.
type Codec[E any] interface {
	// Size is the fixed number of bytes Encode always writes and Decode
	// always reads.
	Size() int
	Encode(e E, buf []byte)
	Decode(buf []byte) E
}

// Comparator supplies the two orderings the tree needs: element-to-element
// (for internal ordering) and element-to-key (for lookup). Implementations
// must be pure and total, per spec.md §5.
type Comparator[E any, K any] interface {
	CompareElems(a, b E) int
	CompareKey(e E, k K) int
}

// BID is re-exported so callers of Iterator don't need to import matras
// directly.
type BID = matras.BID

const noBlock = matras.NoBlock

// Config bundles the compile-time parameters of spec.md §6. Build it
// with NewConfig and zero or more Options, then pass it to Create/Build.
type Config struct {
	BlockSize    int
	ExtentSize   int
	LinearSearch bool
}

// Option mutates a Config at construction time.
type Option func(*Config)

// WithBlockSize overrides the default 512-byte block size. Must be a
// power of two.
func WithBlockSize(n int) Option { return func(c *Config) { c.BlockSize = n } }

// WithExtentSize overrides the default 16 KiB extent size. Must be a
// power of two multiple of the block size.
func WithExtentSize(n int) Option { return func(c *Config) { c.ExtentSize = n } }

// WithLinearSearch switches in-block search from binary to linear,
// which wins for very small elements (spec.md §6).
func WithLinearSearch() Option { return func(c *Config) { c.LinearSearch = true } }

// NewConfig builds a Config from spec.md's defaults (512B blocks, 16KiB
// extents, binary search) plus any overrides.
func NewConfig(opts ...Option) Config {
	c := Config{BlockSize: 512, ExtentSize: 16 * 1024, LinearSearch: false}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// maxDepth is the compile-time bound on tree height (spec.md §3).
const maxDepth = 16
