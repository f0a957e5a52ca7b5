package bpstree

import (
	"fmt"

	"bpstree/matras"
)

// Tree is an in-memory B+*-tree over elements of type E, looked up by
// keys of type K. It holds no payload semantics beyond ordering — the
// caller's Comparator decides what "equal" and "less" mean.
//
// Tree is single-threaded: no method is safe to call concurrently with
// another, including readers against a concurrent mutator (spec.md §5).
type Tree[E any, K any] struct {
	cfg   Config
	codec Codec[E]
	cmp   Comparator[E, K]

	mat     *matras.Matras
	garbage garbageList

	rootID               matras.BID
	firstLeaf, lastLeaf  matras.BID
	depth                int
	size                 int
	leafCount, innerCount int

	maxElem E
	hasMax  bool
}

// Stats is a read-only snapshot of tree bookkeeping, used by the
// debug/inspection tooling (cmd/bpsinspect).
type Stats struct {
	Size         int
	Depth        int
	LeafCount    int
	InnerCount   int
	GarbageCount int
	ExtentCount  int
	MemUsed      int
}

// Create initializes an empty tree (spec.md §6, "create(arg, alloc, free)").
// alloc/free are the host-supplied extent allocator; matras.HeapAlloc and
// matras.HeapFree are a reasonable default, matras.MmapAlloc/MmapFree a
// realistic one for a real storage engine.
func Create[E any, K any](codec Codec[E], cmp Comparator[E, K], alloc matras.AllocFunc, free matras.FreeFunc, opts ...Option) (*Tree[E, K], error) {
	cfg := NewConfig(opts...)
	m, err := matras.Create(cfg.BlockSize, cfg.ExtentSize, alloc, free)
	if err != nil {
		return nil, fmt.Errorf("bpstree.Create: %w", err)
	}
	return &Tree[E, K]{
		cfg:     cfg,
		codec:   codec,
		cmp:     cmp,
		mat:     m,
		garbage: newGarbageList(),
		rootID:  matras.NoBlock,
		firstLeaf: matras.NoBlock,
		lastLeaf:  matras.NoBlock,
	}, nil
}

// Destroy releases every extent the tree has ever allocated back to the
// host's free callback. The Tree must not be used afterward.
func (t *Tree[E, K]) Destroy() {
	t.mat.Reset()
	t.rootID = matras.NoBlock
	t.firstLeaf, t.lastLeaf = matras.NoBlock, matras.NoBlock
	t.depth, t.size = 0, 0
	t.leafCount, t.innerCount = 0, 0
	t.garbage = newGarbageList()
	var zero E
	t.maxElem, t.hasMax = zero, false
}

// Size returns the number of elements currently in the tree, O(1).
func (t *Tree[E, K]) Size() int { return t.size }

// MemUsed returns the total bytes held from the host extent allocator,
// O(1). Garbage-listed blocks count — the garbage list never returns
// memory to the allocator on its own (spec.md §9); see Shrink.
func (t *Tree[E, K]) MemUsed() int { return t.mat.MemUsed() }

// Depth returns the current tree height (0 for an empty tree).
func (t *Tree[E, K]) Depth() int { return t.depth }

// Stats returns a snapshot of internal counters, for debug tooling.
func (t *Tree[E, K]) Stats() Stats {
	return Stats{
		Size:         t.size,
		Depth:        t.depth,
		LeafCount:    t.leafCount,
		InnerCount:   t.innerCount,
		GarbageCount: t.garbage.size,
		ExtentCount:  t.mat.ExtentCount(),
		MemUsed:      t.mat.MemUsed(),
	}
}

// empty reports whether the tree currently has no root.
func (t *Tree[E, K]) empty() bool { return t.rootID == matras.NoBlock }
