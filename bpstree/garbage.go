package bpstree

import (
	"encoding/binary"
	"fmt"

	"bpstree/matras"
)

// garbageList is a LIFO singly-linked list threaded through freed
// blocks themselves (spec.md §4.2): push/pop reuse the block's own
// storage for {tag, id, next} instead of allocating bookkeeping nodes.
type garbageList struct {
	head matras.BID
	size int
}

func newGarbageList() garbageList { return garbageList{head: matras.NoBlock} }

func encodeGarbage(blk []byte, id, next matras.BID) {
	blk[0] = byte(tagGarbage)
	binary.LittleEndian.PutUint32(blk[1:5], uint32(id))
	binary.LittleEndian.PutUint32(blk[5:9], uint32(next))
}

func decodeGarbageNext(blk []byte) matras.BID {
	return matras.BID(binary.LittleEndian.Uint32(blk[5:9]))
}

// push tags block bid as garbage and prepends it to the list.
func (t *Tree[E, K]) pushGarbage(bid matras.BID) {
	blk := t.mat.Get(bid)
	encodeGarbage(blk, bid, t.garbage.head)
	t.garbage.head = bid
	t.garbage.size++
}

// popGarbage detaches and returns the head of the garbage list, or
// false if empty.
func (t *Tree[E, K]) popGarbage() (matras.BID, bool) {
	if t.garbage.head == matras.NoBlock {
		return matras.NoBlock, false
	}
	bid := t.garbage.head
	blk := t.mat.Get(bid)
	t.garbage.head = decodeGarbageNext(blk)
	t.garbage.size--
	return bid, true
}

// reserveGarbage ensures the garbage list holds at least n blocks,
// allocating fresh ones from the matras as needed. This is the sole
// fallible step of a mutating insert (spec.md §4.2, §5): it must run
// before any mutation so a failed reservation never leaves a
// half-modified tree.
func (t *Tree[E, K]) reserveGarbage(n int) error {
	for t.garbage.size < n {
		bid, _, err := t.mat.Alloc()
		if err != nil {
			return fmt.Errorf("reserveGarbage: %w", err)
		}
		t.pushGarbage(bid)
	}
	return nil
}

// allocBlock pops a pre-reserved block from the garbage list. Callers
// must have called reserveGarbage with a sufficient count beforehand;
// this never allocates and never fails once reserved.
func (t *Tree[E, K]) allocBlock() matras.BID {
	bid, ok := t.popGarbage()
	if !ok {
		panic("bpstree: allocBlock called without a prior reserveGarbage covering this mutation")
	}
	return bid
}

// disposeBlock reclaims a block that is no longer part of the live
// tree, returning it to the garbage list for reuse. The block's ID
// stays valid for iterators that captured it mid-traversal (spec.md
// §4.8); only the tag changes.
func (t *Tree[E, K]) disposeBlock(bid matras.BID) {
	t.pushGarbage(bid)
}
