package bpstree

import (
	"encoding/binary"
	"fmt"

	"bpstree/matras"
)

// blockTag identifies what a block currently holds. Every variant begins
// with its tag byte; leaf and inner blocks follow it with a size, while
// garbage blocks hold {tag, id, next}.
type blockTag byte

const (
	tagLeaf blockTag = iota
	tagInner
	tagGarbage
)

const (
	leafHeaderSize    = 1 + 2 + 4 + 4 // tag, size, prevID, nextID
	innerHeaderSize   = 1 + 2         // tag, size
	garbageHeaderSize = 1 + 4 + 4     // tag, id, next
)

// leafNode is the decoded, in-memory view of a leaf block.
type leafNode[E any] struct {
	id         matras.BID
	prev, next matras.BID
	elems      []E
}

// innerNode is the decoded, in-memory view of an inner block. len(seps)
// == len(children)-1; seps[i] is a copy of the max element of the
// subtree rooted at children[i] (spec.md §3, invariant 4). The
// rightmost child's max lives one level up.
type innerNode[E any] struct {
	id       matras.BID
	seps     []E
	children []matras.BID
}

// lmax/imax are the derived fan-out limits from spec.md §3.
func (t *Tree[E, K]) lmax() int {
	return (t.cfg.BlockSize - leafHeaderSize) / t.codec.Size()
}

func (t *Tree[E, K]) imax() int {
	return (t.cfg.BlockSize - innerHeaderSize) / (t.codec.Size() + 4)
}

// leafMin/innerMin are the B+* minimum fill thresholds, ceil(2/3 * max)
// (spec.md §3 invariants 1-2: "⌈2·LMAX/3⌉").
func leafMin(lmax int) int  { return (2*lmax + 2) / 3 }
func innerMin(imax int) int { return (2*imax + 2) / 3 }

func blockTagOf(blk []byte) blockTag { return blockTag(blk[0]) }

func (t *Tree[E, K]) decodeLeaf(bid matras.BID) (*leafNode[E], error) {
	blk := t.mat.Get(bid)
	if blockTag(blk[0]) != tagLeaf {
		return nil, fmt.Errorf("decodeLeaf: block %d is not a leaf (tag=%d)", bid, blk[0])
	}
	size := int(binary.LittleEndian.Uint16(blk[1:3]))
	prev := matras.BID(binary.LittleEndian.Uint32(blk[3:7]))
	next := matras.BID(binary.LittleEndian.Uint32(blk[7:11]))

	n := &leafNode[E]{id: bid, prev: prev, next: next, elems: make([]E, size)}
	esz := t.codec.Size()
	off := leafHeaderSize
	for i := 0; i < size; i++ {
		n.elems[i] = t.codec.Decode(blk[off : off+esz])
		off += esz
	}
	return n, nil
}

func (t *Tree[E, K]) encodeLeaf(n *leafNode[E]) error {
	blk := t.mat.Get(n.id)
	esz := t.codec.Size()
	need := leafHeaderSize + len(n.elems)*esz
	if need > len(blk) {
		return fmt.Errorf("encodeLeaf: %d elements overflow block (need %d, have %d)", len(n.elems), need, len(blk))
	}
	blk[0] = byte(tagLeaf)
	binary.LittleEndian.PutUint16(blk[1:3], uint16(len(n.elems)))
	binary.LittleEndian.PutUint32(blk[3:7], uint32(n.prev))
	binary.LittleEndian.PutUint32(blk[7:11], uint32(n.next))
	off := leafHeaderSize
	for _, e := range n.elems {
		t.codec.Encode(e, blk[off:off+esz])
		off += esz
	}
	return nil
}

func (t *Tree[E, K]) decodeInner(bid matras.BID) (*innerNode[E], error) {
	blk := t.mat.Get(bid)
	if blockTag(blk[0]) != tagInner {
		return nil, fmt.Errorf("decodeInner: block %d is not an inner node (tag=%d)", bid, blk[0])
	}
	size := int(binary.LittleEndian.Uint16(blk[1:3]))
	n := &innerNode[E]{id: bid, seps: make([]E, size-1), children: make([]matras.BID, size)}
	esz := t.codec.Size()
	off := innerHeaderSize
	for i := 0; i < size-1; i++ {
		n.seps[i] = t.codec.Decode(blk[off : off+esz])
		off += esz
	}
	for i := 0; i < size; i++ {
		n.children[i] = matras.BID(binary.LittleEndian.Uint32(blk[off : off+4]))
		off += 4
	}
	return n, nil
}

func (t *Tree[E, K]) encodeInner(n *innerNode[E]) error {
	blk := t.mat.Get(n.id)
	esz := t.codec.Size()
	size := len(n.children)
	need := innerHeaderSize + (size-1)*esz + size*4
	if need > len(blk) || size-1 != len(n.seps) {
		return fmt.Errorf("encodeInner: %d children/%d seps overflow block or mismatch (need %d, have %d)", size, len(n.seps), need, len(blk))
	}
	blk[0] = byte(tagInner)
	binary.LittleEndian.PutUint16(blk[1:3], uint16(size))
	off := innerHeaderSize
	for _, s := range n.seps {
		t.codec.Encode(s, blk[off:off+esz])
		off += esz
	}
	for _, c := range n.children {
		binary.LittleEndian.PutUint32(blk[off:off+4], uint32(c))
		off += 4
	}
	return nil
}
