package bpstree

import "bpstree/matras"

// Iterator walks the tree's leaf chain in key order. Per SPEC_FULL.md's
// resolution of spec.md §9's open question, the "last element of leaf"
// sentinel position is canonicalized eagerly — Iterator never stores
// pos == -1, it always holds a concrete index or is invalid.
//
// An iterator remains safe to use after a structural mutation
// elsewhere in the tree: its block ID stays live (reclamation goes
// through the garbage list, and memory only goes back to the host on an
// explicit Shrink, after which it is no longer safe — see Shrink), but
// the element at (id, pos) may have changed identity (spec.md §4.8).
type Iterator[E any, K any] struct {
	t     *Tree[E, K]
	id    matras.BID
	pos   int
	valid bool
}

// First returns an iterator at the smallest element, or an invalid one
// if the tree is empty. O(1).
func (t *Tree[E, K]) First() *Iterator[E, K] {
	if t.empty() {
		return &Iterator[E, K]{t: t, id: noBlock, valid: false}
	}
	return &Iterator[E, K]{t: t, id: t.firstLeaf, pos: 0, valid: true}
}

// Last returns an iterator at the largest element, or an invalid one if
// the tree is empty. O(1).
func (t *Tree[E, K]) Last() *Iterator[E, K] {
	if t.empty() {
		return &Iterator[E, K]{t: t, id: noBlock, valid: false}
	}
	leaf, err := t.decodeLeaf(t.lastLeaf)
	if err != nil || len(leaf.elems) == 0 {
		return &Iterator[E, K]{t: t, id: noBlock, valid: false}
	}
	return &Iterator[E, K]{t: t, id: t.lastLeaf, pos: len(leaf.elems) - 1, valid: true}
}

// LowerBound returns an iterator at the first element >= key, and
// whether an element comparing exactly equal to key exists.
func (t *Tree[E, K]) LowerBound(key K) (*Iterator[E, K], bool) {
	if t.empty() {
		return &Iterator[E, K]{t: t, id: noBlock, valid: false}, false
	}
	path, err := t.collectPathForKey(key)
	if err != nil {
		return &Iterator[E, K]{t: t, id: noBlock, valid: false}, false
	}
	leafID := path[len(path)-1].id
	leaf, err := t.decodeLeaf(leafID)
	if err != nil {
		return &Iterator[E, K]{t: t, id: noBlock, valid: false}, false
	}
	idx, exact := t.lowerBoundKey(leaf.elems, key)
	if idx >= len(leaf.elems) {
		if leaf.next == noBlock {
			return &Iterator[E, K]{t: t, id: noBlock, valid: false}, exact
		}
		return &Iterator[E, K]{t: t, id: leaf.next, pos: 0, valid: true}, exact
	}
	return &Iterator[E, K]{t: t, id: leafID, pos: idx, valid: true}, exact
}

// UpperBound returns an iterator at the first element > key. exact
// OR-accumulates across the whole descent (spec.md §4.8): it is true if
// any separator or leaf element compared equal to key, even though that
// element itself isn't what the iterator points at.
func (t *Tree[E, K]) UpperBound(key K) (*Iterator[E, K], bool) {
	if t.empty() {
		return &Iterator[E, K]{t: t, id: noBlock, valid: false}, false
	}
	id := t.rootID
	exactAny := false
	for {
		blk := t.mat.Get(id)
		if blockTagOf(blk) == tagLeaf {
			leaf, err := t.decodeLeaf(id)
			if err != nil {
				return &Iterator[E, K]{t: t, id: noBlock, valid: false}, exactAny
			}
			pos, exact := t.upperBoundKey(leaf.elems, key)
			exactAny = exactAny || exact
			if pos >= len(leaf.elems) {
				if leaf.next == noBlock {
					return &Iterator[E, K]{t: t, id: noBlock, valid: false}, exactAny
				}
				return &Iterator[E, K]{t: t, id: leaf.next, pos: 0, valid: true}, exactAny
			}
			return &Iterator[E, K]{t: t, id: id, pos: pos, valid: true}, exactAny
		}
		inner, err := t.decodeInner(id)
		if err != nil {
			return &Iterator[E, K]{t: t, id: noBlock, valid: false}, exactAny
		}
		idx, exact := t.lowerBoundKey(inner.seps, key)
		exactAny = exactAny || exact
		id = inner.children[idx]
	}
}

// Valid reports whether the iterator currently references a live
// position.
func (it *Iterator[E, K]) Valid() bool { return it.valid }

// Elem safety-checks the referenced block (must still be a leaf, pos in
// range) and returns its element, self-invalidating on any mismatch
// instead of raising an exceptional channel (spec.md §4.8, §7).
func (it *Iterator[E, K]) Elem() (E, bool) {
	var zero E
	if !it.valid {
		return zero, false
	}
	blk := it.t.mat.Get(it.id)
	if blockTagOf(blk) != tagLeaf {
		it.valid = false
		return zero, false
	}
	leaf, err := it.t.decodeLeaf(it.id)
	if err != nil || it.pos < 0 || it.pos >= len(leaf.elems) {
		it.valid = false
		return zero, false
	}
	return leaf.elems[it.pos], true
}

// Next advances the iterator. Starting from invalid, it rewinds to
// First (spec.md §4.8's round-tripping rule).
func (it *Iterator[E, K]) Next() bool {
	if !it.valid {
		*it = *it.t.First()
		return it.valid
	}
	leaf, err := it.t.decodeLeaf(it.id)
	if err != nil {
		it.valid = false
		return false
	}
	if it.pos+1 < len(leaf.elems) {
		it.pos++
		return true
	}
	if leaf.next == noBlock {
		it.valid = false
		return false
	}
	it.id, it.pos, it.valid = leaf.next, 0, true
	return true
}

// Prev steps backward. Starting from invalid, it rewinds to Last.
func (it *Iterator[E, K]) Prev() bool {
	if !it.valid {
		*it = *it.t.Last()
		return it.valid
	}
	if it.pos > 0 {
		it.pos--
		return true
	}
	leaf, err := it.t.decodeLeaf(it.id)
	if err != nil {
		it.valid = false
		return false
	}
	if leaf.prev == noBlock {
		it.valid = false
		return false
	}
	prevLeaf, err := it.t.decodeLeaf(leaf.prev)
	if err != nil {
		it.valid = false
		return false
	}
	it.id, it.pos, it.valid = leaf.prev, len(prevLeaf.elems)-1, true
	return true
}

// AreEqual compares two iterators over the same tree: both invalid
// compares equal; otherwise they must reference the same block and
// position.
func AreEqual[E any, K any](a, b *Iterator[E, K]) bool {
	if !a.valid && !b.valid {
		return true
	}
	if a.valid != b.valid {
		return false
	}
	return a.id == b.id && a.pos == b.pos
}
