package bpstree

import (
	"fmt"

	"bpstree/matras"
)

// Insert places e in the tree. If an element comparing equal already
// exists, it is overwritten and returned via (replaced, true); size is
// unchanged in that case. Otherwise replaced is the zero value and size
// grows by one.
//
// The only fallible step is the garbage-list reservation a split may
// need, and it always runs before any mutation (spec.md §5, §7): a
// failed Insert leaves the tree bit-for-bit as it was.
func (t *Tree[E, K]) Insert(e E) (replaced E, hadReplaced bool, err error) {
	var zero E
	if t.empty() {
		if err := t.reserveGarbage(1); err != nil {
			return zero, false, fmt.Errorf("Insert: %w", err)
		}
		id := t.allocBlock()
		root := &leafNode[E]{id: id, prev: matras.NoBlock, next: matras.NoBlock, elems: []E{e}}
		if err := t.encodeLeaf(root); err != nil {
			return zero, false, fmt.Errorf("Insert: %w", err)
		}
		t.rootID = id
		t.firstLeaf, t.lastLeaf = id, id
		t.depth = 1
		t.size = 1
		t.leafCount = 1
		t.maxElem, t.hasMax = e, true
		return zero, false, nil
	}

	path, err := t.collectPathForElem(e)
	if err != nil {
		return zero, false, fmt.Errorf("Insert: %w", err)
	}
	leafElem := path[len(path)-1]
	leaf, err := t.decodeLeaf(leafElem.id)
	if err != nil {
		return zero, false, fmt.Errorf("Insert: %w", err)
	}

	idx, exact := t.lowerBoundElems(leaf.elems, e)
	if exact {
		old := leaf.elems[idx]
		leaf.elems[idx] = e
		if err := t.encodeLeaf(leaf); err != nil {
			return zero, false, fmt.Errorf("Insert: %w", err)
		}
		if idx == len(leaf.elems)-1 {
			if err := t.refreshMaxAt(path[:len(path)-1], leafElem.slotInParent, e, false); err != nil {
				return zero, false, fmt.Errorf("Insert: %w", err)
			}
		}
		return old, true, nil
	}

	if err := t.insertLeaf(path, idx, e); err != nil {
		return zero, false, fmt.Errorf("Insert: %w", err)
	}
	return zero, false, nil
}

// insertLeaf implements cases C1/C2/C4 of spec.md §4.6.1 (true C3 — the
// two-hop borrow before ever reaching C4 — isn't implemented; see
// DESIGN.md). idx is the sorted insertion position for e within the
// target leaf, already computed by the caller.
func (t *Tree[E, K]) insertLeaf(path []pathElem[E], idx int, e E) error {
	leafElem := path[len(path)-1]
	leaf, err := t.decodeLeaf(leafElem.id)
	if err != nil {
		return err
	}
	lmax := t.lmax()

	// C1 — fits.
	if len(leaf.elems) < lmax {
		leaf.elems = insertAt(leaf.elems, idx, e)
		if err := t.encodeLeaf(leaf); err != nil {
			return err
		}
		t.size++
		return t.refreshMaxAt(path[:len(path)-1], leafElem.slotInParent, leaf.elems[len(leaf.elems)-1], false)
	}

	if len(path) == 1 {
		// Leaf is the root: no siblings to borrow from or spill into.
		return t.splitLeaf(path, leaf, idx, e)
	}

	parentElem := path[len(path)-2]
	parent, err := t.decodeInner(parentElem.id)
	if err != nil {
		return err
	}
	slot := leafElem.slotInParent

	var left, right *leafNode[E]
	leftFree, rightFree := -1, -1
	if slot > 0 {
		left, err = t.decodeLeaf(parent.children[slot-1])
		if err != nil {
			return err
		}
		leftFree = lmax - len(left.elems)
	}
	if slot < len(parent.children)-1 {
		right, err = t.decodeLeaf(parent.children[slot+1])
		if err != nil {
			return err
		}
		rightFree = lmax - len(right.elems)
	}

	// C2 — borrow into whichever direct sibling has more room.
	if leftFree > 0 || rightFree > 0 {
		combined := make([]E, 0, len(leaf.elems)+1)
		combined = append(combined, leaf.elems[:idx]...)
		combined = append(combined, e)
		combined = append(combined, leaf.elems[idx:]...)

		ancestors := path[:len(path)-1]

		if rightFree >= leftFree {
			k := 1 + rightFree/2
			if k > len(combined) {
				k = len(combined)
			}
			moved := combined[len(combined)-k:]
			leaf.elems = append([]E{}, combined[:len(combined)-k]...)
			right.elems = append(append([]E{}, moved...), right.elems...)
			if err := t.encodeLeaf(leaf); err != nil {
				return err
			}
			if err := t.encodeLeaf(right); err != nil {
				return err
			}
			t.size++
			return t.refreshMaxAt(ancestors, slot, leaf.elems[len(leaf.elems)-1], len(leaf.elems) == 0)
		}

		k := 1 + leftFree/2
		if k > len(combined) {
			k = len(combined)
		}
		moved := combined[:k]
		left.elems = append(left.elems, moved...)
		leaf.elems = append([]E{}, combined[k:]...)
		if err := t.encodeLeaf(left); err != nil {
			return err
		}
		if err := t.encodeLeaf(leaf); err != nil {
			return err
		}
		t.size++
		if err := t.refreshMaxAt(ancestors, slot-1, left.elems[len(left.elems)-1], false); err != nil {
			return err
		}
		return t.refreshMaxAt(ancestors, slot, leaf.elems[len(leaf.elems)-1], len(leaf.elems) == 0)
	}

	// C4 — both direct siblings are full (or absent): split.
	return t.splitLeaf(path, leaf, idx, e)
}

// splitLeaf implements C4 (spec.md §4.6.1): collect whichever direct
// siblings of the overflowing leaf exist under its parent, plus — when
// only one direct sibling is present — that sibling's own further
// neighbor, and hand the whole participant set to spliceLeaves for a
// balanced redistribution (salad/bps_tree.h bps_tree_process_insert_leaf).
// A plain two-way split between L and a new leaf can't satisfy invariant
// 1 once a direct sibling is already full: for this repo's default
// config (lmax()=62), the lmax+1 elements available split 31/32, both
// below leafMin(62)=42.
func (t *Tree[E, K]) splitLeaf(path []pathElem[E], leaf *leafNode[E], idx int, e E) error {
	combined := make([]E, 0, len(leaf.elems)+1)
	combined = append(combined, leaf.elems[:idx]...)
	combined = append(combined, e)
	combined = append(combined, leaf.elems[idx:]...)

	if err := t.reserveGarbage(len(path) + 1); err != nil {
		return err
	}
	newLeaf := &leafNode[E]{id: t.allocBlock()}

	if len(path) == 1 {
		// Root leaf: no parent, so no siblings can participate. The
		// resulting pair is the sole exception spec.md §3 invariant 1
		// can't avoid — splitting lmax+1 elements two ways can't reach
		// leafMin for either half (DESIGN.md).
		return t.spliceLeaves(path, nil, leaf, newLeaf, nil, 0, combined)
	}

	parentElem := path[len(path)-2]
	parent, err := t.decodeInner(parentElem.id)
	if err != nil {
		return err
	}
	slot := path[len(path)-1].slotInParent

	var left, right *leafNode[E]
	if slot > 0 {
		if left, err = t.decodeLeaf(parent.children[slot-1]); err != nil {
			return err
		}
	}
	if slot < len(parent.children)-1 {
		if right, err = t.decodeLeaf(parent.children[slot+1]); err != nil {
			return err
		}
	}

	var leftLeft, rightRight *leafNode[E]
	if left != nil && right == nil && slot >= 2 {
		if leftLeft, err = t.decodeLeaf(parent.children[slot-2]); err != nil {
			return err
		}
	}
	if right != nil && left == nil && slot+2 < len(parent.children) {
		if rightRight, err = t.decodeLeaf(parent.children[slot+2]); err != nil {
			return err
		}
	}

	leftSide := make([]*leafNode[E], 0, 2)
	if leftLeft != nil {
		leftSide = append(leftSide, leftLeft)
	}
	if left != nil {
		leftSide = append(leftSide, left)
	}
	rightSide := make([]*leafNode[E], 0, 2)
	if right != nil {
		rightSide = append(rightSide, right)
	}
	if rightRight != nil {
		rightSide = append(rightSide, rightRight)
	}

	return t.spliceLeaves(path, leftSide, leaf, newLeaf, rightSide, slot, combined)
}

// spliceLeaves redistributes pool = concat(leftSide) ++ combined ++
// concat(rightSide) as evenly as possible across every participating
// leaf (leftSide, leaf, newLeaf, rightSide, in that order), relinks the
// doubly linked leaf chain around the new block, and propagates the
// resulting separators and tree max upward. leftSide/rightSide are
// ordered nearest-neighbor-last / nearest-neighbor-first respectively,
// i.e. the element adjacent to leaf comes last in leftSide and first in
// rightSide.
func (t *Tree[E, K]) spliceLeaves(path []pathElem[E], leftSide []*leafNode[E], leaf, newLeaf *leafNode[E], rightSide []*leafNode[E], slot int, combined []E) error {
	parts := make([]*leafNode[E], 0, len(leftSide)+2+len(rightSide))
	pool := make([]E, 0, len(combined)+64)
	for _, s := range leftSide {
		pool = append(pool, s.elems...)
	}
	parts = append(parts, leftSide...)
	parts = append(parts, leaf, newLeaf)
	pool = append(pool, combined...)
	for _, s := range rightSide {
		pool = append(pool, s.elems...)
	}
	parts = append(parts, rightSide...)

	counts := splitCounts(len(pool), len(parts))
	off := 0
	for i, p := range parts {
		p.elems = append([]E{}, pool[off:off+counts[i]]...)
		off += counts[i]
	}

	oldNext := leaf.next
	leaf.next = newLeaf.id
	newLeaf.prev = leaf.id
	if len(rightSide) > 0 {
		right := rightSide[0]
		newLeaf.next = right.id
		right.prev = newLeaf.id
	} else {
		newLeaf.next = oldNext
		if oldNext != noBlock {
			nextLeaf, err := t.decodeLeaf(oldNext)
			if err != nil {
				return err
			}
			nextLeaf.prev = newLeaf.id
			if err := t.encodeLeaf(nextLeaf); err != nil {
				return err
			}
		} else {
			t.lastLeaf = newLeaf.id
		}
	}

	for _, p := range parts {
		if err := t.encodeLeaf(p); err != nil {
			return err
		}
	}
	t.leafCount++
	t.size++

	if len(path) == 1 {
		t.maxElem, t.hasMax = newLeaf.elems[len(newLeaf.elems)-1], true
		return t.createNewRoot(leaf.id, leaf.elems[len(leaf.elems)-1], newLeaf.id)
	}

	ancestors := path[:len(path)-1]
	for i, s := range leftSide {
		sSlot := slot - len(leftSide) + i
		if err := t.refreshMaxAt(ancestors, sSlot, s.elems[len(s.elems)-1], false); err != nil {
			return err
		}
	}
	for i, s := range rightSide {
		sSlot := slot + 1 + i
		if err := t.refreshMaxAt(ancestors, sSlot, s.elems[len(s.elems)-1], false); err != nil {
			return err
		}
	}
	if len(rightSide) == 0 {
		if err := t.refreshMaxAt(ancestors, slot+1, newLeaf.elems[len(newLeaf.elems)-1], false); err != nil {
			return err
		}
	}
	if len(rightSide) > 0 {
		// leaf's current separator shifts to newLeaf once insertInner
		// places newLeaf right after leaf, so it must hold newLeaf's max.
		if err := t.refreshMaxAt(ancestors, slot, newLeaf.elems[len(newLeaf.elems)-1], false); err != nil {
			return err
		}
	}
	return t.insertInner(ancestors, leaf.id, leaf.elems[len(leaf.elems)-1], newLeaf.id)
}

// insertInner inserts a (sepKey, rightID) pair right after leftID in the
// node at the tail of parentPath, splitting it through splitInner and
// recursing upward on overflow. Unlike insertLeaf it has no borrow step:
// an overflowing inner node is split at once, without first shifting
// children into a sibling that has room.
func (t *Tree[E, K]) insertInner(parentPath []pathElem[E], leftID matras.BID, sepKey E, rightID matras.BID) error {
	parentElem := parentPath[len(parentPath)-1]
	parent, err := t.decodeInner(parentElem.id)
	if err != nil {
		return err
	}

	idx := 0
	for idx < len(parent.children) && parent.children[idx] != leftID {
		idx++
	}

	parent.children = insertAt(parent.children, idx+1, rightID)
	parent.seps = insertAt(parent.seps, idx, sepKey)
	if err := t.encodeInner(parent); err != nil {
		return err
	}

	if len(parent.children) <= t.imax() {
		return nil
	}
	return t.splitInner(parentPath, parent)
}

// splitInner is splitLeaf's counterpart one level up: it collects
// whichever direct sibling inner nodes of the overflowing node exist,
// plus a second-hop neighbor when only one direct sibling is present,
// and redistributes through spliceInners.
func (t *Tree[E, K]) splitInner(path []pathElem[E], node *innerNode[E]) error {
	if len(path) == 1 {
		return t.spliceInners(path, nil, node, nil, 0)
	}

	parentElem := path[len(path)-2]
	parent, err := t.decodeInner(parentElem.id)
	if err != nil {
		return err
	}
	slot := path[len(path)-1].slotInParent

	var left, right *innerNode[E]
	if slot > 0 {
		if left, err = t.decodeInner(parent.children[slot-1]); err != nil {
			return err
		}
	}
	if slot < len(parent.children)-1 {
		if right, err = t.decodeInner(parent.children[slot+1]); err != nil {
			return err
		}
	}

	var leftLeft, rightRight *innerNode[E]
	if left != nil && right == nil && slot >= 2 {
		if leftLeft, err = t.decodeInner(parent.children[slot-2]); err != nil {
			return err
		}
	}
	if right != nil && left == nil && slot+2 < len(parent.children) {
		if rightRight, err = t.decodeInner(parent.children[slot+2]); err != nil {
			return err
		}
	}

	leftSide := make([]*innerNode[E], 0, 2)
	if leftLeft != nil {
		leftSide = append(leftSide, leftLeft)
	}
	if left != nil {
		leftSide = append(leftSide, left)
	}
	rightSide := make([]*innerNode[E], 0, 2)
	if right != nil {
		rightSide = append(rightSide, right)
	}
	if rightRight != nil {
		rightSide = append(rightSide, rightRight)
	}

	return t.spliceInners(path, leftSide, node, rightSide, slot)
}

// spliceInners is spliceLeaves' counterpart for inner nodes: node has
// already overflowed (imax+1 children, from insertInner's insertAt), and
// its children/separators are redistributed across leftSide, node, a new
// sibling, and rightSide. Each participant's own separator budget
// (len(children)-1) is filled from the pool; its "external" max — the
// max of its own last child, which a block never stores about itself —
// is read by descending that child's rightmost spine.
func (t *Tree[E, K]) spliceInners(path []pathElem[E], leftSide []*innerNode[E], node *innerNode[E], rightSide []*innerNode[E], slot int) error {
	newInner := &innerNode[E]{id: t.allocBlock()}

	parts := make([]*innerNode[E], 0, len(leftSide)+2+len(rightSide))
	childPool := make([]matras.BID, 0, 64)
	maxPool := make([]E, 0, 64)
	var err error
	for _, s := range leftSide {
		if childPool, maxPool, err = t.appendInnerPool(childPool, maxPool, s); err != nil {
			return err
		}
	}
	parts = append(parts, leftSide...)
	if childPool, maxPool, err = t.appendInnerPool(childPool, maxPool, node); err != nil {
		return err
	}
	parts = append(parts, node, newInner)
	for _, s := range rightSide {
		if childPool, maxPool, err = t.appendInnerPool(childPool, maxPool, s); err != nil {
			return err
		}
	}
	parts = append(parts, rightSide...)

	counts := splitCounts(len(childPool), len(parts))
	off := 0
	for i, p := range parts {
		n := counts[i]
		p.children = append([]matras.BID{}, childPool[off:off+n]...)
		p.seps = append([]E{}, maxPool[off:off+n-1]...)
		off += n
	}

	for _, p := range parts {
		if err := t.encodeInner(p); err != nil {
			return err
		}
	}
	t.innerCount++

	promoteKey, err := t.rightmostMax(node.children[len(node.children)-1])
	if err != nil {
		return err
	}

	if len(path) == 1 {
		return t.createNewRoot(node.id, promoteKey, newInner.id)
	}

	ancestors := path[:len(path)-1]
	for i, s := range leftSide {
		sSlot := slot - len(leftSide) + i
		last, err := t.rightmostMax(s.children[len(s.children)-1])
		if err != nil {
			return err
		}
		if err := t.refreshMaxAt(ancestors, sSlot, last, false); err != nil {
			return err
		}
	}
	for i, s := range rightSide {
		sSlot := slot + 1 + i
		last, err := t.rightmostMax(s.children[len(s.children)-1])
		if err != nil {
			return err
		}
		if err := t.refreshMaxAt(ancestors, sSlot, last, false); err != nil {
			return err
		}
	}
	if len(rightSide) == 0 {
		last, err := t.rightmostMax(newInner.children[len(newInner.children)-1])
		if err != nil {
			return err
		}
		if err := t.refreshMaxAt(ancestors, slot+1, last, false); err != nil {
			return err
		}
	}
	if len(rightSide) > 0 {
		// node's current separator shifts to newInner once insertInner
		// places newInner right after node, so it must hold newInner's max.
		last, err := t.rightmostMax(newInner.children[len(newInner.children)-1])
		if err != nil {
			return err
		}
		if err := t.refreshMaxAt(ancestors, slot, last, false); err != nil {
			return err
		}
	}
	return t.insertInner(ancestors, node.id, promoteKey, newInner.id)
}

// appendInnerPool appends n's children and per-child maxes to the
// running pool: n.seps already covers all but n's own last child, whose
// max isn't stored anywhere inside n itself.
func (t *Tree[E, K]) appendInnerPool(childPool []matras.BID, maxPool []E, n *innerNode[E]) ([]matras.BID, []E, error) {
	childPool = append(childPool, n.children...)
	maxPool = append(maxPool, n.seps...)
	last, err := t.rightmostMax(n.children[len(n.children)-1])
	if err != nil {
		return nil, nil, err
	}
	maxPool = append(maxPool, last)
	return childPool, maxPool, nil
}

// rightmostMax descends id's rightmost spine to find the maximum
// element of its subtree, for participants whose current max isn't
// already cached in a separator array.
func (t *Tree[E, K]) rightmostMax(id matras.BID) (E, error) {
	var zero E
	for {
		blk := t.mat.Get(id)
		switch blockTagOf(blk) {
		case tagLeaf:
			leaf, err := t.decodeLeaf(id)
			if err != nil {
				return zero, err
			}
			return leaf.elems[len(leaf.elems)-1], nil
		case tagInner:
			inner, err := t.decodeInner(id)
			if err != nil {
				return zero, err
			}
			id = inner.children[len(inner.children)-1]
		default:
			return zero, fmt.Errorf("rightmostMax: block %d has unexpected tag %d", id, blk[0])
		}
	}
}

// splitCounts divides total pool items as evenly as possible across n
// participants, front-loading the one-element remainder.
func splitCounts(total, n int) []int {
	counts := make([]int, n)
	base, rem := total/n, total%n
	for i := range counts {
		counts[i] = base
		if i < rem {
			counts[i]++
		}
	}
	return counts
}

// createNewRoot allocates a new inner root with exactly two children,
// growing the tree's depth by one (spec.md §4.6.1 "Root split").
func (t *Tree[E, K]) createNewRoot(leftID matras.BID, sepKey E, rightID matras.BID) error {
	id := t.allocBlock()
	root := &innerNode[E]{id: id, seps: []E{sepKey}, children: []matras.BID{leftID, rightID}}
	if err := t.encodeInner(root); err != nil {
		return err
	}
	t.rootID = id
	t.innerCount++
	t.depth++
	return nil
}
