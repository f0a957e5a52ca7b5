package bpstree

import "bpstree/matras"

// pathElem is one level of a root-to-leaf descent: which block, whether
// it's the leaf level, and which child slot of its own parent it
// occupies (spec.md §4.4). slotInParent is -1 for the root.
type pathElem[E any] struct {
	id           matras.BID
	isLeaf       bool
	slotInParent int
}

// collectPathForElem descends from the root choosing, at each inner
// level, the child whose subtree may contain probe.
func (t *Tree[E, K]) collectPathForElem(probe E) ([]pathElem[E], error) {
	var path []pathElem[E]
	id := t.rootID
	slot := -1
	for {
		blk := t.mat.Get(id)
		if blockTagOf(blk) == tagLeaf {
			path = append(path, pathElem[E]{id: id, isLeaf: true, slotInParent: slot})
			return path, nil
		}
		inner, err := t.decodeInner(id)
		if err != nil {
			return nil, err
		}
		path = append(path, pathElem[E]{id: id, isLeaf: false, slotInParent: slot})
		idx, _ := t.lowerBoundElems(inner.seps, probe)
		slot = idx
		id = inner.children[idx]
	}
}

// collectPathForKey is the key-driven counterpart used by Find and the
// iterator's bound constructors.
func (t *Tree[E, K]) collectPathForKey(key K) ([]pathElem[E], error) {
	var path []pathElem[E]
	id := t.rootID
	slot := -1
	for {
		blk := t.mat.Get(id)
		if blockTagOf(blk) == tagLeaf {
			path = append(path, pathElem[E]{id: id, isLeaf: true, slotInParent: slot})
			return path, nil
		}
		inner, err := t.decodeInner(id)
		if err != nil {
			return nil, err
		}
		path = append(path, pathElem[E]{id: id, isLeaf: false, slotInParent: slot})
		idx, _ := t.lowerBoundKey(inner.seps, key)
		slot = idx
		id = inner.children[idx]
	}
}

// updateAncestorMax rewrites the "max-element copy" (spec.md §4.4, §9)
// for the subtree rooted at child slot childSlot of ancestors[0], after
// that subtree's maximum became newMax. ancestors must be ordered
// immediate-parent-first, root-last (i.e. path[:level] reversed). Only
// the nearest ancestor where childSlot isn't the rightmost slot needs a
// write; if the subtree sits on the rightmost spine all the way to the
// root, the tree-wide max is rewritten instead (invariant 5).
func (t *Tree[E, K]) updateAncestorMax(ancestors []pathElem[E], childSlot int, newMax E) error {
	slot := childSlot
	for _, anc := range ancestors {
		inner, err := t.decodeInner(anc.id)
		if err != nil {
			return err
		}
		if slot < len(inner.seps) {
			inner.seps[slot] = newMax
			return t.encodeInner(inner)
		}
		slot = anc.slotInParent
	}
	t.maxElem = newMax
	t.hasMax = true
	return nil
}

// reversedAncestors returns path[:level] in immediate-parent-first order,
// ready to hand to updateAncestorMax.
func reversedAncestors[E any](path []pathElem[E], level int) []pathElem[E] {
	out := make([]pathElem[E], level)
	for i := 0; i < level; i++ {
		out[i] = path[level-1-i]
	}
	return out
}

// refreshMaxAt rewrites the max-element copy for a child occupying
// childSlot under the node chain ancestorPath (root-first, NOT including
// the child's own level), after that child's last element became
// lastElem; nothing is written when empty is true. Used after every leaf/inner content change, for both the node
// that was on the original descent path and for siblings pulled in by a
// borrow or split that weren't.
func (t *Tree[E, K]) refreshMaxAt(ancestorPath []pathElem[E], childSlot int, lastElem E, empty bool) error {
	if empty {
		return nil
	}
	if childSlot == -1 {
		t.maxElem = lastElem
		t.hasMax = true
		return nil
	}
	return t.updateAncestorMax(reversedAncestors(ancestorPath, len(ancestorPath)), childSlot, lastElem)
}
