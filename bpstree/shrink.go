package bpstree

import "bpstree/matras"

// Shrink reclaims wholly-garbage extents back to the host's free
// callback (spec.md §9, "shrink" open question — the original leaves
// reclamation sticky and only suggests exposing it). It returns the
// number of blocks reclaimed.
//
// Shrink is the caller's explicit opt-in: any iterator still holding a
// BID inside a reclaimed extent becomes unsafe to dereference. Callers
// that use iterators across a Shrink call must re-derive their position
// via LowerBound/UpperBound afterward.
func (t *Tree[E, K]) Shrink() int {
	order := t.garbageOrder()
	if len(order) == 0 {
		return 0
	}
	isGarbage := make(map[matras.BID]bool, len(order))
	for _, id := range order {
		isGarbage[id] = true
	}

	reclaimed := t.mat.ReleaseIdleExtents(func(bid matras.BID) bool { return isGarbage[bid] })
	if len(reclaimed) == 0 {
		return 0
	}
	dead := make(map[matras.BID]bool, len(reclaimed))
	for _, id := range reclaimed {
		dead[id] = true
	}

	t.garbage = newGarbageList()
	for i := len(order) - 1; i >= 0; i-- {
		if dead[order[i]] {
			continue
		}
		t.pushGarbage(order[i])
	}
	return len(reclaimed)
}

// garbageOrder returns the garbage list's BIDs head-to-tail.
func (t *Tree[E, K]) garbageOrder() []matras.BID {
	var ids []matras.BID
	id := t.garbage.head
	for id != matras.NoBlock {
		ids = append(ids, id)
		blk := t.mat.Get(id)
		id = decodeGarbageNext(blk)
	}
	return ids
}
