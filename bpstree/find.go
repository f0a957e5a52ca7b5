package bpstree

// Find performs a point lookup by key, O(log N).
func (t *Tree[E, K]) Find(key K) (E, bool) {
	var zero E
	if t.empty() {
		return zero, false
	}
	path, err := t.collectPathForKey(key)
	if err != nil {
		return zero, false
	}
	leaf, err := t.decodeLeaf(path[len(path)-1].id)
	if err != nil {
		return zero, false
	}
	idx, exact := t.lowerBoundKey(leaf.elems, key)
	if !exact {
		return zero, false
	}
	return leaf.elems[idx], true
}

// Random returns an element sampled with probability proportional to
// leaf fill (spec.md §4.9): descend from the root taking u mod
// node.size at each level, dividing u by node.size between hops.
func (t *Tree[E, K]) Random(u uint64) (E, bool) {
	var zero E
	if t.empty() {
		return zero, false
	}
	id := t.rootID
	for {
		blk := t.mat.Get(id)
		if blockTagOf(blk) == tagLeaf {
			leaf, err := t.decodeLeaf(id)
			if err != nil || len(leaf.elems) == 0 {
				return zero, false
			}
			return leaf.elems[int(u%uint64(len(leaf.elems)))], true
		}
		inner, err := t.decodeInner(id)
		if err != nil || len(inner.children) == 0 {
			return zero, false
		}
		n := uint64(len(inner.children))
		idx := u % n
		u /= n
		id = inner.children[idx]
	}
}
