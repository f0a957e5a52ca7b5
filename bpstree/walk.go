package bpstree

import "bpstree/matras"

// BlockInfo summarizes one block for debug/inspection tooling
// (cmd/bpsinspect), grounded on bplustree/inspect.go's BFS dump — here
// returned as data instead of printed directly, so the caller decides
// formatting/colorization.
type BlockInfo struct {
	ID          BID
	Depth       int
	Kind        string // "leaf" or "inner"
	Size        int    // element count (leaf) or child count (inner)
	First, Last string // formatted min/max element, leaf only
	Next, Prev  BID
}

// WalkBFS returns every live block reachable from the root, in
// breadth-first order. format renders a single element for First/Last;
// callers with no formatting preference can pass fmt.Sprint.
func (t *Tree[E, K]) WalkBFS(format func(E) string) []BlockInfo {
	var out []BlockInfo
	if t.empty() {
		return out
	}
	type qitem struct {
		id    matras.BID
		depth int
	}
	queue := []qitem{{t.rootID, 0}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		blk := t.mat.Get(item.id)
		switch blockTagOf(blk) {
		case tagLeaf:
			leaf, err := t.decodeLeaf(item.id)
			if err != nil {
				continue
			}
			info := BlockInfo{ID: item.id, Depth: item.depth, Kind: "leaf", Size: len(leaf.elems), Next: leaf.next, Prev: leaf.prev}
			if len(leaf.elems) > 0 {
				info.First = format(leaf.elems[0])
				info.Last = format(leaf.elems[len(leaf.elems)-1])
			}
			out = append(out, info)
		case tagInner:
			inner, err := t.decodeInner(item.id)
			if err != nil {
				continue
			}
			out = append(out, BlockInfo{ID: item.id, Depth: item.depth, Kind: "inner", Size: len(inner.children)})
			for _, c := range inner.children {
				queue = append(queue, qitem{c, item.depth + 1})
			}
		}
	}
	return out
}
