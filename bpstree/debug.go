package bpstree

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"bpstree/matras"
)

// Bitmask returned by DebugCheck, one bit per invariant in spec.md §3.
// SPEC_FULL.md fixes this layout (the original left it unspecified
// beyond "non-zero indicates a broken invariant").
const (
	CheckLeafFill       uint = 1 << iota // invariant 1
	CheckInnerFill                       // invariant 2
	CheckAscending                       // invariant 3
	CheckSeparatorMax                    // invariant 4
	CheckTreeMax                         // invariant 5
	CheckLeafChain                       // invariant 6
	CheckDepth                           // invariant 7
	CheckGarbageOverlap                  // invariant 8
)

// DebugCheck walks the whole tree and returns a bitmask of violated
// invariants, or 0 if every invariant in spec.md §3 holds. It never
// mutates the tree and is safe to call between any two API calls.
func (t *Tree[E, K]) DebugCheck() uint {
	bits, _ := t.debugCheck()
	return bits
}

// DebugReport is like DebugCheck but also renders a human-readable dump
// of whichever blocks tripped a check, for test failure messages.
func (t *Tree[E, K]) DebugReport() (uint, string) {
	return t.debugCheck()
}

func (t *Tree[E, K]) debugCheck() (uint, string) {
	var bits uint
	var report string
	fail := func(bit uint, format string, args ...any) {
		bits |= bit
		report += fmt.Sprintf(format, args...) + "\n"
	}

	if t.empty() {
		if t.firstLeaf != matras.NoBlock || t.lastLeaf != matras.NoBlock {
			fail(CheckLeafChain, "empty tree has dangling firstLeaf=%v/lastLeaf=%v", t.firstLeaf, t.lastLeaf)
		}
		return bits, report
	}

	lmax, imax := t.lmax(), t.imax()
	visitedGarbage := make(map[matras.BID]bool)
	for _, id := range t.garbageOrder() {
		visitedGarbage[id] = true
	}

	var leafDepths []int
	var chainLeaves []matras.BID
	var maxAt func(id matras.BID, depth int, isRoot bool) (E, error)

	maxAt = func(id matras.BID, depth int, isRoot bool) (E, error) {
		var zero E
		if visitedGarbage[id] {
			fail(CheckGarbageOverlap, "block %d is both live (reached at depth %d) and in the garbage list", id, depth)
		}
		blk := t.mat.Get(id)
		switch blockTagOf(blk) {
		case tagLeaf:
			leaf, err := t.decodeLeaf(id)
			if err != nil {
				return zero, err
			}
			leafDepths = append(leafDepths, depth)
			chainLeaves = append(chainLeaves, id)

			n := len(leaf.elems)
			if !isRoot && (n < leafMin(lmax) || n > lmax) {
				fail(CheckLeafFill, "leaf %d has %d elements, outside [%d,%d]: %s", id, n, leafMin(lmax), lmax, spew.Sdump(leaf))
			}
			for i := 1; i < n; i++ {
				if t.cmp.CompareElems(leaf.elems[i-1], leaf.elems[i]) >= 0 {
					fail(CheckAscending, "leaf %d not strictly ascending at index %d: %s", id, i, spew.Sdump(leaf))
				}
			}
			if n == 0 {
				return zero, nil
			}
			return leaf.elems[n-1], nil

		case tagInner:
			inner, err := t.decodeInner(id)
			if err != nil {
				return zero, err
			}
			n := len(inner.children)
			if !isRoot && (n < innerMin(imax) || n > imax) {
				fail(CheckInnerFill, "inner %d has %d children, outside [%d,%d]: %s", id, n, innerMin(imax), imax, spew.Sdump(inner))
			}
			for i := 1; i < len(inner.seps); i++ {
				if t.cmp.CompareElems(inner.seps[i-1], inner.seps[i]) >= 0 {
					fail(CheckAscending, "inner %d separators not strictly ascending at index %d: %s", id, i, spew.Sdump(inner))
				}
			}
			var last E
			for i, child := range inner.children {
				childMax, err := maxAt(child, depth+1, false)
				if err != nil {
					return zero, err
				}
				if i < len(inner.seps) {
					if t.cmp.CompareElems(inner.seps[i], childMax) != 0 {
						fail(CheckSeparatorMax, "inner %d sep[%d] != max(child %d): %s", id, i, child, spew.Sdump(inner))
					}
				}
				last = childMax
			}
			return last, nil

		default:
			fail(CheckGarbageOverlap, "block %d reached while live but tagged garbage", id)
			return zero, nil
		}
	}

	rootMax, err := maxAt(t.rootID, 1, true)
	if err != nil {
		fail(CheckLeafChain, "traversal error: %v", err)
		return bits, report
	}

	if t.hasMax && t.cmp.CompareElems(t.maxElem, rootMax) != 0 {
		fail(CheckTreeMax, "tree max_elem does not match root's max: tracked=%v computed=%v", t.maxElem, rootMax)
	}

	for _, d := range leafDepths {
		if d != leafDepths[0] {
			fail(CheckDepth, "leaves at uneven depths: %d vs %d", leafDepths[0], d)
			break
		}
	}
	if leafDepths[0] != t.depth || t.depth > maxDepth {
		fail(CheckDepth, "recorded depth %d disagrees with traversal depth %d or exceeds %d", t.depth, leafDepths[0], maxDepth)
	}

	if len(chainLeaves) > 0 {
		if chainLeaves[0] != t.firstLeaf {
			fail(CheckLeafChain, "leftmost leaf %d != t.firstLeaf %d", chainLeaves[0], t.firstLeaf)
		}
		if chainLeaves[len(chainLeaves)-1] != t.lastLeaf {
			fail(CheckLeafChain, "rightmost leaf %d != t.lastLeaf %d", chainLeaves[len(chainLeaves)-1], t.lastLeaf)
		}
		prev := matras.NoBlock
		id := t.firstLeaf
		visited := 0
		for id != matras.NoBlock && visited <= len(chainLeaves)+1 {
			leaf, err := t.decodeLeaf(id)
			if err != nil {
				fail(CheckLeafChain, "leaf chain broken at %d: %v", id, err)
				break
			}
			if leaf.prev != prev {
				fail(CheckLeafChain, "leaf %d prev=%d, want %d", id, leaf.prev, prev)
			}
			prev = id
			id = leaf.next
			visited++
		}
		if visited != len(chainLeaves) {
			fail(CheckLeafChain, "leaf chain visited %d leaves, traversal found %d", visited, len(chainLeaves))
		}
	}

	return bits, report
}
