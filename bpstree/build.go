package bpstree

import (
	"fmt"

	"bpstree/matras"
)

// Build bulk-loads a tree from an already-sorted slice (spec.md §4.5).
// It must only be called on an empty tree. On allocator failure the
// matras is reset and the tree is left empty, matching Insert's
// all-or-nothing contract.
func (t *Tree[E, K]) Build(sorted []E) (bool, error) {
	if !t.empty() {
		return false, fmt.Errorf("Build: tree is not empty")
	}
	n := len(sorted)
	if n == 0 {
		return true, nil
	}
	lmax := t.lmax()
	leafCount := (n + lmax - 1) / lmax

	leafIDs := make([]matras.BID, 0, leafCount)
	leafMaxes := make([]E, 0, leafCount)
	remaining, remainingLeaves, pos := n, leafCount, 0
	prevID := noBlock

	for remainingLeaves > 0 {
		cnt := (remaining + remainingLeaves - 1) / remainingLeaves
		id, _, err := t.mat.Alloc()
		if err != nil {
			t.mat.Reset()
			return false, fmt.Errorf("Build: %w", err)
		}
		leaf := &leafNode[E]{id: id, prev: prevID, next: noBlock, elems: append([]E{}, sorted[pos:pos+cnt]...)}
		if err := t.encodeLeaf(leaf); err != nil {
			t.mat.Reset()
			return false, fmt.Errorf("Build: %w", err)
		}
		if prevID != noBlock {
			prevLeaf, err := t.decodeLeaf(prevID)
			if err != nil {
				t.mat.Reset()
				return false, fmt.Errorf("Build: %w", err)
			}
			prevLeaf.next = id
			if err := t.encodeLeaf(prevLeaf); err != nil {
				t.mat.Reset()
				return false, fmt.Errorf("Build: %w", err)
			}
		}
		leafIDs = append(leafIDs, id)
		leafMaxes = append(leafMaxes, leaf.elems[len(leaf.elems)-1])
		prevID = id
		pos += cnt
		remaining -= cnt
		remainingLeaves--
	}

	t.leafCount = len(leafIDs)
	t.firstLeaf, t.lastLeaf = leafIDs[0], leafIDs[len(leafIDs)-1]
	t.size = n
	t.maxElem, t.hasMax = sorted[n-1], true

	if len(leafIDs) == 1 {
		t.rootID = leafIDs[0]
		t.depth = 1
		return true, nil
	}

	currentIDs, currentMaxes := leafIDs, leafMaxes
	imax := t.imax()
	depth := 1
	for len(currentIDs) > 1 {
		groupCount := (len(currentIDs) + imax - 1) / imax
		nextIDs := make([]matras.BID, 0, groupCount)
		nextMaxes := make([]E, 0, groupCount)

		remainingNodes, remainingGroups, idx := len(currentIDs), groupCount, 0
		for remainingGroups > 0 {
			groupSize := (remainingNodes + remainingGroups - 1) / remainingGroups
			children := append([]matras.BID{}, currentIDs[idx:idx+groupSize]...)
			seps := append([]E{}, currentMaxes[idx:idx+groupSize-1]...)

			id, _, err := t.mat.Alloc()
			if err != nil {
				t.mat.Reset()
				return false, fmt.Errorf("Build: %w", err)
			}
			inner := &innerNode[E]{id: id, seps: seps, children: children}
			if err := t.encodeInner(inner); err != nil {
				t.mat.Reset()
				return false, fmt.Errorf("Build: %w", err)
			}
			nextIDs = append(nextIDs, id)
			nextMaxes = append(nextMaxes, currentMaxes[idx+groupSize-1])
			t.innerCount++

			idx += groupSize
			remainingNodes -= groupSize
			remainingGroups--
		}

		currentIDs, currentMaxes = nextIDs, nextMaxes
		depth++
	}

	t.rootID = currentIDs[0]
	t.depth = depth
	return true, nil
}
