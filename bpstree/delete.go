package bpstree

import (
	"fmt"

	"bpstree/matras"
)

// Delete removes the element comparing equal to e, if any. It never
// allocates (spec.md §4.7, §7) so it cannot fail except for a corrupt
// tree, which is reported as an error rather than silently ignored.
func (t *Tree[E, K]) Delete(e E) (bool, error) {
	if t.empty() {
		return false, nil
	}
	path, err := t.collectPathForElem(e)
	if err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}
	leafElem := path[len(path)-1]
	leaf, err := t.decodeLeaf(leafElem.id)
	if err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}

	idx, exact := t.lowerBoundElems(leaf.elems, e)
	if !exact {
		return false, nil
	}

	removedLast := idx == len(leaf.elems)-1
	leaf.elems = removeAt(leaf.elems, idx)
	t.size--
	if err := t.encodeLeaf(leaf); err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}
	if removedLast {
		last, empty := splitLast(leaf.elems)
		if err := t.refreshMaxAt(path[:len(path)-1], leafElem.slotInParent, last, empty); err != nil {
			return false, fmt.Errorf("Delete: %w", err)
		}
	}

	// Root leaf: allowed to shrink below the minimum; collapses the
	// tree to empty only once it has nothing left (spec.md §4.7 step 7).
	if len(path) == 1 {
		if len(leaf.elems) == 0 {
			t.disposeBlock(leaf.id)
			t.rootID = matras.NoBlock
			t.firstLeaf, t.lastLeaf = matras.NoBlock, matras.NoBlock
			t.depth = 0
			t.leafCount = 0
			t.hasMax = false
		}
		return true, nil
	}

	lmax := t.lmax()
	if len(leaf.elems) >= leafMin(lmax) {
		return true, nil
	}
	if err := t.fixLeafUnderflow(path, leaf); err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}
	return true, nil
}

// fixLeafUnderflow implements spec.md §4.7 steps 4-6 for an
// underflowing leaf: borrow from whichever direct sibling has the
// larger surplus (step 4); if neither does, pull surplus from a
// same-parent second-hop sibling through the direct one first, then
// into leaf (step 5, "two-hop rebalance"); failing that, merge into one
// (preferring to pack left), but only when the merged size still fits
// in a block — otherwise leave leaf under-filled rather than fail, since
// Delete never returns an error for a structural reason (spec.md §7).
func (t *Tree[E, K]) fixLeafUnderflow(path []pathElem[E], leaf *leafNode[E]) error {
	leafElem := path[len(path)-1]
	parentElem := path[len(path)-2]
	parent, err := t.decodeInner(parentElem.id)
	if err != nil {
		return err
	}
	slot := leafElem.slotInParent
	lmax := t.lmax()
	lmin := leafMin(lmax)
	ancestors := path[:len(path)-1]

	var left, right *leafNode[E]
	leftSurplus, rightSurplus := -1, -1
	if slot > 0 {
		left, err = t.decodeLeaf(parent.children[slot-1])
		if err != nil {
			return err
		}
		leftSurplus = len(left.elems) - lmin
	}
	if slot < len(parent.children)-1 {
		right, err = t.decodeLeaf(parent.children[slot+1])
		if err != nil {
			return err
		}
		rightSurplus = len(right.elems) - lmin
	}

	if leftSurplus <= 0 && rightSurplus <= 0 {
		var leftFar, rightFar *leafNode[E]
		leftFarSurplus, rightFarSurplus := -1, -1
		if left != nil && slot >= 2 {
			leftFar, err = t.decodeLeaf(parent.children[slot-2])
			if err != nil {
				return err
			}
			leftFarSurplus = len(leftFar.elems) - lmin
		}
		if right != nil && slot+2 < len(parent.children) {
			rightFar, err = t.decodeLeaf(parent.children[slot+2])
			if err != nil {
				return err
			}
			rightFarSurplus = len(rightFar.elems) - lmin
		}

		if leftFarSurplus > 0 || rightFarSurplus > 0 {
			if leftFarSurplus >= rightFarSurplus {
				k := 1 + leftFarSurplus/2
				if k > len(leftFar.elems) {
					k = len(leftFar.elems)
				}
				moved := leftFar.elems[len(leftFar.elems)-k:]
				left.elems = append(append([]E{}, moved...), left.elems...)
				leftFar.elems = leftFar.elems[:len(leftFar.elems)-k]
				if err := t.encodeLeaf(leftFar); err != nil {
					return err
				}
				last, empty := splitLast(leftFar.elems)
				if err := t.refreshMaxAt(ancestors, slot-2, last, empty); err != nil {
					return err
				}
				if err := t.encodeLeaf(left); err != nil {
					return err
				}
				leftSurplus = len(left.elems) - lmin
			} else {
				k := 1 + rightFarSurplus/2
				if k > len(rightFar.elems) {
					k = len(rightFar.elems)
				}
				moved := rightFar.elems[:k]
				right.elems = append(right.elems, moved...)
				rightFar.elems = rightFar.elems[k:]
				if err := t.encodeLeaf(rightFar); err != nil {
					return err
				}
				last, empty := splitLast(rightFar.elems)
				if err := t.refreshMaxAt(ancestors, slot+2, last, empty); err != nil {
					return err
				}
				if err := t.encodeLeaf(right); err != nil {
					return err
				}
				if err := t.refreshMaxAt(ancestors, slot+1, right.elems[len(right.elems)-1], false); err != nil {
					return err
				}
				rightSurplus = len(right.elems) - lmin
			}
		}
	}

	if leftSurplus > 0 || rightSurplus > 0 {
		if leftSurplus >= rightSurplus {
			k := 1 + leftSurplus/2
			if k > len(left.elems) {
				k = len(left.elems)
			}
			moved := left.elems[len(left.elems)-k:]
			leaf.elems = append(append([]E{}, moved...), leaf.elems...)
			left.elems = left.elems[:len(left.elems)-k]
			if err := t.encodeLeaf(left); err != nil {
				return err
			}
			if err := t.encodeLeaf(leaf); err != nil {
				return err
			}
			last, empty := splitLast(left.elems)
			return t.refreshMaxAt(ancestors, slot-1, last, empty)
		}
		k := 1 + rightSurplus/2
		if k > len(right.elems) {
			k = len(right.elems)
		}
		moved := right.elems[:k]
		leaf.elems = append(leaf.elems, moved...)
		right.elems = right.elems[k:]
		if err := t.encodeLeaf(leaf); err != nil {
			return err
		}
		if err := t.encodeLeaf(right); err != nil {
			return err
		}
		last, empty := splitLast(leaf.elems)
		return t.refreshMaxAt(ancestors, slot, last, empty)
	}

	// Merge: drain leaf into left if present, else right into leaf — but
	// only when the combined size still fits a block. A direct sibling
	// sitting exactly at leafMin (42 for this repo's default config)
	// merged with an underflowing leaf can need more room than a block
	// has (salad/bps_tree.h's own merge guards against exactly this);
	// when it would overflow, leave the leaf under-filled instead.
	if left != nil && len(left.elems)+len(leaf.elems) <= lmax {
		left.elems = append(left.elems, leaf.elems...)
		left.next = leaf.next
		if err := t.relinkNext(left.id, left.next); err != nil {
			return err
		}
		if err := t.encodeLeaf(left); err != nil {
			return err
		}
		t.disposeBlock(leaf.id)
		t.leafCount--
		last, empty := splitLast(left.elems)
		if err := t.refreshMaxAt(ancestors, slot-1, last, empty); err != nil {
			return err
		}
		return t.deleteInnerChild(ancestors, slot)
	}
	if right != nil && len(leaf.elems)+len(right.elems) <= lmax {
		leaf.elems = append(leaf.elems, right.elems...)
		leaf.next = right.next
		if err := t.relinkNext(leaf.id, leaf.next); err != nil {
			return err
		}
		if err := t.encodeLeaf(leaf); err != nil {
			return err
		}
		t.disposeBlock(right.id)
		t.leafCount--
		last, empty := splitLast(leaf.elems)
		if err := t.refreshMaxAt(ancestors, slot, last, empty); err != nil {
			return err
		}
		return t.deleteInnerChild(ancestors, slot+1)
	}
	// No sibling can absorb leaf without overflowing, or there's no
	// sibling at all: leave it under-filled.
	return nil
}

// relinkNext points newNext's prev back at id, or updates t.lastLeaf if
// id is now the tail of the leaf chain.
func (t *Tree[E, K]) relinkNext(id, newNext matras.BID) error {
	if newNext == matras.NoBlock {
		t.lastLeaf = id
		return nil
	}
	n, err := t.decodeLeaf(newNext)
	if err != nil {
		return err
	}
	n.prev = id
	return t.encodeLeaf(n)
}

// deleteInnerChild removes the separator/child pair for childIdx from
// the inner node at the tail of parentPath, then fixes underflow or
// collapses the root (spec.md §4.7, "Inner-node deletion uses the
// symmetric protocol").
func (t *Tree[E, K]) deleteInnerChild(parentPath []pathElem[E], childIdx int) error {
	parentElem := parentPath[len(parentPath)-1]
	parent, err := t.decodeInner(parentElem.id)
	if err != nil {
		return err
	}
	sepIdx := childIdx - 1
	if sepIdx < 0 {
		sepIdx = 0
	}
	parent.seps = removeAt(parent.seps, sepIdx)
	parent.children = removeAt(parent.children, childIdx)
	if err := t.encodeInner(parent); err != nil {
		return err
	}

	if len(parentPath) == 1 {
		if len(parent.children) == 1 {
			only := parent.children[0]
			t.disposeBlock(parent.id)
			t.innerCount--
			t.rootID = only
			t.depth--
		}
		return nil
	}

	imin := innerMin(t.imax())
	if len(parent.children) >= imin {
		return nil
	}
	return t.fixInnerUnderflow(parentPath, parent)
}

// fixInnerUnderflow is the inner-node counterpart of fixLeafUnderflow:
// borrow a child+separator through the parent from whichever sibling has
// surplus (step 4); failing that, a same-parent second-hop sibling
// through the direct one (step 5); failing that, merge and recurse, again
// guarded against producing a block that overflows.
func (t *Tree[E, K]) fixInnerUnderflow(path []pathElem[E], node *innerNode[E]) error {
	nodeElem := path[len(path)-1]
	parentElem := path[len(path)-2]
	parent, err := t.decodeInner(parentElem.id)
	if err != nil {
		return err
	}
	slot := nodeElem.slotInParent
	imax := t.imax()
	imin := innerMin(imax)
	ancestors := path[:len(path)-1]

	var left, right *innerNode[E]
	leftSurplus, rightSurplus := -1, -1
	if slot > 0 {
		left, err = t.decodeInner(parent.children[slot-1])
		if err != nil {
			return err
		}
		leftSurplus = len(left.children) - imin
	}
	if slot < len(parent.children)-1 {
		right, err = t.decodeInner(parent.children[slot+1])
		if err != nil {
			return err
		}
		rightSurplus = len(right.children) - imin
	}

	if leftSurplus <= 0 && rightSurplus <= 0 {
		var leftFar, rightFar *innerNode[E]
		leftFarSurplus, rightFarSurplus := -1, -1
		if left != nil && slot >= 2 {
			leftFar, err = t.decodeInner(parent.children[slot-2])
			if err != nil {
				return err
			}
			leftFarSurplus = len(leftFar.children) - imin
		}
		if right != nil && slot+2 < len(parent.children) {
			rightFar, err = t.decodeInner(parent.children[slot+2])
			if err != nil {
				return err
			}
			rightFarSurplus = len(rightFar.children) - imin
		}

		if leftFarSurplus > 0 || rightFarSurplus > 0 {
			if leftFarSurplus >= rightFarSurplus {
				m := len(leftFar.children)
				movedChild := leftFar.children[m-1]
				oldSep := parent.seps[slot-2]
				newFarMax := leftFar.seps[m-2]

				leftFar.children = leftFar.children[:m-1]
				leftFar.seps = leftFar.seps[:m-2]

				left.children = insertAt(left.children, 0, movedChild)
				left.seps = insertAt(left.seps, 0, oldSep)

				parent.seps[slot-2] = newFarMax

				if err := t.encodeInner(leftFar); err != nil {
					return err
				}
				if err := t.encodeInner(left); err != nil {
					return err
				}
				if err := t.encodeInner(parent); err != nil {
					return err
				}
				leftSurplus = len(left.children) - imin
			} else {
				movedChild := rightFar.children[0]
				movedChildMax := rightFar.seps[0]

				right.seps = append(right.seps, parent.seps[slot+1])
				right.children = append(right.children, movedChild)
				rightFar.children = rightFar.children[1:]
				rightFar.seps = rightFar.seps[1:]
				parent.seps[slot+1] = movedChildMax

				if err := t.encodeInner(rightFar); err != nil {
					return err
				}
				if err := t.encodeInner(right); err != nil {
					return err
				}
				if err := t.encodeInner(parent); err != nil {
					return err
				}
				rightSurplus = len(right.children) - imin
			}
		}
	}

	if leftSurplus > 0 || rightSurplus > 0 {
		if leftSurplus >= rightSurplus {
			m := len(left.children)
			movedChild := left.children[m-1]
			oldParentSep := parent.seps[slot-1]
			newLeftMax := left.seps[m-2]

			left.children = left.children[:m-1]
			left.seps = left.seps[:m-2]

			node.children = insertAt(node.children, 0, movedChild)
			node.seps = insertAt(node.seps, 0, oldParentSep)

			parent.seps[slot-1] = newLeftMax

			if err := t.encodeInner(left); err != nil {
				return err
			}
			if err := t.encodeInner(node); err != nil {
				return err
			}
			return t.encodeInner(parent)
		}
		movedChild := right.children[0]
		movedChildMax := right.seps[0]

		node.seps = append(node.seps, parent.seps[slot])
		node.children = append(node.children, movedChild)
		right.children = right.children[1:]
		right.seps = right.seps[1:]
		parent.seps[slot] = movedChildMax

		if err := t.encodeInner(node); err != nil {
			return err
		}
		if err := t.encodeInner(right); err != nil {
			return err
		}
		return t.encodeInner(parent)
	}

	// Merge, preferring to absorb node into left — guarded the same way
	// as fixLeafUnderflow's merge, and for the same reason.
	if left != nil && len(left.children)+len(node.children) <= imax {
		sep := parent.seps[slot-1]
		left.seps = append(left.seps, sep)
		left.seps = append(left.seps, node.seps...)
		left.children = append(left.children, node.children...)
		if err := t.encodeInner(left); err != nil {
			return err
		}
		t.disposeBlock(node.id)
		t.innerCount--
		return t.deleteInnerChild(ancestors, slot)
	}
	if right != nil && len(node.children)+len(right.children) <= imax {
		sep := parent.seps[slot]
		node.seps = append(node.seps, sep)
		node.seps = append(node.seps, right.seps...)
		node.children = append(node.children, right.children...)
		if err := t.encodeInner(node); err != nil {
			return err
		}
		t.disposeBlock(right.id)
		t.innerCount--
		return t.deleteInnerChild(ancestors, slot+1)
	}
	return nil
}
