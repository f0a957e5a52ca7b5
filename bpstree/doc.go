/*
Package bpstree implements an in-memory B+*-tree: an ordered index over
fixed-size opaque elements, comparator-driven, block-structured and
addressed through 32-bit stable block IDs rather than raw pointers.

	Tree
	 ├── Inner node (separators + child IDs)
	 │      └── Inner / Leaf children ...
	 └── Leaf (elements, doubly linked in key order)

- elements: fixed encoded size, compared via a Comparator, never
  inspected by the tree itself
- leaves: sorted ascending, linked prev/next for range scans
- inner nodes: separator i is a copy of the max element of child i
- all leaves sit at the same depth

The tree is single-threaded: no internal locking, no concurrent access
during mutation (see DESIGN.md). Callers needing concurrent access must
serialize it themselves.
*/
package bpstree
