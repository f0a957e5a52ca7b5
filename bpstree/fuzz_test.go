package bpstree

import (
	"testing"

	"bpstree/matras"
)

// FuzzTreeOps replays a byte-driven sequence of insert/delete/find
// operations against a tree and a parallel map oracle, calling
// DebugCheck after every mutating op. This is the Go-native rendition
// of the original bps_tree.h template's ad hoc C fuzz driver (spec.md's
// "Debug / self-check" component).
func FuzzTreeOps(f *testing.F) {
	f.Add([]byte{0, 1, 0, 2, 1, 1, 0, 3})
	f.Add([]byte{2, 2, 2, 2, 2, 2})
	f.Add([]byte{0, 0, 0, 1, 0, 2, 0, 3, 0, 4, 1, 0, 1, 2, 1, 4})

	f.Fuzz(func(t *testing.T, ops []byte) {
		if len(ops) > 4096 {
			t.Skip("op stream too long for a fast fuzz iteration")
		}
		tr, err := Create[int64, int64](Int64Codec{}, Int64Comparator{}, matras.HeapAlloc, matras.HeapFree, WithBlockSize(128))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		oracle := make(map[int64]bool)

		for i := 0; i+1 < len(ops); i += 2 {
			op := ops[i] % 3
			key := int64(ops[i+1])
			switch op {
			case 0: // insert
				_, _, err := tr.Insert(key)
				if err != nil {
					t.Fatalf("Insert(%d): %v", key, err)
				}
				oracle[key] = true
				if bits := tr.DebugCheck(); bits != 0 {
					t.Fatalf("DebugCheck after Insert(%d) = %#x", key, bits)
				}
			case 1: // delete
				wasPresent := oracle[key]
				ok, err := tr.Delete(key)
				if err != nil {
					t.Fatalf("Delete(%d): %v", key, err)
				}
				if ok != wasPresent {
					t.Fatalf("Delete(%d) = %v, oracle had present=%v", key, ok, wasPresent)
				}
				delete(oracle, key)
				if bits := tr.DebugCheck(); bits != 0 {
					t.Fatalf("DebugCheck after Delete(%d) = %#x", key, bits)
				}
			case 2: // find
				v, found := tr.Find(key)
				wantFound := oracle[key]
				if found != wantFound {
					t.Fatalf("Find(%d) found=%v, want %v", key, found, wantFound)
				}
				if found && v != key {
					t.Fatalf("Find(%d) returned %d", key, v)
				}
			}
		}

		if tr.Size() != len(oracle) {
			t.Fatalf("Size() = %d, oracle has %d", tr.Size(), len(oracle))
		}

		it := tr.First()
		count := 0
		for it.Valid() {
			e, ok := it.Elem()
			if !ok {
				t.Fatalf("Elem() failed mid-iteration")
			}
			if !oracle[e] {
				t.Fatalf("iteration yielded %d, not in oracle", e)
			}
			count++
			it.Next()
		}
		if count != len(oracle) {
			t.Fatalf("iteration yielded %d elements, oracle has %d", count, len(oracle))
		}
	})
}
