package bpstree

import (
	"math/rand"
	"testing"

	"bpstree/matras"
)

func newIntTree(t *testing.T, opts ...Option) *Tree[int64, int64] {
	t.Helper()
	tr, err := Create[int64, int64](Int64Codec{}, Int64Comparator{}, matras.HeapAlloc, matras.HeapFree, opts...)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return tr
}

func mustCheck(t *testing.T, tr *Tree[int64, int64]) {
	t.Helper()
	if bits, report := tr.DebugReport(); bits != 0 {
		t.Fatalf("DebugCheck failed, bitmask=%#x:\n%s", bits, report)
	}
}

// TestInsertAscending covers spec.md §8 scenario 1.
func TestInsertAscending(t *testing.T) {
	tr := newIntTree(t)
	for i := int64(0); i < 1000; i++ {
		if _, replaced, err := tr.Insert(i); err != nil || replaced {
			t.Fatalf("Insert(%d): replaced=%v err=%v", i, replaced, err)
		}
	}
	if tr.Size() != 1000 {
		t.Fatalf("Size() = %d, want 1000", tr.Size())
	}
	mustCheck(t, tr)
	for i := int64(0); i < 1000; i++ {
		if v, ok := tr.Find(i); !ok || v != i {
			t.Fatalf("Find(%d) = %d, %v", i, v, ok)
		}
	}
}

// TestInsertDescending covers spec.md §8 scenario 2.
func TestInsertDescending(t *testing.T) {
	tr := newIntTree(t)
	for i := int64(999); i >= 0; i-- {
		if _, replaced, err := tr.Insert(i); err != nil || replaced {
			t.Fatalf("Insert(%d): replaced=%v err=%v", i, replaced, err)
		}
	}
	if tr.Size() != 1000 {
		t.Fatalf("Size() = %d, want 1000", tr.Size())
	}
	mustCheck(t, tr)

	it := tr.First()
	count := 0
	var prev int64 = -1
	for it.Valid() {
		e, ok := it.Elem()
		if !ok {
			t.Fatalf("Elem() failed mid-iteration at count %d", count)
		}
		if e <= prev {
			t.Fatalf("iteration not ascending: prev=%d e=%d", prev, e)
		}
		prev = e
		count++
		it.Next()
	}
	if count != 1000 {
		t.Fatalf("iterated %d elements, want 1000", count)
	}
}

// TestRandomPermutationDeleteEvens covers spec.md §8 scenario 3.
func TestRandomPermutationDeleteEvens(t *testing.T) {
	tr := newIntTree(t)
	rng := rand.New(rand.NewSource(42))
	perm := rng.Perm(10000)
	for _, v := range perm {
		if _, _, err := tr.Insert(int64(v)); err != nil {
			t.Fatalf("Insert(%d): %v", v, err)
		}
	}
	mustCheck(t, tr)

	for i := int64(0); i < 10000; i += 2 {
		ok, err := tr.Delete(i)
		if err != nil || !ok {
			t.Fatalf("Delete(%d): ok=%v err=%v", i, ok, err)
		}
	}
	mustCheck(t, tr)
	if tr.Size() != 5000 {
		t.Fatalf("Size() = %d, want 5000", tr.Size())
	}

	it := tr.First()
	var want int64 = 1
	for it.Valid() {
		e, _ := it.Elem()
		if e != want {
			t.Fatalf("iteration yielded %d, want %d", e, want)
		}
		want += 2
		it.Next()
	}
	if want != 10001 {
		t.Fatalf("iteration stopped early at want=%d", want)
	}
	if bits := tr.DebugCheck(); bits != 0 {
		t.Fatalf("DebugCheck() = %#x, want 0", bits)
	}
}

// TestBuildFromSorted covers spec.md §8 scenario 4.
func TestBuildFromSorted(t *testing.T) {
	tr := newIntTree(t)
	sorted := make([]int64, 1000)
	for i := range sorted {
		sorted[i] = int64(2 * i)
	}
	ok, err := tr.Build(sorted)
	if err != nil || !ok {
		t.Fatalf("Build: ok=%v err=%v", ok, err)
	}
	mustCheck(t, tr)

	if v, found := tr.Find(1000); !found || v != 1000 {
		t.Fatalf("Find(1000) = %d, %v", v, found)
	}
	if _, found := tr.Find(1001); found {
		t.Fatalf("Find(1001) unexpectedly found")
	}

	lb, exact := tr.LowerBound(999)
	if exact {
		t.Fatalf("LowerBound(999) exact=true, want false (999 is absent)")
	}
	e, ok := lb.Elem()
	if !ok || e != 1000 {
		t.Fatalf("LowerBound(999).Elem() = %d, %v, want 1000", e, ok)
	}

	ub, _ := tr.UpperBound(1000)
	ub.Prev()
	e, ok = ub.Elem()
	if !ok || e != 1000 {
		t.Fatalf("UpperBound(1000).Prev().Elem() = %d, %v, want 1000", e, ok)
	}
}

// int64Elem lets a test distinguish two int64 values that compare equal
// under a key-only comparator, the way spec.md §8 scenario 5 needs a
// "comparing equal but distinguishable" element.
type int64Elem struct {
	key int64
	tag int
}

type int64ElemCodec struct{}

func (int64ElemCodec) Size() int { return 16 }
func (int64ElemCodec) Encode(e int64Elem, buf []byte) {
	Int64Codec{}.Encode(e.key, buf[0:8])
	Int64Codec{}.Encode(int64(e.tag), buf[8:16])
}
func (int64ElemCodec) Decode(buf []byte) int64Elem {
	return int64Elem{key: Int64Codec{}.Decode(buf[0:8]), tag: int(Int64Codec{}.Decode(buf[8:16]))}
}

type int64ElemComparator struct{}

func (int64ElemComparator) CompareElems(a, b int64Elem) int {
	return Int64Comparator{}.CompareElems(a.key, b.key)
}
func (int64ElemComparator) CompareKey(e int64Elem, k int64) int {
	return Int64Comparator{}.CompareKey(e.key, k)
}

// TestReplaceDistinguishableEqual covers spec.md §8 scenario 5.
func TestReplaceDistinguishableEqual(t *testing.T) {
	tr, err := Create[int64Elem, int64](int64ElemCodec{}, int64ElemComparator{}, matras.HeapAlloc, matras.HeapFree)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := int64(0); i < 100; i++ {
		if _, _, err := tr.Insert(int64Elem{key: i, tag: 0}); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	old, replaced, err := tr.Insert(int64Elem{key: 42, tag: 1})
	if err != nil || !replaced {
		t.Fatalf("Insert replacement: replaced=%v err=%v", replaced, err)
	}
	if old.tag != 0 {
		t.Fatalf("replaced element tag = %d, want 0", old.tag)
	}
	if tr.Size() != 100 {
		t.Fatalf("Size() = %d, want 100 (unchanged)", tr.Size())
	}
	got, ok := tr.Find(42)
	if !ok || got.tag != 1 {
		t.Fatalf("Find(42) = %+v, %v, want tag=1", got, ok)
	}
}

func TestEmptyTree(t *testing.T) {
	tr := newIntTree(t)
	if tr.Size() != 0 || tr.Depth() != 0 {
		t.Fatalf("fresh tree: size=%d depth=%d, want 0,0", tr.Size(), tr.Depth())
	}
	if _, ok := tr.Find(1); ok {
		t.Fatalf("Find on empty tree found something")
	}
	if ok, err := tr.Delete(1); ok || err != nil {
		t.Fatalf("Delete on empty tree: ok=%v err=%v", ok, err)
	}
	if it := tr.First(); it.Valid() {
		t.Fatalf("First() on empty tree is valid")
	}
	mustCheck(t, tr)
}

func TestDeleteAllCollapsesToEmpty(t *testing.T) {
	tr := newIntTree(t)
	for i := int64(0); i < 500; i++ {
		tr.Insert(i)
	}
	for i := int64(0); i < 500; i++ {
		if ok, err := tr.Delete(i); !ok || err != nil {
			t.Fatalf("Delete(%d): ok=%v err=%v", i, ok, err)
		}
	}
	if tr.Size() != 0 || tr.Depth() != 0 {
		t.Fatalf("after deleting everything: size=%d depth=%d, want 0,0", tr.Size(), tr.Depth())
	}
	mustCheck(t, tr)
}

func TestLinearSearchMode(t *testing.T) {
	tr := newIntTree(t, WithLinearSearch(), WithBlockSize(128))
	for i := int64(0); i < 2000; i++ {
		tr.Insert(i)
	}
	mustCheck(t, tr)
	for i := int64(0); i < 2000; i++ {
		if v, ok := tr.Find(i); !ok || v != i {
			t.Fatalf("Find(%d) = %d, %v", i, v, ok)
		}
	}
}

func TestShrinkReclaimsGarbage(t *testing.T) {
	tr := newIntTree(t, WithBlockSize(128))
	for i := int64(0); i < 5000; i++ {
		tr.Insert(i)
	}
	for i := int64(0); i < 4900; i++ {
		tr.Delete(i)
	}
	mustCheck(t, tr)
	before := tr.MemUsed()
	tr.Shrink()
	if tr.MemUsed() > before {
		t.Fatalf("MemUsed grew after Shrink: %d -> %d", before, tr.MemUsed())
	}
	mustCheck(t, tr)
	for i := int64(4900); i < 5000; i++ {
		if v, ok := tr.Find(i); !ok || v != i {
			t.Fatalf("Find(%d) after Shrink = %d, %v", i, v, ok)
		}
	}
}
