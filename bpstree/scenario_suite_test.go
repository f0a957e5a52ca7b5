package bpstree_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"bpstree/bpstree"
	"bpstree/matras"
)

func TestScenarios(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "bpstree end-to-end scenarios")
}

func newTree() *bpstree.Tree[int64, int64] {
	tr, err := bpstree.Create[int64, int64](bpstree.Int64Codec{}, bpstree.Int64Comparator{}, matras.HeapAlloc, matras.HeapFree)
	Expect(err).NotTo(HaveOccurred())
	return tr
}

var _ = Describe("BPS-tree", func() {
	var tr *bpstree.Tree[int64, int64]

	BeforeEach(func() {
		tr = newTree()
	})

	Describe("inserting a dense ascending run", func() {
		BeforeEach(func() {
			for i := int64(0); i < 1000; i++ {
				_, _, err := tr.Insert(i)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("reports the right size", func() {
			Expect(tr.Size()).To(Equal(1000))
		})

		It("finds every inserted element", func() {
			for i := int64(0); i < 1000; i++ {
				v, ok := tr.Find(i)
				Expect(ok).To(BeTrue())
				Expect(v).To(Equal(i))
			}
		})

		It("passes every structural invariant", func() {
			Expect(tr.DebugCheck()).To(BeZero())
		})
	})

	Describe("deleting down to empty", func() {
		BeforeEach(func() {
			for i := int64(0); i < 300; i++ {
				tr.Insert(i)
			}
		})

		It("collapses the tree once every element is gone", func() {
			for i := int64(0); i < 300; i++ {
				ok, err := tr.Delete(i)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
			}
			Expect(tr.Size()).To(Equal(0))
			Expect(tr.Depth()).To(Equal(0))
			Expect(tr.DebugCheck()).To(BeZero())
		})
	})

	Describe("insert-then-replace law", func() {
		It("keeps size unchanged and returns the prior element", func() {
			_, replaced, err := tr.Insert(int64(7))
			Expect(err).NotTo(HaveOccurred())
			Expect(replaced).To(BeFalse())

			old, replaced, err := tr.Insert(int64(7))
			Expect(err).NotTo(HaveOccurred())
			Expect(replaced).To(BeTrue())
			Expect(old).To(Equal(int64(7)))
			Expect(tr.Size()).To(Equal(1))
		})
	})

	Describe("iterator bounds", func() {
		BeforeEach(func() {
			for i := int64(0); i < 2000; i += 2 {
				tr.Insert(i)
			}
		})

		It("LowerBound lands exactly on a present key", func() {
			it, exact := tr.LowerBound(1000)
			Expect(exact).To(BeTrue())
			e, ok := it.Elem()
			Expect(ok).To(BeTrue())
			Expect(e).To(Equal(int64(1000)))
		})

		It("LowerBound on an absent key lands on the next element", func() {
			it, exact := tr.LowerBound(1001)
			Expect(exact).To(BeFalse())
			e, ok := it.Elem()
			Expect(ok).To(BeTrue())
			Expect(e).To(Equal(int64(1002)))
		})
	})
})
