package dbsp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IncrementalDistinctOp", func() {
	var op *IncrementalDistinctOp[uint32, uint32]

	BeforeEach(func() {
		op = NewIncrementalDistinct[uint32, uint32]("test")
	})

	It("should emit new tuples once", func() {
		res, err := op.Process(Batch[uint32, uint32]{
			NewUpdate[uint32, uint32](1, 2, 1),
			NewUpdate[uint32, uint32](1, 2, 1),
			NewUpdate[uint32, uint32](3, 4, 2),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(Batch[uint32, uint32]{
			NewUpdate[uint32, uint32](1, 2, 1),
			NewUpdate[uint32, uint32](3, 4, 1),
		}))
		Expect(op.Len()).To(Equal(2))
	})

	It("should not emit tuples seen before", func() {
		_, err := op.Process(updates(1, 1, 2))
		Expect(err).NotTo(HaveOccurred())

		res, err := op.Process(updates(1, 1, 2, 5, 6))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(Batch[uint32, uint32]{NewUpdate[uint32, uint32](5, 6, 1)}))
		Expect(op.Elements()).To(Equal([]Tuple[uint32, uint32]{{Key: 1, Val: 2}, {Key: 5, Val: 6}}))
	})

	It("should be idempotent on an empty delta", func() {
		_, err := op.Process(updates(1, 1, 2, 3, 4))
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 3; i++ {
			res, err := op.Process(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(BeEmpty())
		}
		Expect(op.Len()).To(Equal(2))
	})

	It("should ignore tuples whose total stays non-positive", func() {
		res, err := op.Process(Batch[uint32, uint32]{
			NewUpdate[uint32, uint32](1, 2, 1),
			NewUpdate[uint32, uint32](1, 2, -1),
			NewUpdate[uint32, uint32](3, 4, -1),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(BeEmpty())
		Expect(op.Contains(Tuple[uint32, uint32]{Key: 1, Val: 2})).To(BeFalse())
	})

	It("should validate the arity", func() {
		_, err := op.Process()
		Expect(err).To(MatchError(ContainSubstring("expects 1 inputs")))
		Expect(op.Name()).To(Equal("distinct^Δ:test"))
	})
})
