package dbsp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Linear ops", func() {
	Describe("ProjectionOp", func() {
		It("should flip tuples keeping multiplicities", func() {
			in := Batch[uint32, uint32]{NewUpdate[uint32, uint32](1, 2, 3)}
			res, err := NewFlip[uint32]().Process(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(Batch[uint32, uint32]{NewUpdate[uint32, uint32](2, 1, 3)}))
			Expect(in[0].Key).To(Equal(uint32(1)))
		})

		It("should apply arbitrary projections", func() {
			op := NewProjection("shift", func(t Tuple[uint32, uint32]) Tuple[uint32, uint32] {
				return Tuple[uint32, uint32]{Key: t.Key + 1, Val: t.Val}
			})
			res, err := op.Process(updates(1, 1, 1, 2, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(updates(1, 2, 1, 3, 2)))
			Expect(op.Name()).To(Equal("π:shift"))
		})
	})

	Describe("PlusOp", func() {
		It("should concatenate its inputs", func() {
			res, err := NewPlus[uint32, uint32](3).Process(updates(1, 1, 1), nil, updates(-1, 1, 1, 2, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(HaveLen(3))
			Expect(res.Consolidate()).To(Equal(Batch[uint32, uint32]{NewUpdate[uint32, uint32](2, 2, -1)}))
		})

		It("should validate the arity", func() {
			_, err := NewPlus[uint32, uint32](2).Process(nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
