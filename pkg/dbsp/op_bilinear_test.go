package dbsp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// swapJoin maps a match (x, a, b) to (a, b).
func swapJoin(_ uint32, l, r uint32) (uint32, uint32, bool) { return l, r, true }

func arrangement(name string, b Batch[uint32, uint32]) *Arrangement[uint32, uint32] {
	a := NewArrangement[uint32, uint32](name)
	a.Insert(b)
	return a
}

var _ = Describe("BinaryJoinOp", func() {
	var op *BinaryJoinOp[uint32, uint32]

	BeforeEach(func() {
		op = NewBinaryJoin("test", swapJoin)
	})

	It("should join on the key", func() {
		left := arrangement("L", updates(1, 1, 10, 2, 20))
		right := arrangement("R", updates(1, 1, 100, 1, 101, 3, 300))

		res, err := op.Process(left, right)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Consolidate()).To(Equal(Batch[uint32, uint32]{
			NewUpdate[uint32, uint32](10, 100, 1),
			NewUpdate[uint32, uint32](10, 101, 1),
		}))
	})

	It("should multiply multiplicities", func() {
		left := arrangement("L", Batch[uint32, uint32]{NewUpdate[uint32, uint32](1, 10, 2)})
		right := arrangement("R", Batch[uint32, uint32]{NewUpdate[uint32, uint32](1, 100, 3)})

		res, err := op.Process(left, right)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(Batch[uint32, uint32]{NewUpdate[uint32, uint32](10, 100, 6)}))
	})

	It("should give the same result whichever side drives", func() {
		left := arrangement("L", updates(1, 1, 10, 2, 20, 3, 30, 4, 40))
		right := arrangement("R", updates(1, 2, 200))

		lr, err := op.Process(left, right)
		Expect(err).NotTo(HaveOccurred())
		Expect(lr).To(Equal(Batch[uint32, uint32]{NewUpdate[uint32, uint32](20, 200, 1)}))
	})

	It("should drop filtered matches", func() {
		op = NewBinaryJoin("filter", func(_ uint32, l, r uint32) (uint32, uint32, bool) {
			return l, r, l != r
		})
		left := arrangement("L", updates(1, 1, 5, 1, 6))
		right := arrangement("R", updates(1, 1, 5))

		res, err := op.Process(left, right)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(Batch[uint32, uint32]{NewUpdate[uint32, uint32](6, 5, 1)}))
	})

	It("should return nothing for an empty input", func() {
		res, err := op.Process(NewArrangement[uint32, uint32]("L"), arrangement("R", updates(1, 1, 1)))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(BeEmpty())
	})

	It("should validate the arity", func() {
		_, err := op.Process(NewArrangement[uint32, uint32]("L"))
		Expect(err).To(HaveOccurred())
		var opErr *OpError
		Expect(err).To(BeAssignableToTypeOf(opErr))
	})
})

var _ = Describe("IncrementalBinaryJoinOp", func() {
	var (
		op          *IncrementalBinaryJoinOp[uint32, uint32]
		left, right *Arranged[uint32, uint32]
		snapshot    *BinaryJoinOp[uint32, uint32]
	)

	BeforeEach(func() {
		op = NewIncrementalBinaryJoin("test", swapJoin)
		snapshot = NewBinaryJoin("snapshot", swapJoin)
		left = NewArranged[uint32, uint32]("L")
		right = NewArranged[uint32, uint32]("R")
	})

	// step stages deltas into both sides, runs the op, and commits
	step := func(dl, dr Batch[uint32, uint32]) Batch[uint32, uint32] {
		left.Stage(dl)
		right.Stage(dr)
		res, err := op.Process(left, right)
		Expect(err).NotTo(HaveOccurred())
		left.Commit()
		right.Commit()
		return res
	}

	It("should produce all three terms of the delta", func() {
		// round 1: both deltas
		res := step(updates(1, 1, 10), updates(1, 1, 100))
		Expect(res).To(Equal(Batch[uint32, uint32]{NewUpdate[uint32, uint32](10, 100, 1)}))

		// round 2: only the right side changes, joined with the left trace
		res = step(nil, updates(1, 1, 101))
		Expect(res).To(Equal(Batch[uint32, uint32]{NewUpdate[uint32, uint32](10, 101, 1)}))

		// round 3: only the left side changes, joined with the right trace
		res = step(updates(1, 1, 11), nil)
		Expect(res.Consolidate()).To(Equal(Batch[uint32, uint32]{
			NewUpdate[uint32, uint32](11, 100, 1),
			NewUpdate[uint32, uint32](11, 101, 1),
		}))

		// round 4: nothing changes
		Expect(step(nil, nil)).To(BeEmpty())
	})

	It("should integrate to the snapshot join", func() {
		deltas := []struct{ l, r Batch[uint32, uint32] }{
			{updates(1, 1, 1, 2, 2), updates(1, 2, 20)},
			{updates(1, 2, 3), updates(1, 1, 10, 2, 21)},
			{updates(1, 3, 4), updates(1, 3, 30, 1, 11)},
		}

		var total Batch[uint32, uint32]
		for _, d := range deltas {
			total = append(total, step(d.l, d.r)...)
		}

		expected, err := snapshot.Process(left.Trace(), right.Trace())
		Expect(err).NotTo(HaveOccurred())
		Expect(total.Consolidate()).To(Equal(expected.Consolidate()))
	})

	It("should support self-joins", func() {
		res := step(updates(1, 1, 10), nil)
		Expect(res).To(BeEmpty())

		op = NewIncrementalBinaryJoin("self", swapJoin)
		left.Stage(updates(1, 1, 11))
		res, err := op.Process(left, left)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Consolidate()).To(Equal(Batch[uint32, uint32]{
			NewUpdate[uint32, uint32](10, 11, 1),
			NewUpdate[uint32, uint32](11, 10, 1),
			NewUpdate[uint32, uint32](11, 11, 1),
		}))
		Expect(op.Name()).To(Equal("self^Δ"))
	})
})
