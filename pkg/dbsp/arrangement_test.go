package dbsp

import (
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func updates(diff int64, kv ...uint32) Batch[uint32, uint32] {
	b := make(Batch[uint32, uint32], 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		b = append(b, NewUpdate(kv[i], kv[i+1], diff))
	}
	return b
}

var _ = Describe("Arrangement", func() {
	var arr *Arrangement[uint32, uint32]

	BeforeEach(func() {
		arr = NewArrangement[uint32, uint32]("test")
	})

	It("should index values by key in order", func() {
		arr.Insert(updates(1, 2, 7, 1, 5, 2, 3, 1, 4))

		Expect(arr.Keys()).To(Equal(2))
		Expect(arr.Len()).To(Equal(4))
		Expect(arr.Lookup(1)).To(Equal([]ValDiff[uint32]{{Val: 4, Diff: 1}, {Val: 5, Diff: 1}}))
		Expect(arr.Lookup(2)).To(Equal([]ValDiff[uint32]{{Val: 3, Diff: 1}, {Val: 7, Diff: 1}}))
		Expect(arr.Lookup(3)).To(BeNil())

		var keys []uint32
		arr.Ascend(func(key uint32, _ []ValDiff[uint32]) bool {
			keys = append(keys, key)
			return true
		})
		Expect(keys).To(Equal([]uint32{1, 2}))
	})

	It("should merge new values into existing keys", func() {
		arr.Insert(updates(1, 1, 2, 1, 6))
		arr.Insert(updates(1, 1, 4, 1, 6, 1, 8))

		Expect(arr.Lookup(1)).To(Equal([]ValDiff[uint32]{
			{Val: 2, Diff: 1}, {Val: 4, Diff: 1}, {Val: 6, Diff: 2}, {Val: 8, Diff: 1},
		}))
		Expect(arr.Len()).To(Equal(4))
		Expect(arr.Size()).To(Equal(int64(5)))
	})

	It("should remove keys whose values cancel", func() {
		arr.Insert(updates(1, 1, 2, 3, 4))
		arr.Insert(updates(-1, 1, 2))

		Expect(arr.Keys()).To(Equal(1))
		Expect(arr.Lookup(1)).To(BeNil())
		Expect(arr.Len()).To(Equal(1))
		Expect(arr.Size()).To(Equal(int64(1)))
	})

	It("should range over the values of a single key", func() {
		arr.Insert(updates(1, 1, 9, 2, 1, 2, 5, 2, 3, 3, 0))

		var vals []uint32
		arr.Range(2, func(vd ValDiff[uint32]) bool {
			vals = append(vals, vd.Val)
			return true
		})
		Expect(vals).To(Equal([]uint32{1, 3, 5}))

		vals = nil
		arr.Range(2, func(vd ValDiff[uint32]) bool {
			vals = append(vals, vd.Val)
			return len(vals) < 2
		})
		Expect(vals).To(Equal([]uint32{1, 3}))

		called := false
		arr.Range(7, func(ValDiff[uint32]) bool { called = true; return true })
		Expect(called).To(BeFalse())
	})

	It("should group values by key and stop early", func() {
		arr.Insert(updates(1, 1, 1, 1, 2, 2, 3, 3, 4))

		groups := map[uint32][]uint32{}
		arr.Ascend(func(key uint32, vals []ValDiff[uint32]) bool {
			for _, vd := range vals {
				groups[key] = append(groups[key], vd.Val)
			}
			return key < 2
		})
		Expect(groups).To(Equal(map[uint32][]uint32{1: {1, 2}, 2: {3}}))
	})

	It("should not copy the values of a key on insert", func() {
		const large = 10000
		big := make(Batch[uint32, uint32], large)
		for i := range big {
			big[i] = NewUpdate[uint32, uint32](1, uint32(2*i), 1)
		}
		arr.Insert(big)

		const inserts = 200
		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		for i := 0; i < inserts; i++ {
			arr.Insert(Batch[uint32, uint32]{NewUpdate[uint32, uint32](1, uint32(2*i+1), 1)})
		}
		runtime.ReadMemStats(&after)

		// copying the value list would allocate at least 16 bytes per stored value per insert
		perInsert := (after.TotalAlloc - before.TotalAlloc) / inserts
		Expect(perInsert).To(BeNumerically("<", 16*large/10))
		Expect(arr.Len()).To(Equal(large + inserts))
		Expect(arr.Keys()).To(Equal(1))
	})

	It("should dump a consolidated batch", func() {
		arr.Insert(updates(1, 3, 1, 1, 2, 1, 2))
		Expect(arr.Batch()).To(Equal(Batch[uint32, uint32]{
			NewUpdate[uint32, uint32](1, 2, 2),
			NewUpdate[uint32, uint32](3, 1, 1),
		}))
	})
})

var _ = Describe("Arranged", func() {
	var c *Arranged[uint32, uint32]

	BeforeEach(func() {
		c = NewArranged[uint32, uint32]("c")
	})

	It("should move scheduled updates to the delta on commit", func() {
		c.Schedule(updates(1, 1, 2))
		Expect(c.HasDelta()).To(BeFalse())

		c.Commit()
		Expect(c.HasDelta()).To(BeTrue())
		Expect(c.Delta().Len()).To(Equal(1))
		Expect(c.Trace().IsEmpty()).To(BeTrue())

		c.Commit()
		Expect(c.HasDelta()).To(BeFalse())
		Expect(c.Trace().Lookup(1)).To(Equal([]ValDiff[uint32]{{Val: 2, Diff: 1}}))
	})

	It("should expose staged updates in the current round", func() {
		c.Stage(updates(1, 5, 6))
		Expect(c.Delta().Len()).To(Equal(1))

		c.Commit()
		Expect(c.HasDelta()).To(BeFalse())
		Expect(c.Trace().Len()).To(Equal(1))
		Expect(c.String()).To(Equal("c(trace=1,Δ=0)"))
	})
})
