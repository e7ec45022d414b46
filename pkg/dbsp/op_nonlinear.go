package dbsp

import (
	"cmp"
)

// IncrementalDistinctOp converts a stream of multiset deltas into set semantics. It keeps the
// running total of every tuple it has seen and emits a tuple with multiplicity 1 exactly when its
// total moves from zero (or below) to positive. Further increments emit nothing, so feeding the
// same delta twice, or an empty delta, produces no output.
//
// The op is meant for insert-only streams and never emits retractions.
type IncrementalDistinctOp[K, V cmp.Ordered] struct {
	BaseOp
	state *ZSet[Tuple[K, V]] // running totals
	size  int                // tuples emitted so far
}

// NewIncrementalDistinct creates a new incremental distinct op.
func NewIncrementalDistinct[K, V cmp.Ordered](name string) *IncrementalDistinctOp[K, V] {
	return &IncrementalDistinctOp[K, V]{
		BaseOp: NewBaseOp("distinct^Δ:"+name, 1),
		state:  NewZSet[Tuple[K, V]](),
	}
}

// Process feeds a delta to the op and returns the tuples that appear for the first time.
func (op *IncrementalDistinctOp[K, V]) Process(inputs ...Batch[K, V]) (Batch[K, V], error) {
	if err := op.validateInputs(len(inputs)); err != nil {
		return nil, err
	}

	delta := inputs[0].Consolidate()
	var result Batch[K, V]

	for _, u := range delta {
		before := op.state.GetMultiplicity(u.Tuple)
		op.state.AddMutate(u.Tuple, u.Diff)
		if before <= 0 && op.state.GetMultiplicity(u.Tuple) > 0 {
			result = append(result, Update[K, V]{Tuple: u.Tuple, Diff: 1})
			op.size++
		}
	}

	return result, nil
}

// Len returns the number of distinct tuples emitted so far.
func (op *IncrementalDistinctOp[K, V]) Len() int { return op.size }

// Contains checks whether the tuple has been emitted.
func (op *IncrementalDistinctOp[K, V]) Contains(t Tuple[K, V]) bool {
	return op.state.Contains(t)
}

// Elements returns the emitted tuples in key-value order.
func (op *IncrementalDistinctOp[K, V]) Elements() []Tuple[K, V] {
	return op.state.Elements(CompareTuples[K, V])
}

