package dbsp

import (
	"cmp"
)

// Projection node.
type ProjectionOp[K, V cmp.Ordered] struct {
	BaseOp
	project func(Tuple[K, V]) Tuple[K, V]
}

// NewProjection creates a new projection op.
func NewProjection[K, V cmp.Ordered](name string, project func(Tuple[K, V]) Tuple[K, V]) *ProjectionOp[K, V] {
	return &ProjectionOp[K, V]{
		BaseOp:  NewBaseOp("π:"+name, 1),
		project: project,
	}
}

// NewFlip creates a projection swapping the key and the value of every tuple.
func NewFlip[T cmp.Ordered]() *ProjectionOp[T, T] {
	return NewProjection("flip", Flip[T])
}

// Process evaluates the op. The input is not modified.
func (op *ProjectionOp[K, V]) Process(inputs ...Batch[K, V]) (Batch[K, V], error) {
	if err := op.validateInputs(len(inputs)); err != nil {
		return nil, err
	}

	input := inputs[0]
	result := make(Batch[K, V], len(input))
	for i, u := range input {
		result[i] = Update[K, V]{Tuple: op.project(u.Tuple), Diff: u.Diff}
	}

	return result, nil
}

// PlusOp is the union of any number of batches, adding up multiplicities.
type PlusOp[K, V cmp.Ordered] struct {
	BaseOp
}

// NewPlus creates a new union op of the given arity.
func NewPlus[K, V cmp.Ordered](arity int) *PlusOp[K, V] {
	return &PlusOp[K, V]{BaseOp: NewBaseOp("+", arity)}
}

// Process evaluates the op. The result is not consolidated.
func (op *PlusOp[K, V]) Process(inputs ...Batch[K, V]) (Batch[K, V], error) {
	if err := op.validateInputs(len(inputs)); err != nil {
		return nil, err
	}

	n := 0
	for _, in := range inputs {
		n += len(in)
	}

	result := make(Batch[K, V], 0, n)
	for _, in := range inputs {
		result = append(result, in...)
	}

	return result, nil
}
