package dbsp

import (
	"cmp"
	"fmt"
)

// Projector maps a matching (key, left value, right value) triple to an output tuple. Returning
// false drops the match.
type Projector[K, V cmp.Ordered] func(key K, left, right V) (K, V, bool)

// BinaryJoinOp is a snapshot binary join of two arrangements over the same key domain.
type BinaryJoinOp[K, V cmp.Ordered] struct {
	BaseOp
	project Projector[K, V]
}

// NewBinaryJoin creates a new snapshot binary join op.
func NewBinaryJoin[K, V cmp.Ordered](name string, project Projector[K, V]) *BinaryJoinOp[K, V] {
	return &BinaryJoinOp[K, V]{
		BaseOp:  NewBaseOp(name, 2),
		project: project,
	}
}

// Process evaluates the op.
func (op *BinaryJoinOp[K, V]) Process(inputs ...*Arrangement[K, V]) (Batch[K, V], error) {
	if err := op.validateInputs(len(inputs)); err != nil {
		return nil, err
	}
	return joinCore(inputs[0], inputs[1], op.project, nil), nil
}

// joinCore appends the projected cross product of every key present in both arrangements to out.
// The arrangement with fewer keys drives the iteration, the values of the other one are ranged
// over in place.
func joinCore[K, V cmp.Ordered](left, right *Arrangement[K, V], project Projector[K, V], out Batch[K, V]) Batch[K, V] {
	if left.IsEmpty() || right.IsEmpty() {
		return out
	}

	if left.Keys() <= right.Keys() {
		left.Ascend(func(key K, lvals []ValDiff[V]) bool {
			right.Range(key, func(r ValDiff[V]) bool {
				for _, l := range lvals {
					out = emitMatch(key, l, r, project, out)
				}
				return true
			})
			return true
		})
		return out
	}

	right.Ascend(func(key K, rvals []ValDiff[V]) bool {
		left.Range(key, func(l ValDiff[V]) bool {
			for _, r := range rvals {
				out = emitMatch(key, l, r, project, out)
			}
			return true
		})
		return true
	})
	return out
}

func emitMatch[K, V cmp.Ordered](key K, l, r ValDiff[V], project Projector[K, V], out Batch[K, V]) Batch[K, V] {
	k, v, ok := project(key, l.Val, r.Val)
	if !ok {
		return out
	}
	// BILINEAR: multiply multiplicities
	return append(out, NewUpdate(k, v, l.Diff*r.Diff))
}

// IncrementalBinaryJoinOp implements an incremental binary join over arranged collections. The
// inputs own their state (the traces), the op only combines them.
type IncrementalBinaryJoinOp[K, V cmp.Ordered] struct {
	BaseOp
	project Projector[K, V]

	// Three snapshot joins for the bilinear expansion
	join1 *BinaryJoinOp[K, V] // ΔL ⋈ ΔR
	join2 *BinaryJoinOp[K, V] // prev_L ⋈ ΔR
	join3 *BinaryJoinOp[K, V] // ΔL ⋈ prev_R
	plus  *PlusOp[K, V]
}

// NewIncrementalBinaryJoin creates a new incremental binary join.
func NewIncrementalBinaryJoin[K, V cmp.Ordered](name string, project Projector[K, V]) *IncrementalBinaryJoinOp[K, V] {
	return &IncrementalBinaryJoinOp[K, V]{
		BaseOp:  NewBaseOp(name+"^Δ", 2),
		project: project,
		join1:   NewBinaryJoin(name, project),
		join2:   NewBinaryJoin(name, project),
		join3:   NewBinaryJoin(name, project),
		plus:    NewPlus[K, V](3),
	}
}

// Process evaluates the op on the current round of its inputs: only matches involving at least
// one tuple of a current delta are produced.
func (op *IncrementalBinaryJoinOp[K, V]) Process(inputs ...*Arranged[K, V]) (Batch[K, V], error) {
	if err := op.validateInputs(len(inputs)); err != nil {
		return nil, err
	}

	left, right := inputs[0], inputs[1]

	// Term 1: ΔL ⋈ ΔR
	term1, err := op.join1.Process(left.Delta(), right.Delta())
	if err != nil {
		return nil, fmt.Errorf("ΔL ⋈ ΔR failed: %w", err)
	}

	// Term 2: prev_L ⋈ ΔR
	term2, err := op.join2.Process(left.Trace(), right.Delta())
	if err != nil {
		return nil, fmt.Errorf("prev_L ⋈ ΔR failed: %w", err)
	}

	// Term 3: ΔL ⋈ prev_R
	term3, err := op.join3.Process(left.Delta(), right.Trace())
	if err != nil {
		return nil, fmt.Errorf("ΔL ⋈ prev_R failed: %w", err)
	}

	return op.plus.Process(term1, term2, term3)
}
