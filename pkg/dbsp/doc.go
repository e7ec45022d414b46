// Package dbsp implements the Database Stream Processing (DBSP) building blocks needed for
// incremental fixpoint computation on Z-sets (multisets with integer multiplicities). See
// https://mihaibudiu.github.io/work/dbsp-spec.pdf for the theory.
//
// Data is represented as Z-sets where each tuple carries a signed multiplicity, which lets the
// operators process only the changes (deltas) of their inputs.
//
// Key components:
//   - ZSet: generic Z-set over comparable tuples.
//   - Batch: a sequence of (tuple, multiplicity) updates, consolidated on demand.
//   - Arrangement: a B-tree index from key to the ordered values stored under it.
//   - Arranged: an arrangement split into trace, current delta and next delta, the unit of state
//     of an iterative computation.
//   - IncrementalBinaryJoinOp: semi-naive join (ΔL⋈ΔR + L⋈ΔR + ΔL⋈R).
//   - IncrementalDistinctOp: converts multiset deltas into set semantics.
//
// Operator types:
//   - Linear: Selection, projection, etc (preserve zero, commute with addition).
//   - Bilinear: Join operations (multiplication-like semantics).
//   - Nonlinear: Operations like distinct that need state to be incrementalized.
//
// Example usage:
//
//	edges := dbsp.NewArranged[uint32, uint32]("edges")
//	edges.Schedule(dbsp.Batch[uint32, uint32]{dbsp.NewUpdate[uint32, uint32](1, 2, 1)})
//	edges.Commit()
//	join := dbsp.NewIncrementalBinaryJoin("path", func(k, l, r uint32) (uint32, uint32, bool) {
//		return l, r, true
//	})
//	out, err := join.Process(edges, edges)
package dbsp
