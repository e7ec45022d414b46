package dbsp

import (
	"cmp"
	"fmt"
)

// Arranged is an incrementally maintained collection inside a fixpoint iteration. It holds three
// arrangements over the same key domain:
//
//   - the trace: the integral of all deltas committed so far (I in DBSP terms),
//   - the delta of the current round, visible to the joins of this round,
//   - the delta scheduled for the next round (the z^-1 of DBSP).
//
// Joins read the trace as it was at the start of the round together with the current delta, so no
// round ever observes its own output.
type Arranged[K, V cmp.Ordered] struct {
	name  string
	trace *Arrangement[K, V]
	delta *Arrangement[K, V]
	next  *Arrangement[K, V]
}

// NewArranged creates an empty arranged collection.
func NewArranged[K, V cmp.Ordered](name string) *Arranged[K, V] {
	return &Arranged[K, V]{
		name:  name,
		trace: NewArrangement[K, V](name),
		delta: NewArrangement[K, V](name + "^Δ"),
		next:  NewArrangement[K, V](name + "^z"),
	}
}

// Name returns the name of the collection.
func (c *Arranged[K, V]) Name() string { return c.name }

// Trace returns the accumulated state as of the start of the current round.
func (c *Arranged[K, V]) Trace() *Arrangement[K, V] { return c.trace }

// Delta returns the delta of the current round.
func (c *Arranged[K, V]) Delta() *Arrangement[K, V] { return c.delta }

// Stage adds updates to the delta of the current round. Used for intermediate collections that
// are produced and consumed in the same round.
func (c *Arranged[K, V]) Stage(b Batch[K, V]) {
	c.delta.Insert(b)
}

// Schedule adds updates to the delta of the next round.
func (c *Arranged[K, V]) Schedule(b Batch[K, V]) {
	c.next.Insert(b)
}

// Commit closes the current round: the current delta is integrated into the trace and the
// scheduled delta becomes current.
func (c *Arranged[K, V]) Commit() {
	if !c.delta.IsEmpty() {
		c.trace.Insert(c.delta.Batch())
	}
	c.delta = c.next
	c.next = NewArrangement[K, V](c.name + "^z")
}

// HasDelta checks whether the current round carries any update.
func (c *Arranged[K, V]) HasDelta() bool {
	return !c.delta.IsEmpty()
}

// String returns a short description of the collection.
func (c *Arranged[K, V]) String() string {
	return fmt.Sprintf("%s(trace=%d,Δ=%d)", c.name, c.trace.Len(), c.delta.Len())
}
