package fixpoint

import (
	"fmt"

	"github.com/l7mp/pointsto/pkg/dbsp"
)

// Variable is a derived relation of the fixpoint. It is kept as a set: candidate tuples produced
// by the rules go through an incremental distinct and only the tuples seen for the first time are
// scheduled for the next round.
//
// The relation is arranged by its first column. A reverse arrangement, keyed by the second
// column, is maintained on request for rules that join on it.
type Variable struct {
	name     string
	distinct *dbsp.IncrementalDistinctOp[Node, Node]
	forward  *Collection
	reverse  *Collection
	flip     *dbsp.ProjectionOp[Node, Node]
}

// NewVariable creates a derived relation in the scope.
func (s *Scope) NewVariable(name string, reverse bool) *Variable {
	v := &Variable{
		name:     name,
		distinct: dbsp.NewIncrementalDistinct[Node, Node](name),
		forward:  s.Arrange(name),
	}
	if reverse {
		v.reverse = s.Arrange(name + "ᵀ")
		v.flip = dbsp.NewFlip[Node]()
	}
	return v
}

// Name returns the name of the relation.
func (v *Variable) Name() string { return v.name }

// Forward returns the relation arranged by its first column.
func (v *Variable) Forward() *Collection { return v.forward }

// Reverse returns the relation arranged by its second column, or nil.
func (v *Variable) Reverse() *Collection { return v.reverse }

// Len returns the number of tuples of the relation owned by this worker.
func (v *Variable) Len() int { return v.distinct.Len() }

// Tuples returns the tuples of the relation owned by this worker.
func (v *Variable) Tuples() []Tuple { return v.distinct.Elements() }

// Contains checks whether this worker holds the tuple.
func (v *Variable) Contains(t Tuple) bool { return v.distinct.Contains(t) }

// Feed routes candidate tuples to their owners, deduplicates them against everything derived so
// far and schedules the new ones for the next round.
func (v *Variable) Feed(s *Scope, candidates Updates) error {
	routed, err := s.Shuffle(candidates)
	if err != nil {
		return fmt.Errorf("routing candidates of %s: %w", v.name, err)
	}

	fresh, err := v.distinct.Process(routed)
	if err != nil {
		return err
	}
	v.forward.Schedule(fresh)

	if v.reverse == nil {
		return nil
	}

	flipped, err := v.flip.Process(fresh)
	if err != nil {
		return err
	}
	flipped, err = s.Shuffle(flipped)
	if err != nil {
		return fmt.Errorf("routing reverse of %s: %w", v.name, err)
	}
	v.reverse.Schedule(flipped)

	return nil
}
