package fixpoint

import (
	"github.com/l7mp/pointsto/pkg/dbsp"
)

// Base holds the input relations of the analysis. They are filled during loading, routed to their
// owners when the input is closed and enter the first round as a single delta.
type Base struct {
	// Assignment holds A(a,x) arranged by x, i.e., as the tuple (x,a).
	Assignment *Collection
	// Dereference holds D(x,a) arranged by x.
	Dereference *Collection
	// Nodes holds (n,n) for every node appearing in A or D, once per occurrence.
	Nodes *Collection

	assign, deref Updates
	flip          *dbsp.ProjectionOp[Node, Node]
}

func newBase(s *Scope) *Base {
	return &Base{
		Assignment:  s.Arrange("A"),
		Dereference: s.Arrange("D"),
		Nodes:       s.Arrange("N"),
		flip:        dbsp.NewFlip[Node](),
	}
}

func (b *Base) insertAssignment(src, dst Node) {
	b.assign = append(b.assign, dbsp.NewUpdate(src, dst, 1))
}

func (b *Base) insertDereference(src, dst Node) {
	b.deref = append(b.deref, dbsp.NewUpdate(src, dst, 1))
}

// close routes the loaded facts to the workers owning their join keys and schedules them for the
// first round.
func (b *Base) close(s *Scope) error {
	// a single worker gets its own batch back from the shuffle, and scheduling consolidates it in
	// place, so the node occurrences are collected first
	nodes := make(Updates, 0, 2*(len(b.assign)+len(b.deref)))
	for _, batch := range []Updates{b.assign, b.deref} {
		for _, u := range batch {
			nodes = append(nodes, dbsp.NewUpdate(u.Key, u.Key, 1), dbsp.NewUpdate(u.Val, u.Val, 1))
		}
	}

	flipped, err := b.flip.Process(b.assign)
	if err != nil {
		return err
	}
	assign, err := s.Shuffle(flipped)
	if err != nil {
		return err
	}
	b.Assignment.Schedule(assign)

	deref, err := s.Shuffle(b.deref)
	if err != nil {
		return err
	}
	b.Dereference.Schedule(deref)

	nodes, err = s.Shuffle(nodes)
	if err != nil {
		return err
	}
	b.Nodes.Schedule(nodes)

	b.assign, b.deref = nil, nil
	return nil
}
