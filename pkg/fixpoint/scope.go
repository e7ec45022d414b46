package fixpoint

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/l7mp/pointsto/pkg/dbsp"
	"github.com/l7mp/pointsto/pkg/exchange"
)

// Node identifies a program variable or a memory cell.
type Node = uint32

type (
	Tuple      = dbsp.Tuple[Node, Node]
	Update     = dbsp.Update[Node, Node]
	Updates    = dbsp.Batch[Node, Node]
	Collection = dbsp.Arranged[Node, Node]
	Projector  = dbsp.Projector[Node, Node]
)

// Scope is the view of the computation from one worker: its position among the peers, its
// exchange endpoints and the collections it maintains. Every collection of a scope holds only the
// keys owned by the worker.
type Scope struct {
	ctx         context.Context
	tuples      *exchange.Endpoint[Update]
	counts      *exchange.Endpoint[[]int64]
	collections []*Collection
	log         logr.Logger
}

// NewScope creates the scope of a worker. The two endpoints must belong to the same worker.
func NewScope(ctx context.Context, tuples *exchange.Endpoint[Update], counts *exchange.Endpoint[[]int64], log logr.Logger) (*Scope, error) {
	if tuples.Index() != counts.Index() || tuples.Peers() != counts.Peers() {
		return nil, fmt.Errorf("endpoints of worker %d/%d and %d/%d do not match",
			tuples.Index(), tuples.Peers(), counts.Index(), counts.Peers())
	}

	return &Scope{
		ctx:    ctx,
		tuples: tuples,
		counts: counts,
		log:    log.WithValues("worker", tuples.Index()),
	}, nil
}

// Index returns the index of the worker.
func (s *Scope) Index() int { return s.tuples.Index() }

// Peers returns the number of workers.
func (s *Scope) Peers() int { return s.tuples.Peers() }

// Context returns the context of the computation.
func (s *Scope) Context() context.Context { return s.ctx }

// Logger returns the logger of the worker.
func (s *Scope) Logger() logr.Logger { return s.log }

// Owner returns the worker owning a node.
func (s *Scope) Owner(n Node) int { return exchange.Owner(uint64(n), s.Peers()) }

// Arrange creates a collection maintained by the scope. The scope commits all its collections at
// the end of every round.
func (s *Scope) Arrange(name string) *Collection {
	c := dbsp.NewArranged[Node, Node](name)
	s.collections = append(s.collections, c)
	return c
}

// Shuffle routes every update to the owner of its key.
func (s *Scope) Shuffle(b Updates) (Updates, error) {
	return s.tuples.Shuffle(s.ctx, b, func(u Update) int { return s.Owner(u.Key) })
}

// Route shuffles updates to the owners of their keys and stages them into the current round of a
// collection.
func (s *Scope) Route(c *Collection, b Updates) error {
	routed, err := s.Shuffle(b)
	if err != nil {
		return fmt.Errorf("routing into %s: %w", c.Name(), err)
	}
	c.Stage(routed)
	return nil
}

// Sum adds up a vector of counters over all workers. Every worker receives the same result.
func (s *Scope) Sum(local []int64) ([]int64, error) {
	all, err := s.counts.AllGather(s.ctx, local)
	if err != nil {
		return nil, err
	}

	sum := make([]int64, len(local))
	for _, v := range all {
		if len(v) != len(local) {
			return nil, fmt.Errorf("counter vector length mismatch: %d != %d", len(v), len(local))
		}
		for i := range v {
			sum[i] += v[i]
		}
	}
	return sum, nil
}

// commit closes the current round on all collections.
func (s *Scope) commit() {
	for _, c := range s.collections {
		c.Commit()
	}
}

// pending checks whether any collection carries a delta for the current round.
func (s *Scope) pending() bool {
	for _, c := range s.collections {
		if c.HasDelta() {
			return true
		}
	}
	return false
}
