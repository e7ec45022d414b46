package fixpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/l7mp/pointsto/pkg/metrics"
)

var ErrInvalidState = errors.New("invalid driver state")

// State is the lifecycle state of a driver.
type State int

const (
	// Loading accepts input facts.
	Loading State = iota
	// Iterating evaluates rounds until no new tuple is derived.
	Iterating
	// Converged holds the final relations.
	Converged
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// RuleSet compiles the rules of an analysis into a program over the input relations of a scope.
type RuleSet interface {
	Name() string
	Compile(s *Scope, base *Base) (*Program, error)
}

// RoundStats summarizes a round. Counts are global: every worker reports the same values.
type RoundStats struct {
	Round    int              `json:"round"`
	Derived  map[string]int64 `json:"derived"`
	Sizes    map[string]int64 `json:"sizes"`
	Duration time.Duration    `json:"duration"`
}

// Driver runs the fixpoint computation of a rule set on one worker. All workers of a computation
// must drive their drivers through the same sequence of calls.
type Driver struct {
	scope   *Scope
	base    *Base
	program *Program
	state   State
	rounds  []RoundStats
	metrics *metrics.Metrics
	log     logr.Logger
}

// NewDriver compiles the rule set in the scope and returns a driver in the Loading state. Metrics
// may be nil.
func NewDriver(s *Scope, rules RuleSet, m *metrics.Metrics) (*Driver, error) {
	base := newBase(s)
	program, err := rules.Compile(s, base)
	if err != nil {
		return nil, fmt.Errorf("compiling rule set %s: %w", rules.Name(), err)
	}

	return &Driver{
		scope:   s,
		base:    base,
		program: program,
		state:   Loading,
		metrics: m,
		log:     s.Logger().WithName("driver"),
	}, nil
}

// State returns the state of the driver.
func (d *Driver) State() State { return d.state }

// Program returns the compiled program.
func (d *Driver) Program() *Program { return d.program }

// Rounds returns the statistics of the rounds evaluated so far.
func (d *Driver) Rounds() []RoundStats { return d.rounds }

// Relation returns a derived relation by name, or nil.
func (d *Driver) Relation(name string) *Variable {
	for _, v := range d.program.Relations() {
		if v.Name() == name {
			return v
		}
	}
	return nil
}

// InsertAssignment adds the fact A(src,dst).
func (d *Driver) InsertAssignment(src, dst Node) error {
	if d.state != Loading {
		return fmt.Errorf("%w: insert in state %s", ErrInvalidState, d.state)
	}
	d.base.insertAssignment(src, dst)
	return nil
}

// InsertDereference adds the fact D(src,dst).
func (d *Driver) InsertDereference(src, dst Node) error {
	if d.state != Loading {
		return fmt.Errorf("%w: insert in state %s", ErrInvalidState, d.state)
	}
	d.base.insertDereference(src, dst)
	return nil
}

// Close ends loading: the facts are routed to their owners and become the delta of the first
// round.
func (d *Driver) Close() error {
	if d.state != Loading {
		return fmt.Errorf("%w: close in state %s", ErrInvalidState, d.state)
	}
	if err := d.base.close(d.scope); err != nil {
		return fmt.Errorf("closing input: %w", err)
	}
	d.scope.commit()
	d.state = Iterating

	d.log.V(2).Info("input closed", "assignments", d.base.Assignment.Delta().Len(),
		"dereferences", d.base.Dereference.Delta().Len())
	return nil
}

// Step evaluates one round. The driver converges when, over all workers, no collection carries a
// delta for the next round.
func (d *Driver) Step() error {
	if d.state != Iterating {
		return fmt.Errorf("%w: step in state %s", ErrInvalidState, d.state)
	}

	start := time.Now()
	if err := d.program.Round(d.scope); err != nil {
		return fmt.Errorf("round %d: %w", len(d.rounds)+1, err)
	}
	d.scope.commit()

	// layout: fresh tuples per relation, sizes per relation, pending flag
	rels := d.program.Relations()
	local := make([]int64, 2*len(rels)+1)
	for i, v := range rels {
		local[i] = int64(v.Forward().Delta().Len())
		local[len(rels)+i] = int64(v.Len())
	}
	if d.scope.pending() {
		local[2*len(rels)] = 1
	}

	global, err := d.scope.Sum(local)
	if err != nil {
		return fmt.Errorf("round %d: counting: %w", len(d.rounds)+1, err)
	}

	stats := RoundStats{
		Round:    len(d.rounds) + 1,
		Derived:  make(map[string]int64, len(rels)),
		Sizes:    make(map[string]int64, len(rels)),
		Duration: time.Since(start),
	}
	for i, v := range rels {
		stats.Derived[v.Name()] = global[i]
		stats.Sizes[v.Name()] = global[len(rels)+i]
	}
	d.rounds = append(d.rounds, stats)
	d.record(stats)

	if global[2*len(rels)] == 0 {
		d.state = Converged
	}

	if d.scope.Index() == 0 {
		d.log.V(1).Info("round complete", "round", stats.Round, "derived", stats.Derived,
			"sizes", stats.Sizes, "duration", stats.Duration, "converged", d.state == Converged)
	}

	return nil
}

// Run steps the driver until it converges or the context of the scope is canceled.
func (d *Driver) Run() error {
	for d.state != Converged {
		if err := d.scope.Context().Err(); err != nil {
			return err
		}
		if err := d.Step(); err != nil {
			return err
		}
	}
	return nil
}

// record exports the stats of a round. Counts are global, so only the first worker records them.
func (d *Driver) record(stats RoundStats) {
	if d.metrics == nil || d.scope.Index() != 0 {
		return
	}
	d.metrics.ObserveRound(stats.Duration)
	for name, n := range stats.Derived {
		d.metrics.AddDerived(name, n)
	}
	for name, n := range stats.Sizes {
		d.metrics.SetRelationSize(name, n)
	}
}
