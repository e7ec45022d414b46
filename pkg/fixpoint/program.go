package fixpoint

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/l7mp/pointsto/pkg/dbsp"
)

// Join is an incremental join between two collections sharing their key domain.
type Join struct {
	op          *dbsp.IncrementalBinaryJoinOp[Node, Node]
	left, right *Collection
}

// NewJoin creates a join of two collections. The projection receives the shared key and the two
// values, and returns the output tuple.
func NewJoin(name string, left, right *Collection, project Projector) Join {
	return Join{
		op:    dbsp.NewIncrementalBinaryJoin(name, project),
		left:  left,
		right: right,
	}
}

// Name returns the name of the join operator.
func (j Join) Name() string { return j.op.Name() }

// Left returns the left input of the join.
func (j Join) Left() *Collection { return j.left }

// Right returns the right input of the join.
func (j Join) Right() *Collection { return j.right }

// String returns the join as "name: left ⋈ right".
func (j Join) String() string {
	return fmt.Sprintf("%s: %s ⋈ %s", j.op.Name(), j.left.Name(), j.right.Name())
}

// Stage is one step of a round: the union of a set of joins and linear inputs that flows into a
// single target. The target is either an intermediate collection, which is staged for the current
// round so that later stages can join it, or a variable, which deduplicates its input and
// receives the new tuples in the next round.
type Stage struct {
	Name string
	// Joins are evaluated on the current round of their inputs.
	Joins []Join
	// Linear inputs contribute their current delta unchanged.
	Linear []*Collection
	// Arrange is the intermediate target of the stage.
	Arrange *Collection
	// Variable is the derived relation target of the stage.
	Variable *Variable
}

// Target returns the name of the collection the stage writes.
func (st *Stage) Target() string {
	if st.Arrange != nil {
		return st.Arrange.Name()
	}
	return st.Variable.Name()
}

// Program is the ordered list of stages evaluated once per round, together with the derived
// relations it maintains.
type Program struct {
	name      string
	stages    []Stage
	relations []*Variable
}

// NewProgram creates and validates a program.
func NewProgram(name string, relations []*Variable, stages ...Stage) (*Program, error) {
	p := &Program{name: name, stages: stages, relations: relations}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the name of the program.
func (p *Program) Name() string { return p.name }

// Stages returns the stages of the program in evaluation order.
func (p *Program) Stages() []Stage { return p.stages }

// Relations returns the derived relations of the program in reporting order.
func (p *Program) Relations() []*Variable { return p.relations }

// Validate checks that every stage has exactly one target, that every intermediate collection is
// produced by exactly one stage and that it is produced before any stage reads it.
func (p *Program) Validate() error {
	if len(p.relations) == 0 {
		return errors.New("program maintains no relation")
	}

	intermediates := sets.New[*Collection]()
	for i := range p.stages {
		st := &p.stages[i]
		if (st.Arrange == nil) == (st.Variable == nil) {
			return fmt.Errorf("stage %q must have exactly one target", st.Name)
		}
		if len(st.Joins) == 0 && len(st.Linear) == 0 {
			return fmt.Errorf("stage %q has no input", st.Name)
		}
		if st.Arrange != nil {
			if intermediates.Has(st.Arrange) {
				return fmt.Errorf("stage %q: collection %s is produced more than once", st.Name, st.Arrange.Name())
			}
			intermediates.Insert(st.Arrange)
		}
	}

	produced := sets.New[*Collection]()
	for _, st := range p.stages {
		for _, j := range st.Joins {
			for _, c := range []*Collection{j.left, j.right} {
				if intermediates.Has(c) && !produced.Has(c) {
					return fmt.Errorf("stage %q reads %s before it is produced", st.Name, c.Name())
				}
			}
		}
		for _, c := range st.Linear {
			if intermediates.Has(c) && !produced.Has(c) {
				return fmt.Errorf("stage %q reads %s before it is produced", st.Name, c.Name())
			}
		}
		if st.Arrange != nil {
			produced.Insert(st.Arrange)
		}
	}

	return nil
}

// Round evaluates every stage once.
func (p *Program) Round(s *Scope) error {
	for i := range p.stages {
		if err := p.evalStage(s, &p.stages[i]); err != nil {
			return fmt.Errorf("stage %q: %w", p.stages[i].Name, err)
		}
	}
	return nil
}

func (p *Program) evalStage(s *Scope, st *Stage) error {
	inputs := make([]Updates, 0, len(st.Joins)+len(st.Linear))
	for _, j := range st.Joins {
		res, err := j.op.Process(j.left, j.right)
		if err != nil {
			return err
		}
		inputs = append(inputs, res)
	}
	for _, c := range st.Linear {
		inputs = append(inputs, c.Delta().Batch())
	}

	out, err := dbsp.NewPlus[Node, Node](len(inputs)).Process(inputs...)
	if err != nil {
		return err
	}

	if st.Arrange != nil {
		return s.Route(st.Arrange, out)
	}
	return st.Variable.Feed(s, out)
}

// Plan returns a human-readable execution plan.
func (p *Program) Plan() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Execution Plan (%s):\n", p.name)
	for i, st := range p.stages {
		kind := "distinct"
		if st.Arrange != nil {
			kind = "arrange"
		}
		fmt.Fprintf(&b, "%d. %s -> %s (%s)\n", i+1, st.Name, st.Target(), kind)
		for _, j := range st.Joins {
			fmt.Fprintf(&b, "   %s\n", j)
		}
		for _, c := range st.Linear {
			fmt.Fprintf(&b, "   + %s\n", c.Name())
		}
	}
	names := make([]string, len(p.relations))
	for i, v := range p.relations {
		names[i] = v.Name()
	}
	fmt.Fprintf(&b, "Relations: %s\n", strings.Join(names, ", "))
	return b.String()
}
