package analysis

import (
	"fmt"

	"github.com/l7mp/pointsto/pkg/config"
	"github.com/l7mp/pointsto/pkg/fixpoint"
)

// Relation names.
const (
	ValueFlow      = "VF"
	MemoryAlias    = "MA"
	ValueAlias     = "VA"
	ValueFlowDeref = "VFD"
)

// projectValues maps a match (x, a, b) to (a, b).
func projectValues(_ fixpoint.Node, left, right fixpoint.Node) (fixpoint.Node, fixpoint.Node, bool) {
	return left, right, true
}

// rekeyByRight maps a match (x, a, y) to (y, a), keying the output by the right value.
func rekeyByRight(_ fixpoint.Node, left, right fixpoint.Node) (fixpoint.Node, fixpoint.Node, bool) {
	return right, left, true
}

// NewRuleSet returns the rule set of a variant.
func NewRuleSet(variant config.Variant) (fixpoint.RuleSet, error) {
	switch variant {
	case config.Unoptimized:
		return UnoptimizedRules{}, nil
	case config.Optimized:
		return OptimizedRules{}, nil
	}
	return nil, fmt.Errorf("%w: unknown variant %q", config.ErrInvalidConfig, variant)
}

// valueFlowStages returns the stages deriving VF, common to both variants:
//
//	VF(n,n) for every node n of A or D
//	VF(a,b) :- A(a,x), VF(x,b)
//	VF(a,b) :- A(a,x), MA(x,y), VF(y,b)
func valueFlowStages(s *fixpoint.Scope, base *fixpoint.Base, vf, ma *fixpoint.Variable) []fixpoint.Stage {
	// A(a,x),MA(x,y) keyed by y
	am := s.Arrange("A⋈MA")

	return []fixpoint.Stage{{
		Name:    "A(a,x),MA(x,y)",
		Joins:   []fixpoint.Join{fixpoint.NewJoin("A⋈MA", base.Assignment, ma.Forward(), rekeyByRight)},
		Arrange: am,
	}, {
		Name: "VF",
		Joins: []fixpoint.Join{
			fixpoint.NewJoin("A⋈VF", base.Assignment, vf.Forward(), projectValues),
			fixpoint.NewJoin("A⋈MA⋈VF", am, vf.Forward(), projectValues),
		},
		Linear:   []*fixpoint.Collection{base.Nodes},
		Variable: vf,
	}}
}

// UnoptimizedRules maintains VF, MA and VA:
//
//	VA(a,b) :- VF(x,a), VF(x,b)
//	VA(a,b) :- VF(x,a), MA(x,y), VF(y,b)
//	MA(a,b) :- D(x,a), VA(x,y), D(y,b)
type UnoptimizedRules struct{}

func (UnoptimizedRules) Name() string { return string(config.Unoptimized) }

func (r UnoptimizedRules) Compile(s *fixpoint.Scope, base *fixpoint.Base) (*fixpoint.Program, error) {
	vf := s.NewVariable(ValueFlow, false)
	ma := s.NewVariable(MemoryAlias, false)
	va := s.NewVariable(ValueAlias, false)

	// VF(x,a),MA(x,y) keyed by y
	vm := s.Arrange("VF⋈MA")
	// VA(x,y),D(x,a) keyed by y
	vd := s.Arrange("VA⋈D")

	stages := valueFlowStages(s, base, vf, ma)
	stages = append(stages, fixpoint.Stage{
		Name:    "VF(x,a),MA(x,y)",
		Joins:   []fixpoint.Join{fixpoint.NewJoin("VF⋈MA", vf.Forward(), ma.Forward(), rekeyByRight)},
		Arrange: vm,
	}, fixpoint.Stage{
		Name: "VA",
		Joins: []fixpoint.Join{
			fixpoint.NewJoin("VF⋈VF", vf.Forward(), vf.Forward(), projectValues),
			fixpoint.NewJoin("VF⋈MA⋈VF", vm, vf.Forward(), projectValues),
		},
		Variable: va,
	}, fixpoint.Stage{
		Name:    "VA(x,y),D(x,a)",
		Joins:   []fixpoint.Join{fixpoint.NewJoin("VA⋈D", va.Forward(), base.Dereference, projectValues)},
		Arrange: vd,
	}, fixpoint.Stage{
		Name:     "MA",
		Joins:    []fixpoint.Join{fixpoint.NewJoin("VA⋈D⋈D", vd, base.Dereference, projectValues)},
		Variable: ma,
	})

	return fixpoint.NewProgram(r.Name(), []*fixpoint.Variable{vf, ma, va}, stages...)
}

// OptimizedRules maintains VF and MA without materializing VA:
//
//	VFD(a,b) :- VF(a,x), D(x,b)
//	MA(a,b)  :- VFD(y,a), VFD(y,b)
//	MA(a,b)  :- MA(x,y), VFD(x,a), VFD(y,b)
type OptimizedRules struct{}

func (OptimizedRules) Name() string { return string(config.Optimized) }

func (r OptimizedRules) Compile(s *fixpoint.Scope, base *fixpoint.Base) (*fixpoint.Program, error) {
	// VFD joins VF on its second column
	vf := s.NewVariable(ValueFlow, true)
	ma := s.NewVariable(MemoryAlias, false)

	vfd := s.Arrange(ValueFlowDeref)
	// MA(x,y),VFD(x,a) keyed by y
	mv := s.Arrange("MA⋈VFD")

	stages := valueFlowStages(s, base, vf, ma)
	stages = append(stages, fixpoint.Stage{
		Name:    ValueFlowDeref,
		Joins:   []fixpoint.Join{fixpoint.NewJoin("VFᵀ⋈D", vf.Reverse(), base.Dereference, projectValues)},
		Arrange: vfd,
	}, fixpoint.Stage{
		Name:    "MA(x,y),VFD(x,a)",
		Joins:   []fixpoint.Join{fixpoint.NewJoin("MA⋈VFD", ma.Forward(), vfd, projectValues)},
		Arrange: mv,
	}, fixpoint.Stage{
		Name: "MA",
		Joins: []fixpoint.Join{
			fixpoint.NewJoin("VFD⋈VFD", vfd, vfd, projectValues),
			fixpoint.NewJoin("MA⋈VFD⋈VFD", mv, vfd, projectValues),
		},
		Variable: ma,
	})

	return fixpoint.NewProgram(r.Name(), []*fixpoint.Variable{vf, ma}, stages...)
}
