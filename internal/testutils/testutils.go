package testutils

// Pair is an expected relation tuple.
type Pair [2]uint32

// Scenario is an input with its expected relations after convergence. A nil relation is not
// checked.
type Scenario struct {
	Name  string
	Input string
	VF    []Pair
	MA    []Pair
	VA    []Pair
}

var (
	// AssignThenDeref: 0 is assigned from 1, and 1 is dereferenced into 2. MA(2,2) is derived from
	// D(1,2), VA(1,1), D(1,2).
	AssignThenDeref = Scenario{
		Name:  "assignment followed by dereference",
		Input: "0 1 a\n1 2 d\n",
		VF:    []Pair{{0, 0}, {0, 1}, {1, 1}, {2, 2}},
		MA:    []Pair{{2, 2}},
		VA:    []Pair{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {2, 2}},
	}

	// AssignCycle: 0 and 1 are assigned from each other.
	AssignCycle = Scenario{
		Name:  "assignment cycle",
		Input: "0 1 a\n1 0 a\n",
		VF:    []Pair{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
		MA:    []Pair{},
		VA:    []Pair{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
	}

	// CommentsOnly has no facts at all.
	CommentsOnly = Scenario{
		Name:  "comments only",
		Input: "# a comment\n\n#1 2 a\n   \n",
		VF:    []Pair{},
		MA:    []Pair{},
		VA:    []Pair{},
	}

	// UnknownType drops the line of unknown type.
	UnknownType = Scenario{
		Name:  "unknown edge type",
		Input: "0 1 x\n2 3 a\n",
		VF:    []Pair{{2, 2}, {2, 3}, {3, 3}},
		MA:    []Pair{},
	}

	// Scenarios lists the inputs with known results.
	Scenarios = []Scenario{AssignThenDeref, AssignCycle, CommentsOnly, UnknownType}

	// MalformedSrc fails to parse before any fact is loaded.
	MalformedSrc = "x y a\n"

	// MissingType fails on the type field. The line is owned by worker 1 of 2.
	MissingType = "1 2\n"
)
