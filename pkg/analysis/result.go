package analysis

import (
	"slices"
	"time"

	"github.com/l7mp/pointsto/pkg/config"
	"github.com/l7mp/pointsto/pkg/dbsp"
	"github.com/l7mp/pointsto/pkg/fixpoint"
	"github.com/l7mp/pointsto/pkg/loader"
)

// Relation is the final content of a derived relation, merged over all workers.
type Relation struct {
	Name   string           `json:"name"`
	Tuples []fixpoint.Tuple `json:"-"`
}

// Len returns the number of tuples in the relation.
func (r *Relation) Len() int { return len(r.Tuples) }

// Contains checks whether the relation holds (a,b).
func (r *Relation) Contains(a, b fixpoint.Node) bool {
	_, found := slices.BinarySearchFunc(r.Tuples, fixpoint.Tuple{Key: a, Val: b}, dbsp.CompareTuples[fixpoint.Node, fixpoint.Node])
	return found
}

// Result is the outcome of a run.
type Result struct {
	RunID     string                `json:"runId"`
	Variant   config.Variant        `json:"variant"`
	Workers   int                   `json:"workers"`
	Relations []Relation            `json:"relations"`
	Rounds    []fixpoint.RoundStats `json:"rounds"`
	Loaded    loader.Stats          `json:"loaded"`
	Exchanged int64                 `json:"exchanged"`
	Elapsed   time.Duration         `json:"elapsed"`
}

// Relation returns a relation by name, or nil if the variant does not maintain it.
func (r *Result) Relation(name string) *Relation {
	for i := range r.Relations {
		if r.Relations[i].Name == name {
			return &r.Relations[i]
		}
	}
	return nil
}

// Counts returns the cardinality of every relation.
func (r *Result) Counts() map[string]int {
	counts := make(map[string]int, len(r.Relations))
	for _, rel := range r.Relations {
		counts[rel.Name] = rel.Len()
	}
	return counts
}

// mergeRelations collects the partitions of every relation held by the workers. Every tuple is
// owned by exactly one worker, so the union needs no deduplication.
func mergeRelations(parts [][]Relation) []Relation {
	if len(parts) == 0 {
		return nil
	}

	merged := make([]Relation, len(parts[0]))
	for i := range merged {
		merged[i].Name = parts[0][i].Name
		for _, part := range parts {
			merged[i].Tuples = append(merged[i].Tuples, part[i].Tuples...)
		}
		slices.SortFunc(merged[i].Tuples, dbsp.CompareTuples[fixpoint.Node, fixpoint.Node])
	}
	return merged
}

func addStats(a, b loader.Stats) loader.Stats {
	return loader.Stats{
		Lines:        max(a.Lines, b.Lines),
		Comments:     max(a.Comments, b.Comments),
		Owned:        a.Owned + b.Owned,
		Assignments:  a.Assignments + b.Assignments,
		Dereferences: a.Dereferences + b.Dereferences,
		Dropped:      a.Dropped + b.Dropped,
	}
}
