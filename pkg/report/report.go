// Package report writes the milestones and the relation counts of a run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/l7mp/pointsto/pkg/analysis"
	"github.com/l7mp/pointsto/pkg/config"
	"github.com/l7mp/pointsto/pkg/fixpoint"
	"github.com/l7mp/pointsto/pkg/loader"
)

// Milestone is a named point in time of a run.
type Milestone struct {
	Name    string  `json:"name"`
	Elapsed float64 `json:"elapsedSeconds"`
}

// Document is the JSON report.
type Document struct {
	RunID      string                `json:"runId"`
	Variant    config.Variant        `json:"variant"`
	Workers    int                   `json:"workers"`
	Milestones []Milestone           `json:"milestones"`
	Relations  map[string]int        `json:"relations"`
	Rounds     []fixpoint.RoundStats `json:"rounds"`
	Loaded     loader.Stats          `json:"loaded"`
	Exchanged  int64                 `json:"exchanged"`
}

// Writer prints the milestones of a run as they occur and the relation counts at the end. In
// the JSON format all output is held back until the result is written.
type Writer struct {
	w          io.Writer
	format     config.Format
	mu         sync.Mutex
	milestones []Milestone
}

var _ analysis.Observer = &Writer{}

// New creates a reporter.
func New(w io.Writer, format config.Format) *Writer {
	return &Writer{w: w, format: format}
}

// Milestone records a milestone.
func (r *Writer) Milestone(name string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.milestones = append(r.milestones, Milestone{Name: name, Elapsed: elapsed.Seconds()})
	if r.format == config.FormatText {
		fmt.Fprintf(r.w, "%v:\t%s\n", elapsed, name)
	}
}

// Milestones returns the milestones recorded so far.
func (r *Writer) Milestones() []Milestone {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Milestone(nil), r.milestones...)
}

// Result writes the relation counts of a result.
func (r *Writer) Result(res *analysis.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.format == config.FormatJSON {
		doc := Document{
			RunID:      res.RunID,
			Variant:    res.Variant,
			Workers:    res.Workers,
			Milestones: r.milestones,
			Relations:  res.Counts(),
			Rounds:     res.Rounds,
			Loaded:     res.Loaded,
			Exchanged:  res.Exchanged,
		}
		encoder := json.NewEncoder(r.w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	}

	for _, rel := range res.Relations {
		if _, err := fmt.Fprintf(r.w, "%s: %d\n", rel.Name, rel.Len()); err != nil {
			return err
		}
	}
	return nil
}
