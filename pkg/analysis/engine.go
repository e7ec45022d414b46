// Package analysis runs an Andersen-style points-to analysis over a set of data-parallel workers.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/l7mp/pointsto/pkg/config"
	"github.com/l7mp/pointsto/pkg/exchange"
	"github.com/l7mp/pointsto/pkg/fixpoint"
	"github.com/l7mp/pointsto/pkg/loader"
	"github.com/l7mp/pointsto/pkg/metrics"
)

// Milestones reported by the first worker.
const (
	MilestoneAssembled = "Dataflow assembled"
	MilestoneLoaded    = "Data loaded"
	MilestoneComplete  = "Computation complete"
)

// Observer receives the milestones of a run.
type Observer interface {
	Milestone(name string, elapsed time.Duration)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(name string, elapsed time.Duration)

func (f ObserverFunc) Milestone(name string, elapsed time.Duration) { f(name, elapsed) }

// Source feeds the edges owned by a worker to fn.
type Source func(ld *loader.Loader, fn func(loader.Edge) error) (loader.Stats, error)

// FileSource reads the edges from a file.
func FileSource(path string) Source {
	return func(ld *loader.Loader, fn func(loader.Edge) error) (loader.Stats, error) {
		return ld.ScanFile(path, fn)
	}
}

// EdgeSource serves a fixed set of edges.
func EdgeSource(edges []loader.Edge) Source {
	return func(ld *loader.Loader, fn func(loader.Edge) error) (loader.Stats, error) {
		return ld.Filter(edges, fn)
	}
}

// Engine runs an analysis. Logger, Metrics and Observer are optional.
type Engine struct {
	Config   config.Config
	Logger   logr.Logger
	Metrics  *metrics.Metrics
	Observer Observer
}

// Run analyzes the input file of the configuration.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.Config.Validate(); err != nil {
		return nil, err
	}
	return e.RunSource(ctx, FileSource(e.Config.InputPath))
}

// Analyze runs a variant over in-memory edges.
func Analyze(ctx context.Context, variant config.Variant, workers int, edges []loader.Edge) (*Result, error) {
	e := &Engine{Config: config.Config{Variant: variant, Workers: workers, Format: config.FormatText}}
	return e.RunSource(ctx, EdgeSource(edges))
}

// worker is the outcome of a single worker.
type worker struct {
	relations []Relation
	rounds    []fixpoint.RoundStats
	loaded    loader.Stats
}

// RunSource runs the analysis on the edges of a source. Every worker consumes the source and keeps
// the edges it owns. The first error of any worker cancels the others.
func (e *Engine) RunSource(ctx context.Context, source Source) (*Result, error) {
	start := time.Now()
	peers := e.Config.Workers

	rules, err := NewRuleSet(e.Config.Variant)
	if err != nil {
		return nil, err
	}

	tuples, err := exchange.New[fixpoint.Update](peers)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidConfig, err.Error())
	}
	counts, err := exchange.New[[]int64](peers)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidConfig, err.Error())
	}

	runID := uuid.New().String()
	log := e.logger().WithName("engine").WithValues("run", runID)
	log.Info("starting analysis", "variant", rules.Name(), "workers", peers)

	results := make([]worker, peers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < peers; i++ {
		g.Go(func() error {
			res, err := e.runWorker(gctx, i, rules, source, tuples.Endpoint(i), counts.Endpoint(i), log, start)
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.V(1).Info("analysis failed", "error", err.Error())
		return nil, err
	}

	res := &Result{
		RunID:     runID,
		Variant:   e.Config.Variant,
		Workers:   peers,
		Rounds:    results[0].rounds,
		Exchanged: tuples.Routed(),
		Elapsed:   time.Since(start),
	}
	parts := make([][]Relation, peers)
	for i, w := range results {
		parts[i] = w.relations
		res.Loaded = addStats(res.Loaded, w.loaded)
	}
	res.Relations = mergeRelations(parts)

	e.Metrics.AddExchanged(res.Exchanged)
	log.Info("analysis complete", "rounds", len(res.Rounds), "counts", res.Counts(),
		"elapsed", res.Elapsed)

	return res, nil
}

func (e *Engine) runWorker(ctx context.Context, index int, rules fixpoint.RuleSet, source Source,
	tuples *exchange.Endpoint[fixpoint.Update], counts *exchange.Endpoint[[]int64],
	log logr.Logger, start time.Time) (worker, error) {
	scope, err := fixpoint.NewScope(ctx, tuples, counts, log)
	if err != nil {
		return worker{}, err
	}

	driver, err := fixpoint.NewDriver(scope, rules, e.Metrics)
	if err != nil {
		return worker{}, err
	}
	e.milestone(index, MilestoneAssembled, start)

	ld, err := loader.New(index, scope.Peers(), scope.Logger())
	if err != nil {
		return worker{}, err
	}

	stats, err := source(ld, func(edge loader.Edge) error {
		if edge.Kind == loader.KindDereference {
			return driver.InsertDereference(edge.Src, edge.Dst)
		}
		return driver.InsertAssignment(edge.Src, edge.Dst)
	})
	if err != nil {
		return worker{}, fmt.Errorf("loading input: %w", err)
	}
	e.Metrics.AddLoaded(loader.KindAssignment.String(), stats.Assignments)
	e.Metrics.AddLoaded(loader.KindDereference.String(), stats.Dereferences)

	if err := driver.Close(); err != nil {
		return worker{}, err
	}
	e.milestone(index, MilestoneLoaded, start)

	if err := driver.Run(); err != nil {
		return worker{}, err
	}
	e.milestone(index, MilestoneComplete, start)

	relations := make([]Relation, 0, len(driver.Program().Relations()))
	for _, v := range driver.Program().Relations() {
		relations = append(relations, Relation{Name: v.Name(), Tuples: v.Tuples()})
	}

	return worker{relations: relations, rounds: driver.Rounds(), loaded: stats}, nil
}

func (e *Engine) milestone(index int, name string, start time.Time) {
	if index != 0 || e.Observer == nil {
		return
	}
	e.Observer.Milestone(name, time.Since(start))
}

func (e *Engine) logger() logr.Logger {
	if e.Logger.GetSink() == nil {
		return logr.Discard()
	}
	return e.Logger
}

// Compile builds the program of a variant on a single-worker scope, for inspection.
func Compile(variant config.Variant) (*fixpoint.Program, error) {
	rules, err := NewRuleSet(variant)
	if err != nil {
		return nil, err
	}

	tuples, err := exchange.New[fixpoint.Update](1)
	if err != nil {
		return nil, err
	}
	counts, err := exchange.New[[]int64](1)
	if err != nil {
		return nil, err
	}

	scope, err := fixpoint.NewScope(context.Background(), tuples.Endpoint(0), counts.Endpoint(0), logr.Discard())
	if err != nil {
		return nil, err
	}

	driver, err := fixpoint.NewDriver(scope, rules, nil)
	if err != nil {
		return nil, err
	}

	return driver.Program(), nil
}

// Explain returns the execution plan of a variant.
func Explain(variant config.Variant) (string, error) {
	p, err := Compile(variant)
	if err != nil {
		return "", err
	}
	return p.Plan(), nil
}
