// Package metrics exports the run statistics of a points-to analysis as Prometheus metrics. The
// analysis is a batch job, so the metrics live in a private registry that is written to a
// textfile at the end of the run instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pointsto"

// Metrics holds the collectors of a run. All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	rounds        prometheus.Counter
	roundDuration prometheus.Histogram
	derived       *prometheus.CounterVec
	sizes         *prometheus.GaugeVec
	loaded        *prometheus.CounterVec
	exchanged     prometheus.Counter
}

// New creates the collectors in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// rounds counts the fixpoint rounds evaluated.
		rounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total fixpoint rounds evaluated",
		}),

		roundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Wall-clock duration of a fixpoint round",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),

		// derived counts new tuples per relation.
		// Labels: relation (VF, MA, VA, VFD)
		derived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "derived_tuples_total",
			Help:      "Total new tuples derived per relation",
		}, []string{"relation"}),

		sizes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relation_size",
			Help:      "Current number of tuples per relation",
		}, []string{"relation"}),

		// loaded counts input edges per kind.
		// Labels: kind (assignment, dereference)
		loaded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loaded_edges_total",
			Help:      "Total input edges loaded per kind",
		}, []string{"kind"}),

		exchanged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanged_tuples_total",
			Help:      "Total tuples routed to a worker other than their producer",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRound records a completed round.
func (m *Metrics) ObserveRound(d time.Duration) {
	if m == nil {
		return
	}
	m.rounds.Inc()
	m.roundDuration.Observe(d.Seconds())
}

// AddDerived adds to the number of new tuples of a relation.
func (m *Metrics) AddDerived(relation string, n int64) {
	if m == nil {
		return
	}
	m.derived.WithLabelValues(relation).Add(float64(n))
}

// SetRelationSize sets the current size of a relation.
func (m *Metrics) SetRelationSize(relation string, n int64) {
	if m == nil {
		return
	}
	m.sizes.WithLabelValues(relation).Set(float64(n))
}

// AddLoaded adds to the number of loaded edges of a kind.
func (m *Metrics) AddLoaded(kind string, n int) {
	if m == nil {
		return
	}
	m.loaded.WithLabelValues(kind).Add(float64(n))
}

// AddExchanged adds to the number of tuples moved between workers.
func (m *Metrics) AddExchanged(n int64) {
	if m == nil {
		return
	}
	m.exchanged.Add(float64(n))
}

// WriteToTextfile writes the metrics in the text exposition format, suitable for the textfile
// collector of the node exporter.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
