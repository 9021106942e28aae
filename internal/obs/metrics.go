// Package obs wires the index's operations up to Prometheus counters,
// histograms and gauges.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters/histograms/gauges for one index instance.
// Each instance gets its own Registry rather than registering against
// the global default, so opening more than one index in the same
// process (as the test suite does) never collides on metric names.
type Metrics struct {
	Registry *prometheus.Registry

	Inserts       prometheus.Counter
	Deletes       prometheus.Counter
	Updates       prometheus.Counter
	SearchQueries prometheus.Counter
	SearchErrors  prometheus.Counter
	SearchLatency prometheus.Histogram
	IndexSize     prometheus.Gauge
}

// NewMetrics creates a fresh, independently-registered metrics set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Inserts: factory.NewCounter(prometheus.CounterOpts{
			Name: "zvdb_vector_inserts_total",
			Help: "Total vector insertions",
		}),
		Deletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "zvdb_vector_deletes_total",
			Help: "Total vector deletions",
		}),
		Updates: factory.NewCounter(prometheus.CounterOpts{
			Name: "zvdb_vector_updates_total",
			Help: "Total vector updates",
		}),
		SearchQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "zvdb_search_queries_total",
			Help: "Total search queries",
		}),
		SearchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "zvdb_search_errors_total",
			Help: "Total search errors",
		}),
		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "zvdb_search_latency_seconds",
			Help: "Search latency in seconds",
		}),
		IndexSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zvdb_index_size",
			Help: "Current number of live vectors in the index",
		}),
	}
}
