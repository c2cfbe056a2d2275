// Package metrics exposes Prometheus counters for the auction engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's instruments on a private registry, so tests can
// create as many instances as they like without duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	BidsRecorded         prometheus.Counter
	BidsRejected         prometheus.Counter
	AuctionsCreated      prometheus.Counter
	AuctionsCompleted    prometheus.Counter
	AuctionsExtended     prometheus.Counter
	AssignmentsGenerated prometheus.Counter
	FinalizeDuration     prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Metrics{
		registry: registry,
		BidsRecorded: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "choreauction",
			Name:      "bids_recorded_total",
			Help:      "Total number of bids accepted",
		}),
		BidsRejected: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "choreauction",
			Name:      "bids_rejected_total",
			Help:      "Total number of bids rejected by validation",
		}),
		AuctionsCreated: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "choreauction",
			Name:      "auctions_created_total",
			Help:      "Total number of auctions opened",
		}),
		AuctionsCompleted: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "choreauction",
			Name:      "auctions_completed_total",
			Help:      "Total number of auctions finalized with a winner",
		}),
		AuctionsExtended: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "choreauction",
			Name:      "auctions_extended_total",
			Help:      "Total number of no-bid auctions extended with raised points",
		}),
		AssignmentsGenerated: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "choreauction",
			Name:      "assignments_generated_total",
			Help:      "Total number of assignment rows created from recurrence rules",
		}),
		FinalizeDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "choreauction",
			Name:      "finalize_duration_seconds",
			Help:      "Duration of finalization sweeps",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
