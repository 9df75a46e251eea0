// Package metrics holds the prometheus collectors shared by the engine, adapters and HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconcile outcomes
const (
	OutcomeOK          = "ok"
	OutcomeNoReference = "no_reference"
	OutcomeError       = "error"
)

// Observation outcomes per platform
const (
	ObservationFound    = "found"
	ObservationNotFound = "not_found"
	ObservationFailed   = "failed"
)

var (
	ReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_reconcile_total",
			Help: "Total number of reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	ObservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_observations_total",
			Help: "Price observations gathered per platform by outcome",
		},
		[]string{"platform", "outcome"},
	)

	AdapterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricelens_adapter_duration_seconds",
			Help:    "Time spent gathering one platform's observation",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"platform"},
	)

	ListingCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_listing_cache_total",
			Help: "Listing cache lookups by result",
		},
		[]string{"result"},
	)

	KnowledgeBaseEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricelens_knowledge_base_entries",
			Help: "Number of entries in the last loaded knowledge base snapshot",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricelens_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)
)
