package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goblin_quote_requests_total",
			Help: "Total number of quote requests by outcome code",
		},
		[]string{"code"},
	)

	LiveQuotes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "goblin_live_quotes",
		Help: "Current number of unexpired quote records",
	})

	// Swap metrics
	SwapRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goblin_swap_requests_total",
			Help: "Total number of swap requests by outcome code",
		},
		[]string{"code"},
	)

	SwapDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "goblin_swap_duration_seconds",
		Help:    "Swap execution duration from validation to terminal state",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 90},
	})

	SwapStates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goblin_swap_state_transitions_total",
			Help: "Total number of swap state transitions",
		},
		[]string{"state"},
	)

	DiagnosticSimulations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goblin_diagnostic_simulations_total",
			Help: "Post-failure simulations by result",
		},
		[]string{"result"},
	)

	// Catalog metrics
	CatalogRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goblin_catalog_refreshes_total",
			Help: "Token catalog refreshes by source and result",
		},
		[]string{"source", "result"},
	)

	CatalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "goblin_catalog_size",
		Help: "Number of tokens in the cached catalog",
	})
)
