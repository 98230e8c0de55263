package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourceResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_source_results_total",
			Help: "Total number of raw listings returned per source",
		},
		[]string{"source"},
	)

	sourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_source_duration_seconds",
			Help:    "Source call duration in seconds, retries included",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"source", "outcome"}, // outcome: success|failure
	)

	sourcesPendingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_sources_pending_total",
			Help: "Total number of sources excluded because they missed the aggregation deadline",
		},
		[]string{"source"},
	)

	aggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_aggregation_duration_seconds",
			Help:    "SearchAll duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	listingsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_listings_returned",
			Help:    "Number of listings returned by SearchAll",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	enrichTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_enrichment_total",
			Help: "Total number of description enrichment attempts",
		},
		[]string{"result"}, // result: success|failure|skipped
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"result"}, // result: hit|miss
	)

	listingsSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_listings_saved_total",
			Help: "Total number of new listings persisted",
		},
	)
)
