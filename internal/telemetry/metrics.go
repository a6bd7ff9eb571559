package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchOutcomes counts page fetches by result: hit_local, hit_shared, miss,
	// error, abandoned.
	FetchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legis_fetch_outcomes_total",
		Help: "Upstream page fetches by outcome",
	}, []string{"outcome"})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "legis_fetch_duration_seconds",
		Help:    "Duration of upstream network fetches",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	})

	AssembleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "legis_assemble_duration_seconds",
		Help:    "Duration of document assembly",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
	}, []string{"result"})

	AssembleSections = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "legis_assemble_sections",
		Help:    "Number of TOC items per assembled document",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	// ChangeSubmissions counts submit outcomes: created, noop, invalid, conflict, error.
	ChangeSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legis_change_submissions_total",
		Help: "Proposed change submissions by outcome",
	}, []string{"outcome"})
)
