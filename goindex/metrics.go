package goindex

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bodiesIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrefgen_bodies_indexed_total",
			Help: "Bodies traversed by the indexer, by declaration kind.",
		},
		[]string{"kind"},
	)

	bodiesStopped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xrefgen_bodies_stopped_total",
			Help: "Body traversals stopped before completion.",
		},
	)

	packagesIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xrefgen_packages_indexed_total",
			Help: "Packages whose bodies were indexed.",
		},
	)

	occurrencesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrefgen_occurrences_total",
			Help: "Occurrences recorded, by syntactic kind.",
		},
		[]string{"kind"},
	)

	rolesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xrefgen_occurrence_roles_total",
			Help: "Roles carried by recorded occurrences.",
		},
		[]string{"role"},
	)

	bodyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xrefgen_body_index_seconds",
			Help:    "Time to lower and index one body.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
)
