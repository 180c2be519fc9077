// Package metrics exposes Prometheus instrumentation for the
// communications graph store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccountsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commgraph_accounts_created_total",
			Help: "Total number of account identities created",
		},
	)

	AccountInstancesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commgraph_account_instances_created_total",
			Help: "Total number of account instance marker artifacts created",
		},
	)

	RelationshipsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commgraph_relationships_added_total",
			Help: "Total number of relationship edges inserted",
		},
	)

	AccountTypeCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commgraph_account_type_cache_hits_total",
			Help: "Account type registry cache hits",
		},
	)

	AccountTypeCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commgraph_account_type_cache_misses_total",
			Help: "Account type registry cache misses",
		},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commgraph_query_duration_seconds",
			Help:    "Time taken by graph queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)
