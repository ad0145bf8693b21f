package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsCreated tracks connections established by role
	ConnectionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagecache_store_connections_total",
			Help: "Total number of store connections created",
		},
		[]string{"role"}, // "read", "write"
	)

	// StoreHits tracks Get calls that returned a value
	StoreHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagecache_store_hits_total",
			Help: "Total number of store reads that found a value",
		},
	)

	// StoreMisses tracks Get calls that returned nothing
	StoreMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagecache_store_misses_total",
			Help: "Total number of store reads that found nothing",
		},
	)

	// StoreRefreshes tracks forced refresh deletions
	StoreRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagecache_store_refreshes_total",
			Help: "Total number of keys deleted by a refresh request",
		},
	)

	// StoreErrors tracks failed store operations
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagecache_store_errors_total",
			Help: "Total number of store operation errors",
		},
		[]string{"operation"},
	)
)
