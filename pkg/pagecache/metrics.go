package pagecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeDisabled = "disabled"
	outcomeSkipped  = "skipped"
	outcomeHit      = "hit"
	outcomeMiss     = "miss"

	writeStored   = "stored"
	writeFailed   = "failed"
	writeRejected = "rejected"
)

var (
	// Requests counts requests seen by the middleware by outcome
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagecache_requests_total",
			Help: "Total number of requests handled by the page cache, by outcome",
		},
		[]string{"outcome"}, // "disabled", "skipped", "hit", "miss"
	)

	// Writes counts background store writes by result
	Writes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagecache_writes_total",
			Help: "Total number of background page writes, by result",
		},
		[]string{"result"}, // "stored", "failed", "rejected"
	)

	// DeviceFallbacks counts requests whose device class could not be detected
	DeviceFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagecache_device_fallbacks_total",
			Help: "Total number of device detection failures that fell back to desktop",
		},
	)
)
