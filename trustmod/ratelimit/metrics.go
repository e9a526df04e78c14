package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var checkCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratelimit_checks",
	Help: "Number of rate limit checks by outcome",
}, []string{"operation", "outcome"})

var violationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratelimit_violations",
	Help: "Number of rate limit violations recorded",
}, []string{"operation", "type"})

var autoBlockCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ratelimit_auto_blocks",
	Help: "Number of automatic blocks triggered by violation accounting",
})

var blockStoreErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratelimit_block_store_errors",
	Help: "Number of block store failures",
}, []string{"op"})

var activeEntriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ratelimit_active_entries",
	Help: "Number of live per-(user,operation) counter entries",
})
