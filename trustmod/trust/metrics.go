package trust

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionAppliedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trust_actions_applied",
	Help: "Number of discrete trust actions applied",
}, []string{"action"})

var weightedDeltaCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trust_weighted_deltas_applied",
	Help: "Number of analytics-sourced weighted deltas applied",
}, []string{"reason"})

var clampCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trust_score_clamps",
	Help: "Number of score updates saturated at a boundary",
})

var storeErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trust_store_errors",
	Help: "Number of trust score store failures",
}, []string{"op"})
