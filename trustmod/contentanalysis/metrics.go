package contentanalysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var analyzedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "contentanalysis_texts_analyzed",
	Help: "Number of texts analyzed by source and risk level",
}, []string{"source", "level"})

var remoteRequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "contentanalysis_remote_requests",
	Help: "Number of sidecar moderation requests by status",
}, []string{"status"})

var remoteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "contentanalysis_remote_duration_seconds",
	Help:    "Duration of sidecar moderation requests",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
})

var remoteFallbackCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "contentanalysis_remote_fallbacks",
	Help: "Number of times remote analysis failed and local patterns were used",
})

var postsModeratedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "contentanalysis_posts_moderated",
	Help: "Number of posts run through moderation by outcome",
}, []string{"outcome"})
