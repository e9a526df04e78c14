package visibility

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var feedFilteredCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "visibility_posts_filtered",
	Help: "Number of candidate posts excluded from feeds",
}, []string{"feed"})

var authorCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "visibility_author_cache_hits",
	Help: "Number of author snapshot cache hits",
})

var authorCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "visibility_author_cache_misses",
	Help: "Number of author snapshot cache misses",
})
