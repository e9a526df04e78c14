package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var workerPostsScanned = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trustd_worker_posts_scanned",
	Help: "Number of posts run through the background moderation worker",
})

var workerScanErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trustd_worker_scan_errors",
	Help: "Number of posts that failed moderation in the background worker",
})
