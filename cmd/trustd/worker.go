package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/RussellLuo/slidingwindow"

	"github.com/michaeltrefry/Yapplr-sub003/models"
	"github.com/michaeltrefry/Yapplr-sub003/store"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/contentanalysis"
)

// reportSink persists moderation reports through the content store.
type reportSink struct {
	store store.ContentStore
}

func (s *reportSink) EnqueueReport(ctx context.Context, r contentanalysis.Report) error {
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		tags = []byte("{}")
	}
	return s.store.CreateReport(ctx, &models.ModerationReport{
		PostID:    r.PostID,
		AuthorID:  r.AuthorID,
		RiskScore: r.RiskScore,
		Priority:  r.Priority,
		Tags:      string(tags),
	})
}

func windowFunc() (slidingwindow.Window, slidingwindow.StopFunc) {
	return slidingwindow.NewLocalWindow()
}

type WorkerConfig struct {
	Logger    *slog.Logger
	Interval  time.Duration
	PerSecond int64
	PerHour   int64
}

// Worker polls for recently created posts and runs them through moderation.
// Throughput is capped by per-second and per-hour sliding windows so a burst
// of new content does not saturate the analysis sidecar.
type Worker struct {
	logger    *slog.Logger
	store     store.ContentStore
	moderator *contentanalysis.Moderator
	interval  time.Duration
	perSec    *slidingwindow.Limiter
	perHour   *slidingwindow.Limiter
	lastScan  time.Time
}

func NewWorker(st store.ContentStore, moderator *contentanalysis.Moderator, config WorkerConfig) *Worker {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	perSec, _ := slidingwindow.NewLimiter(time.Second, config.PerSecond, windowFunc)
	perHour, _ := slidingwindow.NewLimiter(time.Hour, config.PerHour, windowFunc)
	return &Worker{
		logger:    logger.With("system", "worker"),
		store:     st,
		moderator: moderator,
		interval:  config.Interval,
		perSec:    perSec,
		perHour:   perHour,
		lastScan:  time.Now().Add(-config.Interval),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting moderation worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("moderation worker shutting down")
			return nil
		case <-ticker.C:
			if err := w.scan(ctx); err != nil {
				w.logger.Error("moderation scan failed", "err", err)
			}
		}
	}
}

func (w *Worker) scan(ctx context.Context) error {
	since := w.lastScan
	scanStart := time.Now()

	posts, err := w.store.ListRecentPosts(ctx, since, 0)
	if err != nil {
		// keep lastScan so the window is retried next tick
		return err
	}
	w.lastScan = scanStart
	if len(posts) == 0 {
		return nil
	}
	w.logger.Debug("scanning new posts", "count", len(posts))

	for _, post := range posts {
		if err := w.waitForBudget(ctx); err != nil {
			return err
		}
		workerPostsScanned.Inc()
		if _, err := w.moderator.ReviewPost(ctx, post); err != nil {
			workerScanErrors.Inc()
			w.logger.Warn("failed to moderate post", "postID", post.ID, "err", err)
		}
	}
	return nil
}

// waitForBudget blocks until both sliding windows admit another analysis.
func (w *Worker) waitForBudget(ctx context.Context) error {
	for !(w.perSec.Allow() && w.perHour.Allow()) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}
