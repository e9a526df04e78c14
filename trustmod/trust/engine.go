package trust

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

// New accounts start fully trusted; weighted penalties pull the score down.
const NeutralScore = 1.0

// ScoreStore is the persistence boundary for trust scores and their audit
// trail. Implementations must be safe for concurrent use.
type ScoreStore interface {
	GetTrustScore(ctx context.Context, userID uint) (float64, error)
	PersistTrustScore(ctx context.Context, userID uint, score float64) error
	AppendTrustHistory(ctx context.Context, entry *models.TrustScoreHistory) error
}

// Engine owns all trust score mutation. Updates for a single user are
// serialized through a per-user mutex; different users never contend on a
// shared lock.
type Engine struct {
	Logger  *slog.Logger
	Store   ScoreStore
	Weights map[Action]ActionWeight

	// invoked after a successful score change, eg to purge author caches
	OnScoreChange func(userID uint)

	locks     *xsync.MapOf[uint, *sync.Mutex]
	lastKnown *expirable.LRU[uint, float64]
}

func NewEngine(store ScoreStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Logger:    logger.With("system", "trust"),
		Store:     store,
		Weights:   DefaultWeights(),
		locks:     xsync.NewMapOf[uint, *sync.Mutex](),
		lastKnown: expirable.NewLRU[uint, float64](50_000, nil, 15*time.Minute),
	}
}

func (e *Engine) userLock(userID uint) *sync.Mutex {
	mu, _ := e.locks.LoadOrCompute(userID, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	return mu
}

func clampScore(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// ApplyAction looks up the fixed weight for a discrete behavioral action,
// applies it to the user's score (clamped to [0,1]), appends a history entry,
// and returns the new score.
func (e *Engine) ApplyAction(ctx context.Context, userID uint, action Action, relatedEntityType string, relatedEntityID *uint) (float64, error) {
	w, ok := e.Weights[action]
	if !ok {
		return 0, fmt.Errorf("unknown trust action: %s", action)
	}
	entry := &models.TrustScoreHistory{
		UserID:            userID,
		Delta:             w.Delta,
		Reason:            w.Reason,
		RelatedEntityType: relatedEntityType,
		RelatedEntityID:   relatedEntityID,
	}
	score, err := e.applyDelta(ctx, userID, w.Delta, entry)
	if err != nil {
		return 0, err
	}
	actionAppliedCount.WithLabelValues(string(action)).Inc()
	e.Logger.Info("trust action applied", "uid", userID, "action", action, "delta", w.Delta, "score", score)
	return score, nil
}

// ApplyWeightedDelta applies an analytics-sourced adjustment: the effective
// delta is rawDelta scaled by the signal's confidence. Same clamp, history, and
// persistence contract as ApplyAction.
func (e *Engine) ApplyWeightedDelta(ctx context.Context, userID uint, rawDelta float64, reason models.TrustReason, confidence float64, isAutomatic bool, metadata map[string]any) (float64, error) {
	effective := rawDelta * confidence
	meta := ""
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			e.Logger.Warn("dropping unencodable trust metadata", "uid", userID, "err", err)
		} else {
			meta = string(raw)
		}
	}
	entry := &models.TrustScoreHistory{
		UserID:      userID,
		Delta:       effective,
		Reason:      reason,
		IsAutomatic: isAutomatic,
		Metadata:    meta,
	}
	score, err := e.applyDelta(ctx, userID, effective, entry)
	if err != nil {
		return 0, err
	}
	weightedDeltaCount.WithLabelValues(reason.String()).Inc()
	e.Logger.Info("trust delta applied", "uid", userID, "delta", effective, "reason", reason, "score", score, "automatic", isAutomatic)
	return score, nil
}

func (e *Engine) applyDelta(ctx context.Context, userID uint, delta float64, entry *models.TrustScoreHistory) (float64, error) {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	current, err := e.Store.GetTrustScore(ctx, userID)
	if err != nil {
		storeErrorCount.WithLabelValues("read").Inc()
		return 0, fmt.Errorf("reading trust score: %w", err)
	}

	next := clampScore(current + delta)
	if next != current+delta {
		clampCount.Inc()
	}

	if err := e.Store.PersistTrustScore(ctx, userID, next); err != nil {
		storeErrorCount.WithLabelValues("write").Inc()
		return 0, fmt.Errorf("persisting trust score: %w", err)
	}
	e.lastKnown.Add(userID, next)

	entry.Score = next
	if err := e.Store.AppendTrustHistory(ctx, entry); err != nil {
		// the score change stands; losing an audit row is logged, not fatal
		storeErrorCount.WithLabelValues("history").Inc()
		e.Logger.Error("failed to append trust history", "uid", userID, "err", err)
	}

	if e.OnScoreChange != nil {
		e.OnScoreChange(userID)
	}
	return next, nil
}

// GetCurrentScore returns the latest persisted score. Read failures degrade
// rather than propagate: the last known value is returned if cached. When the
// store is down and nothing is cached, ok is false and callers must apply the
// policy fallback decision set instead of treating the returned score as real.
func (e *Engine) GetCurrentScore(ctx context.Context, userID uint) (score float64, ok bool) {
	score, err := e.Store.GetTrustScore(ctx, userID)
	if err != nil {
		storeErrorCount.WithLabelValues("read").Inc()
		if cached, found := e.lastKnown.Get(userID); found {
			e.Logger.Warn("trust score read failed, using last known value", "uid", userID, "err", err)
			return cached, true
		}
		e.Logger.Warn("trust score read failed, score unavailable", "uid", userID, "err", err)
		return NeutralScore, false
	}
	e.lastKnown.Add(userID, score)
	return score, true
}
