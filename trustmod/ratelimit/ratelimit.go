package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/michaeltrefry/Yapplr-sub003/models"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/policy"
)

// Write-side operations subject to rate limiting.
type Operation string

const (
	OpCreatePost    = Operation("create_post")
	OpCreateComment = Operation("create_comment")
	OpLikeContent   = Operation("like_content")
	OpSendMessage   = Operation("send_message")
	OpReportContent = Operation("report_content")
	OpFollowUser    = Operation("follow_user")
)

// Violation types are surfaced distinctly so callers can produce different
// user-facing messaging for a burst, a sustained-rate denial, and a block.
const (
	ViolationBurst   = "burst"
	ViolationRate    = "rate"
	ViolationBlocked = "blocked"
)

type Result struct {
	Allowed       bool
	Remaining     int
	ResetTime     time.Time
	ViolationType string
	RetryAfter    time.Duration
}

type OpConfig struct {
	BaseLimit   int
	Window      time.Duration
	BurstLimit  int
	BurstWindow time.Duration
}

type Config struct {
	Enabled            bool
	Operations         map[Operation]OpConfig
	ViolationThreshold int
	ViolationWindow    time.Duration
	AutoBlockDuration  time.Duration
	ExemptRoles        []models.UserRole
	EntryTTL           time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Operations: map[Operation]OpConfig{
			OpCreatePost:    {BaseLimit: 10, Window: time.Hour, BurstLimit: 3, BurstWindow: 10 * time.Second},
			OpCreateComment: {BaseLimit: 30, Window: time.Hour, BurstLimit: 5, BurstWindow: 10 * time.Second},
			OpLikeContent:   {BaseLimit: 200, Window: time.Hour, BurstLimit: 20, BurstWindow: 10 * time.Second},
			OpSendMessage:   {BaseLimit: 60, Window: time.Hour, BurstLimit: 10, BurstWindow: 10 * time.Second},
			OpReportContent: {BaseLimit: 20, Window: time.Hour, BurstLimit: 5, BurstWindow: 10 * time.Second},
			OpFollowUser:    {BaseLimit: 50, Window: time.Hour, BurstLimit: 10, BurstWindow: 10 * time.Second},
		},
		ViolationThreshold: 15,
		ViolationWindow:    time.Hour,
		AutoBlockDuration:  2 * time.Hour,
		ExemptRoles:        []models.UserRole{models.UserRoleModerator, models.UserRoleAdmin},
		EntryTTL:           24 * time.Hour,
	}
}

// ScoreSource supplies the current trust score for window scaling. It never
// errors; ok is false when the score is unavailable (store down, nothing
// cached), in which case the limiter uses the policy fallback multiplier.
type ScoreSource interface {
	GetCurrentScore(ctx context.Context, userID uint) (score float64, ok bool)
}

// RoleSource is optional; when present, configured roles bypass rate limiting.
type RoleSource interface {
	GetRole(ctx context.Context, userID uint) (models.UserRole, error)
}

type entryKey struct {
	UserID uint
	Op     Operation
}

// per-(user,operation) counter state; all fields guarded by mu
type entry struct {
	mu         sync.Mutex
	requests   []time.Time
	burst      []time.Time
	violations []time.Time
	lastSeen   time.Time
}

// Limiter gates write-side operations per (user, operation). Counter state is
// held in a concurrent map with per-entry locking: concurrent checks for the
// same key serialize on the entry mutex, different keys never contend. Block
// state lives in a separate BlockStore so it survives counter loss.
type Limiter struct {
	Logger *slog.Logger

	cfg    Config
	policy *policy.Policy
	scores ScoreSource
	roles  RoleSource
	blocks BlockStore

	entries *xsync.MapOf[entryKey, *entry]
	now     func() time.Time

	totalChecks  atomic.Int64
	totalAllowed atomic.Int64
	deniedBurst  atomic.Int64
	deniedRate   atomic.Int64
	deniedBlock  atomic.Int64
	autoBlocks   atomic.Int64
}

func NewLimiter(cfg Config, pol *policy.Policy, scores ScoreSource, blocks BlockStore, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	if pol == nil {
		pol = policy.Default()
	}
	if blocks == nil {
		blocks = NewMemBlockStore()
	}
	return &Limiter{
		Logger:  logger.With("system", "ratelimit"),
		cfg:     cfg,
		policy:  pol,
		scores:  scores,
		blocks:  blocks,
		entries: xsync.NewMapOf[entryKey, *entry](),
		now:     time.Now,
	}
}

// SetRoleSource enables role exemptions.
func (l *Limiter) SetRoleSource(roles RoleSource) {
	l.roles = roles
}

func (l *Limiter) entryFor(userID uint, op Operation) *entry {
	e, _ := l.entries.LoadOrCompute(entryKey{UserID: userID, Op: op}, func() *entry {
		return &entry{}
	})
	return e
}

func pruneWindow(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}

func (e *entry) prune(now time.Time, opCfg OpConfig, violationWindow time.Duration) {
	e.requests = pruneWindow(e.requests, now.Add(-opCfg.Window))
	e.burst = pruneWindow(e.burst, now.Add(-opCfg.BurstWindow))
	e.violations = pruneWindow(e.violations, now.Add(-violationWindow))
}

func (l *Limiter) isExempt(ctx context.Context, userID uint) bool {
	if l.roles == nil || len(l.cfg.ExemptRoles) == 0 {
		return false
	}
	role, err := l.roles.GetRole(ctx, userID)
	if err != nil {
		return false
	}
	for _, r := range l.cfg.ExemptRoles {
		if role == r {
			return true
		}
	}
	return false
}

// effectiveLimit scales the base per-operation limit by the trust multiplier,
// floored at 1 so low-trust users are throttled, never fully locked out by
// the multiplier alone.
func (l *Limiter) effectiveLimit(ctx context.Context, userID uint, opCfg OpConfig) int {
	mult := policy.FallbackMultiplier
	if l.scores != nil {
		if score, ok := l.scores.GetCurrentScore(ctx, userID); ok {
			mult = l.policy.RateLimitMultiplier(score)
		}
	}
	limit := int(float64(opCfg.BaseLimit) * mult)
	if limit < 1 {
		limit = 1
	}
	return limit
}

// CheckRateLimit evaluates, in order: burst window, active block, trust-scaled
// rolling window. It does not consume quota; callers pair it with
// RecordRequest on acceptance.
func (l *Limiter) CheckRateLimit(ctx context.Context, userID uint, op Operation) Result {
	l.totalChecks.Add(1)

	opCfg, ok := l.cfg.Operations[op]
	if !l.cfg.Enabled || !ok {
		l.totalAllowed.Add(1)
		return Result{Allowed: true, Remaining: -1}
	}
	if l.isExempt(ctx, userID) {
		l.totalAllowed.Add(1)
		checkCount.WithLabelValues(string(op), "exempt").Inc()
		return Result{Allowed: true, Remaining: -1}
	}

	now := l.now()
	e := l.entryFor(userID, op)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSeen = now
	e.prune(now, opCfg, l.cfg.ViolationWindow)

	// burst check runs before anything else and never consults the trust score
	if len(e.burst) >= opCfg.BurstLimit {
		l.deniedBurst.Add(1)
		l.recordViolation(ctx, e, userID, op, ViolationBurst, now)
		checkCount.WithLabelValues(string(op), ViolationBurst).Inc()
		return Result{
			Allowed:       false,
			Remaining:     0,
			ResetTime:     now.Add(opCfg.BurstWindow),
			ViolationType: ViolationBurst,
			RetryAfter:    opCfg.BurstWindow,
		}
	}

	if block, err := l.blocks.Get(ctx, userID); err != nil {
		// block-store reads fail open, but never silently: the block may
		// still exist and will be re-checked next call
		blockStoreErrorCount.WithLabelValues("get").Inc()
		l.Logger.Error("block store read failed, failing open", "uid", userID, "err", err)
	} else if block != nil && block.Until.After(now) {
		l.deniedBlock.Add(1)
		checkCount.WithLabelValues(string(op), ViolationBlocked).Inc()
		return Result{
			Allowed:       false,
			Remaining:     0,
			ResetTime:     block.Until,
			ViolationType: ViolationBlocked,
			RetryAfter:    block.Until.Sub(now),
		}
	}

	limit := l.effectiveLimit(ctx, userID, opCfg)
	if len(e.requests) >= limit {
		reset := e.requests[0].Add(opCfg.Window)
		l.deniedRate.Add(1)
		l.recordViolation(ctx, e, userID, op, ViolationRate, now)
		checkCount.WithLabelValues(string(op), ViolationRate).Inc()
		return Result{
			Allowed:       false,
			Remaining:     0,
			ResetTime:     reset,
			ViolationType: ViolationRate,
			RetryAfter:    reset.Sub(now),
		}
	}

	l.totalAllowed.Add(1)
	checkCount.WithLabelValues(string(op), "allowed").Inc()
	remaining := limit - len(e.requests) - 1
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   true,
		Remaining: remaining,
		ResetTime: now.Add(opCfg.Window),
	}
}

// RecordRequest appends the current timestamp to both windows. Call it for
// every accepted operation.
func (l *Limiter) RecordRequest(ctx context.Context, userID uint, op Operation) {
	opCfg, ok := l.cfg.Operations[op]
	if !l.cfg.Enabled || !ok {
		return
	}
	now := l.now()
	e := l.entryFor(userID, op)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSeen = now
	e.prune(now, opCfg, l.cfg.ViolationWindow)
	e.requests = append(e.requests, now)
	e.burst = append(e.burst, now)
}

// recordViolation is called with e.mu held.
func (l *Limiter) recordViolation(ctx context.Context, e *entry, userID uint, op Operation, violationType string, now time.Time) {
	violationCount.WithLabelValues(string(op), violationType).Inc()
	e.violations = append(e.violations, now)
	if l.cfg.ViolationThreshold <= 0 || len(e.violations) < l.cfg.ViolationThreshold {
		return
	}
	e.violations = e.violations[:0]
	until := now.Add(l.cfg.AutoBlockDuration)
	if err := l.blocks.Set(ctx, userID, Block{Until: until, Reason: "repeated rate limit violations", Auto: true}); err != nil {
		blockStoreErrorCount.WithLabelValues("set").Inc()
		l.Logger.Error("failed to persist auto-block", "uid", userID, "err", err)
		return
	}
	l.autoBlocks.Add(1)
	autoBlockCount.Inc()
	l.Logger.Warn("auto-blocked user for rate limit violations", "uid", userID, "operation", op, "until", until)
}

// BlockUser is the administrative override, independent of violation
// accounting.
func (l *Limiter) BlockUser(ctx context.Context, userID uint, duration time.Duration, reason string) error {
	until := l.now().Add(duration)
	if err := l.blocks.Set(ctx, userID, Block{Until: until, Reason: reason}); err != nil {
		blockStoreErrorCount.WithLabelValues("set").Inc()
		return err
	}
	l.Logger.Info("user blocked", "uid", userID, "until", until, "reason", reason)
	return nil
}

// UnblockUser clears any block immediately.
func (l *Limiter) UnblockUser(ctx context.Context, userID uint) error {
	if err := l.blocks.Clear(ctx, userID); err != nil {
		blockStoreErrorCount.WithLabelValues("clear").Inc()
		return err
	}
	l.Logger.Info("user unblocked", "uid", userID)
	return nil
}

// GetStats returns a point-in-time snapshot of limiter activity.
func (l *Limiter) GetStats() map[string]any {
	return map[string]any{
		"active_entries": l.entries.Size(),
		"total_checks":   l.totalChecks.Load(),
		"total_allowed":  l.totalAllowed.Load(),
		"denied_burst":   l.deniedBurst.Load(),
		"denied_rate":    l.deniedRate.Load(),
		"denied_blocked": l.deniedBlock.Load(),
		"auto_blocks":    l.autoBlocks.Load(),
	}
}

// StartJanitor sweeps idle counter entries until the context is cancelled.
// Blocks are unaffected: they live in the block store, not in counter entries.
func (l *Limiter) StartJanitor(ctx context.Context) {
	interval := l.cfg.EntryTTL / 4
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

func (l *Limiter) sweep() {
	cutoff := l.now().Add(-l.cfg.EntryTTL)
	removed := 0
	l.entries.Range(func(k entryKey, e *entry) bool {
		e.mu.Lock()
		idle := e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if idle {
			l.entries.Delete(k)
			removed++
		}
		return true
	})
	if removed > 0 {
		l.Logger.Debug("swept idle rate limit entries", "removed", removed)
	}
	activeEntriesGauge.Set(float64(l.entries.Size()))
}
