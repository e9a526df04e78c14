package policy

// Step functions from a trust score to moderation decisions. Every ladder is an
// ordered table of (lower bound, value) pairs scanned from the highest bound
// down; a tier is selected when score >= bound. All functions are total over
// [0,1] and side-effect free, so any number of goroutines may evaluate them
// concurrently against score snapshots.

type VisibilityLevel int

const (
	VisibilityHidden  = VisibilityLevel(0)
	VisibilityLimited = VisibilityLevel(1)
	VisibilityReduced = VisibilityLevel(2)
	VisibilityNormal  = VisibilityLevel(3)
	VisibilityFull    = VisibilityLevel(4)
)

func (vl VisibilityLevel) String() string {
	switch vl {
	case VisibilityHidden:
		return "hidden"
	case VisibilityLimited:
		return "limited_visibility"
	case VisibilityReduced:
		return "reduced_visibility"
	case VisibilityNormal:
		return "normal_visibility"
	case VisibilityFull:
		return "full_visibility"
	default:
		return "<unknown>"
	}
}

// Fallback decisions used when the current trust score cannot be read. These
// fail open: a store outage must never lock legitimate users out.
const (
	FallbackMultiplier            = 1.0
	FallbackPriority              = 3
	FallbackReportReviewThreshold = 0.5
	FallbackVisibility            = VisibilityNormal
)

type Step[T any] struct {
	Bound float64 `json:"bound"`
	Value T       `json:"value"`
}

type Policy struct {
	multiplier      []Step[float64]
	priority        []Step[int]
	visibility      []Step[VisibilityLevel]
	reportThreshold []Step[float64]
	autoHideBelow   float64
	actions         map[Action]float64
}

// Default returns the stock policy tables.
func Default() *Policy {
	return &Policy{
		multiplier: []Step[float64]{
			{Bound: 0.8, Value: 2.0},
			{Bound: 0.5, Value: 1.5},
			{Bound: 0.3, Value: 1.0},
			{Bound: 0.1, Value: 0.5},
			{Bound: 0.0, Value: 0.25},
		},
		priority: []Step[int]{
			{Bound: 0.8, Value: 5},
			{Bound: 0.6, Value: 4},
			{Bound: 0.3, Value: 3},
			{Bound: 0.1, Value: 2},
			{Bound: 0.0, Value: 1},
		},
		visibility: []Step[VisibilityLevel]{
			{Bound: 0.8, Value: VisibilityFull},
			{Bound: 0.5, Value: VisibilityNormal},
			{Bound: 0.3, Value: VisibilityReduced},
			{Bound: 0.1, Value: VisibilityLimited},
			{Bound: 0.0, Value: VisibilityHidden},
		},
		reportThreshold: []Step[float64]{
			{Bound: 0.8, Value: 0.3},
			{Bound: 0.5, Value: 0.5},
			{Bound: 0.3, Value: 0.7},
			{Bound: 0.0, Value: 0.9},
		},
		autoHideBelow: 0.1,
		actions:       defaultActionThresholds(),
	}
}

func scan[T any](steps []Step[T], score float64) T {
	for _, s := range steps {
		if score >= s.Bound {
			return s.Value
		}
	}
	// tables always terminate with a 0.0 bound, but scores are clamped to
	// [0,1] anyway
	return steps[len(steps)-1].Value
}

// RateLimitMultiplier scales per-operation base rate limits. Monotonically
// non-decreasing in score by table construction.
func (p *Policy) RateLimitMultiplier(score float64) float64 {
	return scan(p.multiplier, score)
}

func (p *Policy) ShouldAutoHide(score float64) bool {
	return score < p.autoHideBelow
}

// ModerationPriority ranks review-queue urgency: 1 is most urgent, 5 least.
func (p *Policy) ModerationPriority(score float64) int {
	return scan(p.priority, score)
}

func (p *Policy) ContentVisibilityLevel(score float64) VisibilityLevel {
	return scan(p.visibility, score)
}

// ReportReviewThreshold is an inverse ladder: reports against high-trust users
// escalate sooner (lower threshold).
func (p *Policy) ReportReviewThreshold(score float64) float64 {
	return scan(p.reportThreshold, score)
}
