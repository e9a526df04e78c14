package contentanalysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/michaeltrefry/Yapplr-sub003/models"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/policy"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/trust"
)

// TrustAdjuster is the slice of the trust engine the moderator needs.
type TrustAdjuster interface {
	GetCurrentScore(ctx context.Context, userID uint) (score float64, ok bool)
	ApplyWeightedDelta(ctx context.Context, userID uint, rawDelta float64, reason models.TrustReason, confidence float64, isAutomatic bool, metadata map[string]any) (float64, error)
}

// PostHider suppresses a post with a moderation reason.
type PostHider interface {
	HidePost(ctx context.Context, postID uint, reason models.HiddenReason) error
}

// Report is a queue entry for human review. Priority follows the author's
// standing: low-trust authors get reviewed first.
type Report struct {
	PostID    uint
	AuthorID  uint
	Tags      Matches
	RiskScore float64
	Priority  int
}

type ReportSink interface {
	EnqueueReport(ctx context.Context, r Report) error
}

type Outcome struct {
	Result       *Result
	Hidden       bool
	HiddenReason models.HiddenReason
	Reported     bool
}

// Moderator glues the analyzer to content and trust side effects: high-risk
// posts are hidden and penalize the author's trust score, medium-risk posts
// go to the review queue.
type Moderator struct {
	Logger   *slog.Logger
	Analyzer Analyzer
	Trust    TrustAdjuster
	Content  PostHider
	Reports  ReportSink
	Policy   *policy.Policy
	Weights  map[trust.Action]trust.ActionWeight
}

func NewModerator(analyzer Analyzer, trustEngine TrustAdjuster, content PostHider, reports ReportSink, pol *policy.Policy, logger *slog.Logger) *Moderator {
	if logger == nil {
		logger = slog.Default()
	}
	if pol == nil {
		pol = policy.Default()
	}
	return &Moderator{
		Logger:   logger.With("system", "moderation"),
		Analyzer: analyzer,
		Trust:    trustEngine,
		Content:  content,
		Reports:  reports,
		Policy:   pol,
		Weights:  trust.DefaultWeights(),
	}
}

// hiddenReasonFor maps matched categories to a hide reason: spam-tagged posts
// are distinguished from safety and violation content.
func hiddenReasonFor(matches Matches) models.HiddenReason {
	if contains(matches[CategoryQuality], "Spam") {
		return models.HiddenReasonSpamDetection
	}
	if _, ok := matches[CategorySafety]; ok {
		return models.HiddenReasonMaliciousContent
	}
	if _, ok := matches[CategoryViolation]; ok {
		return models.HiddenReasonMaliciousContent
	}
	return models.HiddenReasonContentModeration
}

func (m *Moderator) penaltyFor(reason models.HiddenReason) trust.ActionWeight {
	if reason == models.HiddenReasonSpamDetection {
		return m.Weights[trust.ActionSpamDetected]
	}
	return m.Weights[trust.ActionContentHidden]
}

// ReviewPost analyzes one post and applies the configured side effects. The
// trust penalty is weighted by the risk score, so a borderline-high post costs
// less than an unambiguous one.
func (m *Moderator) ReviewPost(ctx context.Context, post models.Post) (*Outcome, error) {
	if post.Hidden {
		postsModeratedCount.WithLabelValues("skipped").Inc()
		return &Outcome{Hidden: true, HiddenReason: post.HiddenReason}, nil
	}

	result, err := m.Analyzer.Moderate(ctx, post.Text)
	if err != nil {
		postsModeratedCount.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("analyzing post %d: %w", post.ID, err)
	}
	out := &Outcome{Result: result, HiddenReason: models.HiddenReasonNone}

	if result.RiskLevel == RiskHigh {
		reason := hiddenReasonFor(result.SuggestedTags)
		if err := m.Content.HidePost(ctx, post.ID, reason); err != nil {
			postsModeratedCount.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("hiding post %d: %w", post.ID, err)
		}
		out.Hidden = true
		out.HiddenReason = reason

		w := m.penaltyFor(reason)
		_, err := m.Trust.ApplyWeightedDelta(ctx, post.AuthorID, w.Delta, w.Reason, result.RiskScore, true, map[string]any{
			"postId":    post.ID,
			"riskLevel": string(result.RiskLevel),
			"tags":      result.SuggestedTags,
		})
		if err != nil {
			m.Logger.Error("failed to penalize author for hidden post", "uid", post.AuthorID, "postID", post.ID, "err", err)
		}
		postsModeratedCount.WithLabelValues("hidden").Inc()
		m.Logger.Warn("post hidden by content moderation",
			"postID", post.ID,
			"uid", post.AuthorID,
			"reason", reason.String(),
			"riskScore", result.RiskScore,
		)
		return out, nil
	}

	if result.RiskLevel == RiskMedium || result.RequiresReview {
		if m.Reports != nil {
			priority := policy.FallbackPriority
			if score, ok := m.Trust.GetCurrentScore(ctx, post.AuthorID); ok {
				priority = m.Policy.ModerationPriority(score)
			}
			report := Report{
				PostID:    post.ID,
				AuthorID:  post.AuthorID,
				Tags:      result.SuggestedTags,
				RiskScore: result.RiskScore,
				Priority:  priority,
			}
			if err := m.Reports.EnqueueReport(ctx, report); err != nil {
				m.Logger.Error("failed to enqueue moderation report", "postID", post.ID, "err", err)
			} else {
				out.Reported = true
			}
		}
		postsModeratedCount.WithLabelValues("reported").Inc()
		return out, nil
	}

	postsModeratedCount.WithLabelValues("clean").Inc()
	return out, nil
}
