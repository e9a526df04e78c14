package contentanalysis

import (
	"context"
)

type RiskLevel string

const (
	RiskHigh    = RiskLevel("HIGH")
	RiskMedium  = RiskLevel("MEDIUM")
	RiskLow     = RiskLevel("LOW")
	RiskMinimal = RiskLevel("MINIMAL")
)

// Matches holds matched tag names keyed by category. Tag order within a
// category follows the pattern table.
type Matches map[Category][]string

type Sentiment struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Result struct {
	SuggestedTags  Matches
	RiskScore      float64
	RiskLevel      RiskLevel
	RequiresReview bool
	Sentiment      *Sentiment
}

// AnalyzeText runs the local pattern classifier over a piece of text.
func AnalyzeText(text string) Matches {
	matches := Matches{}
	for _, cat := range categories {
		var tags []string
		for _, tp := range tagPatterns[cat] {
			for _, re := range tp.Patterns {
				if re.MatchString(text) {
					tags = append(tags, tp.Tag)
					break
				}
			}
		}
		if cat == CategoryQuality && hasRepeatedRun(text, repeatedRunThreshold) && !contains(tags, "Spam") {
			tags = append(tags, "Spam")
		}
		if len(tags) > 0 {
			matches[cat] = tags
		}
	}
	return matches
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// RiskScore folds pattern matches and an optional negative-sentiment signal
// into a score in [0, 1]. Each matched tag contributes its category weight
// scaled by 0.1; negative sentiment contributes up to 0.3.
func RiskScore(matches Matches, sentiment *Sentiment) (float64, RiskLevel) {
	score := 0.0
	if sentiment != nil && sentiment.Label == "NEGATIVE" {
		score += sentiment.Confidence * 0.3
	}
	for cat, tags := range matches {
		score += float64(len(tags)) * categoryWeights[cat] * 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, levelFor(score)
}

func levelFor(score float64) RiskLevel {
	switch {
	case score >= 0.8:
		return RiskHigh
	case score >= 0.5:
		return RiskMedium
	case score >= 0.2:
		return RiskLow
	default:
		return RiskMinimal
	}
}

// RequiresReview is true for medium-plus risk, and always for Violation or
// Safety matches regardless of score.
func RequiresReview(matches Matches, score float64) bool {
	if score >= 0.5 {
		return true
	}
	_, violation := matches[CategoryViolation]
	_, safety := matches[CategorySafety]
	return violation || safety
}

// Analyzer produces a moderation result for a piece of text.
type Analyzer interface {
	Moderate(ctx context.Context, text string) (*Result, error)
}

// LocalAnalyzer runs the in-process pattern classifier. It never errors.
type LocalAnalyzer struct{}

var _ Analyzer = (*LocalAnalyzer)(nil)

func (LocalAnalyzer) Moderate(ctx context.Context, text string) (*Result, error) {
	matches := AnalyzeText(text)
	score, level := RiskScore(matches, nil)
	analyzedCount.WithLabelValues("local", string(level)).Inc()
	return &Result{
		SuggestedTags:  matches,
		RiskScore:      score,
		RiskLevel:      level,
		RequiresReview: RequiresReview(matches, score),
	}, nil
}
