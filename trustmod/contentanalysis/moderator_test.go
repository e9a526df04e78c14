package contentanalysis

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltrefry/Yapplr-sub003/models"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/policy"
)

type fixedAnalyzer struct {
	result *Result
	err    error
}

func (a *fixedAnalyzer) Moderate(ctx context.Context, text string) (*Result, error) {
	return a.result, a.err
}

type deltaCall struct {
	UserID     uint
	RawDelta   float64
	Reason     models.TrustReason
	Confidence float64
}

type fakeTrust struct {
	score       float64
	unavailable bool
	deltas      []deltaCall
}

func (f *fakeTrust) GetCurrentScore(ctx context.Context, userID uint) (float64, bool) {
	return f.score, !f.unavailable
}

func (f *fakeTrust) ApplyWeightedDelta(ctx context.Context, userID uint, rawDelta float64, reason models.TrustReason, confidence float64, isAutomatic bool, metadata map[string]any) (float64, error) {
	f.deltas = append(f.deltas, deltaCall{UserID: userID, RawDelta: rawDelta, Reason: reason, Confidence: confidence})
	return f.score, nil
}

type fakeContent struct {
	hidden  map[uint]models.HiddenReason
	failOne bool
}

func (f *fakeContent) HidePost(ctx context.Context, postID uint, reason models.HiddenReason) error {
	if f.failOne {
		f.failOne = false
		return fmt.Errorf("store unavailable")
	}
	if f.hidden == nil {
		f.hidden = make(map[uint]models.HiddenReason)
	}
	f.hidden[postID] = reason
	return nil
}

type fakeReports struct {
	reports []Report
}

func (f *fakeReports) EnqueueReport(ctx context.Context, r Report) error {
	f.reports = append(f.reports, r)
	return nil
}

func testPost(id, authorID uint, text string) models.Post {
	p := models.Post{AuthorID: authorID, Text: text, Privacy: models.PostPrivacyPublic}
	p.ID = id
	return p
}

func TestModeratorHidesHighRiskSpam(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	analyzer := &fixedAnalyzer{result: &Result{
		SuggestedTags: Matches{CategoryQuality: {"Spam"}},
		RiskScore:     0.85,
		RiskLevel:     RiskHigh,
	}}
	trustEngine := &fakeTrust{score: 0.7}
	content := &fakeContent{}
	mod := NewModerator(analyzer, trustEngine, content, &fakeReports{}, policy.Default(), nil)

	out, err := mod.ReviewPost(ctx, testPost(10, 42, "buy now buy now"))
	require.NoError(err)
	assert.True(out.Hidden)
	assert.Equal(models.HiddenReasonSpamDetection, out.HiddenReason)
	assert.Equal(models.HiddenReasonSpamDetection, content.hidden[10])

	require.Len(trustEngine.deltas, 1)
	d := trustEngine.deltas[0]
	assert.Equal(uint(42), d.UserID)
	assert.InDelta(-0.2, d.RawDelta, 1e-9)
	assert.Equal(models.TrustReasonContentModeration, d.Reason)
	assert.InDelta(0.85, d.Confidence, 1e-9)
}

func TestModeratorHidesHighRiskSafety(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	analyzer := &fixedAnalyzer{result: &Result{
		SuggestedTags: Matches{CategorySafety: {"Doxxing"}},
		RiskScore:     0.9,
		RiskLevel:     RiskHigh,
	}}
	trustEngine := &fakeTrust{score: 0.7}
	content := &fakeContent{}
	mod := NewModerator(analyzer, trustEngine, content, &fakeReports{}, policy.Default(), nil)

	out, err := mod.ReviewPost(ctx, testPost(11, 42, "..."))
	require.NoError(err)
	assert.Equal(models.HiddenReasonMaliciousContent, out.HiddenReason)

	require.Len(trustEngine.deltas, 1)
	assert.InDelta(-0.15, trustEngine.deltas[0].RawDelta, 1e-9)
}

func TestModeratorReportsMediumRisk(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	analyzer := &fixedAnalyzer{result: &Result{
		SuggestedTags: Matches{CategoryViolation: {"Harassment"}},
		RiskScore:     0.6,
		RiskLevel:     RiskMedium,
	}}
	// low-trust author lands at the bottom of the priority ladder
	trustEngine := &fakeTrust{score: 0.05}
	reports := &fakeReports{}
	mod := NewModerator(analyzer, trustEngine, &fakeContent{}, reports, policy.Default(), nil)

	out, err := mod.ReviewPost(ctx, testPost(12, 42, "..."))
	require.NoError(err)
	assert.False(out.Hidden)
	assert.True(out.Reported)
	assert.Empty(trustEngine.deltas)

	require.Len(reports.reports, 1)
	r := reports.reports[0]
	assert.Equal(uint(12), r.PostID)
	assert.Equal(uint(42), r.AuthorID)
	assert.Equal(1, r.Priority)
	assert.InDelta(0.6, r.RiskScore, 1e-9)
}

func TestModeratorReportsWithFallbackPriorityWhenScoreUnavailable(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	analyzer := &fixedAnalyzer{result: &Result{
		SuggestedTags: Matches{CategoryViolation: {"Harassment"}},
		RiskScore:     0.6,
		RiskLevel:     RiskMedium,
	}}
	// with the author's score unreadable the report takes the fallback
	// priority instead of the top of the ladder
	trustEngine := &fakeTrust{score: 1.0, unavailable: true}
	reports := &fakeReports{}
	mod := NewModerator(analyzer, trustEngine, &fakeContent{}, reports, policy.Default(), nil)

	out, err := mod.ReviewPost(ctx, testPost(17, 42, "..."))
	require.NoError(err)
	assert.True(out.Reported)

	require.Len(reports.reports, 1)
	assert.Equal(policy.FallbackPriority, reports.reports[0].Priority)
}

func TestModeratorReportsLowRiskViolation(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	// below medium, but violation matches still require review
	analyzer := &fixedAnalyzer{result: &Result{
		SuggestedTags:  Matches{CategoryViolation: {"Harassment"}},
		RiskScore:      0.08,
		RiskLevel:      RiskMinimal,
		RequiresReview: true,
	}}
	reports := &fakeReports{}
	mod := NewModerator(analyzer, &fakeTrust{score: 0.7}, &fakeContent{}, reports, policy.Default(), nil)

	out, err := mod.ReviewPost(ctx, testPost(13, 42, "..."))
	require.NoError(err)
	assert.True(out.Reported)
}

func TestModeratorCleanPost(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	analyzer := &fixedAnalyzer{result: &Result{RiskScore: 0.0, RiskLevel: RiskMinimal}}
	trustEngine := &fakeTrust{score: 0.7}
	content := &fakeContent{}
	reports := &fakeReports{}
	mod := NewModerator(analyzer, trustEngine, content, reports, policy.Default(), nil)

	out, err := mod.ReviewPost(ctx, testPost(14, 42, "nice day"))
	require.NoError(err)
	assert.False(out.Hidden)
	assert.False(out.Reported)
	assert.Empty(content.hidden)
	assert.Empty(reports.reports)
	assert.Empty(trustEngine.deltas)
}

func TestModeratorSkipsAlreadyHidden(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	analyzer := &fixedAnalyzer{err: fmt.Errorf("should not be called")}
	mod := NewModerator(analyzer, &fakeTrust{}, &fakeContent{}, &fakeReports{}, policy.Default(), nil)

	post := testPost(15, 42, "...")
	post.Hidden = true
	post.HiddenReason = models.HiddenReasonDeletedByUser

	out, err := mod.ReviewPost(ctx, post)
	require.NoError(err)
	assert.True(out.Hidden)
	assert.Equal(models.HiddenReasonDeletedByUser, out.HiddenReason)
}

func TestModeratorHideFailurePropagates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	analyzer := &fixedAnalyzer{result: &Result{
		SuggestedTags: Matches{CategorySafety: {"Self Harm"}},
		RiskScore:     0.9,
		RiskLevel:     RiskHigh,
	}}
	trustEngine := &fakeTrust{score: 0.7}
	mod := NewModerator(analyzer, trustEngine, &fakeContent{failOne: true}, &fakeReports{}, policy.Default(), nil)

	_, err := mod.ReviewPost(ctx, testPost(16, 42, "..."))
	assert.Error(err)
	assert.Empty(trustEngine.deltas)
}
