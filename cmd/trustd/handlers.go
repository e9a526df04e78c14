package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/michaeltrefry/Yapplr-sub003/models"
	"github.com/michaeltrefry/Yapplr-sub003/store"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/policy"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/ratelimit"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/trust"
)

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func paramUint(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return uint(v), nil
}

func queryUintPtr(c echo.Context, name string) (*uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	out := uint(v)
	return &out, nil
}

func queryInt(c echo.Context, name string, dflt int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return dflt
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return dflt
	}
	return v
}

func (srv *Server) guardWrites(c echo.Context) error {
	if srv.readonly {
		return c.JSON(403, GenericError{
			Error:   "ReadOnly",
			Message: "this instance is running in read-only mode",
		})
	}
	return nil
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(200, map[string]string{"status": "ok"})
}

// feedCandidateWindow bounds how much recent content is pulled for filtering;
// the post-filter result is truncated to the requested page size.
const feedCandidateWindow = 500

func (srv *Server) handleFeed(c echo.Context, personalized bool) error {
	ctx := c.Request().Context()

	viewerID, err := queryUintPtr(c, "viewer")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidViewer", Message: err.Error()})
	}
	limit := queryInt(c, "limit", 50)

	recent, err := srv.store.ListRecentPosts(ctx, time.Now().Add(-24*time.Hour), feedCandidateWindow)
	if err != nil {
		return c.JSON(500, GenericError{Error: "InternalError", Message: err.Error()})
	}
	candidates := make([]*models.Post, len(recent))
	for i := range recent {
		candidates[i] = &recent[i]
	}

	var visible []*models.Post
	if personalized {
		visible, err = srv.feeds.PersonalizedFeed(ctx, viewerID, candidates)
	} else {
		visible, err = srv.feeds.PublicFeed(ctx, viewerID, candidates)
	}
	if err != nil {
		return c.JSON(500, GenericError{Error: "InternalError", Message: err.Error()})
	}
	if len(visible) > limit {
		visible = visible[:limit]
	}
	return c.JSON(200, map[string]any{"posts": visible})
}

func (srv *Server) HandlePersonalizedFeed(c echo.Context) error {
	return srv.handleFeed(c, true)
}

func (srv *Server) HandlePublicFeed(c echo.Context) error {
	return srv.handleFeed(c, false)
}

type trustStanding struct {
	UserID                uint    `json:"userId"`
	Score                 float64 `json:"score"`
	VisibilityLevel       string  `json:"visibilityLevel"`
	RateLimitMultiplier   float64 `json:"rateLimitMultiplier"`
	ModerationPriority    int     `json:"moderationPriority"`
	ReportReviewThreshold float64 `json:"reportReviewThreshold"`
	AutoHide              bool    `json:"autoHide"`
}

func (srv *Server) HandleGetTrust(c echo.Context) error {
	ctx := c.Request().Context()
	uid, err := paramUint(c, "id")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidUserId", Message: err.Error()})
	}

	score, ok := srv.engine.GetCurrentScore(ctx, uid)
	if !ok {
		// score unavailable: serve the documented fallback decision set
		return c.JSON(200, trustStanding{
			UserID:                uid,
			Score:                 score,
			VisibilityLevel:       policy.FallbackVisibility.String(),
			RateLimitMultiplier:   policy.FallbackMultiplier,
			ModerationPriority:    policy.FallbackPriority,
			ReportReviewThreshold: policy.FallbackReportReviewThreshold,
			AutoHide:              false,
		})
	}
	return c.JSON(200, trustStanding{
		UserID:                uid,
		Score:                 score,
		VisibilityLevel:       srv.policy.ContentVisibilityLevel(score).String(),
		RateLimitMultiplier:   srv.policy.RateLimitMultiplier(score),
		ModerationPriority:    srv.policy.ModerationPriority(score),
		ReportReviewThreshold: srv.policy.ReportReviewThreshold(score),
		AutoHide:              srv.policy.ShouldAutoHide(score),
	})
}

func (srv *Server) HandleGetTrustHistory(c echo.Context) error {
	ctx := c.Request().Context()
	uid, err := paramUint(c, "id")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidUserId", Message: err.Error()})
	}

	entries, err := srv.store.ListTrustHistory(ctx, uid, queryInt(c, "limit", 50))
	if err != nil {
		return c.JSON(500, GenericError{Error: "InternalError", Message: err.Error()})
	}
	return c.JSON(200, map[string]any{"history": entries})
}

type adjustTrustRequest struct {
	Delta    float64            `json:"delta"`
	Reason   models.TrustReason `json:"reason"`
	Metadata map[string]any     `json:"metadata"`
}

func (srv *Server) HandleAdjustTrust(c echo.Context) error {
	if err := srv.guardWrites(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	uid, err := paramUint(c, "id")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidUserId", Message: err.Error()})
	}

	var req adjustTrustRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, GenericError{Error: "InvalidBody", Message: err.Error()})
	}

	// manual adjustments apply at full confidence and are marked non-automatic
	score, err := srv.engine.ApplyWeightedDelta(ctx, uid, req.Delta, req.Reason, 1.0, false, req.Metadata)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(404, GenericError{Error: "UserNotFound", Message: err.Error()})
		}
		return c.JSON(500, GenericError{Error: "InternalError", Message: err.Error()})
	}
	return c.JSON(200, map[string]any{"userId": uid, "score": score})
}

type applyActionRequest struct {
	Action            string `json:"action"`
	RelatedEntityType string `json:"relatedEntityType"`
	RelatedEntityID   *uint  `json:"relatedEntityId"`
}

func (srv *Server) HandleApplyAction(c echo.Context) error {
	if err := srv.guardWrites(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	uid, err := paramUint(c, "id")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidUserId", Message: err.Error()})
	}

	var req applyActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, GenericError{Error: "InvalidBody", Message: err.Error()})
	}
	if _, ok := srv.engine.Weights[trust.Action(req.Action)]; !ok {
		return c.JSON(400, GenericError{Error: "UnknownAction", Message: fmt.Sprintf("unknown trust action: %s", req.Action)})
	}

	score, err := srv.engine.ApplyAction(ctx, uid, trust.Action(req.Action), req.RelatedEntityType, req.RelatedEntityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(404, GenericError{Error: "UserNotFound", Message: err.Error()})
		}
		return c.JSON(500, GenericError{Error: "InternalError", Message: err.Error()})
	}
	return c.JSON(200, map[string]any{"userId": uid, "score": score})
}

func (srv *Server) HandleCheckAction(c echo.Context) error {
	ctx := c.Request().Context()
	uid, err := paramUint(c, "id")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidUserId", Message: err.Error()})
	}
	action := policy.Action(c.QueryParam("action"))

	// gates fail open when the score cannot be read
	score, ok := srv.engine.GetCurrentScore(ctx, uid)
	allowed := true
	if ok {
		allowed = srv.policy.CanPerformAction(score, action)
	}
	threshold, gated := srv.policy.ActionThreshold(action)
	resp := map[string]any{
		"userId":  uid,
		"action":  string(action),
		"allowed": allowed,
	}
	if gated {
		resp["threshold"] = threshold
	}
	return c.JSON(200, resp)
}

type rateLimitResult struct {
	Allowed       bool    `json:"allowed"`
	Remaining     int     `json:"remaining"`
	ResetTime     string  `json:"resetTime,omitempty"`
	ViolationType string  `json:"violationType,omitempty"`
	RetryAfterSec float64 `json:"retryAfterSeconds,omitempty"`
}

func (srv *Server) HandleCheckRateLimit(c echo.Context) error {
	ctx := c.Request().Context()
	uid, err := paramUint(c, "id")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidUserId", Message: err.Error()})
	}
	op := ratelimit.Operation(c.QueryParam("operation"))

	res := srv.limiter.CheckRateLimit(ctx, uid, op)
	out := rateLimitResult{
		Allowed:       res.Allowed,
		Remaining:     res.Remaining,
		ViolationType: res.ViolationType,
		RetryAfterSec: res.RetryAfter.Seconds(),
	}
	if !res.ResetTime.IsZero() {
		out.ResetTime = res.ResetTime.Format(time.RFC3339)
	}
	return c.JSON(200, out)
}

func (srv *Server) HandleRecordRequest(c echo.Context) error {
	if err := srv.guardWrites(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	uid, err := paramUint(c, "id")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidUserId", Message: err.Error()})
	}
	srv.limiter.RecordRequest(ctx, uid, ratelimit.Operation(c.QueryParam("operation")))
	return c.JSON(200, map[string]string{"status": "recorded"})
}

type blockUserRequest struct {
	DurationSeconds int    `json:"durationSeconds"`
	Reason          string `json:"reason"`
}

func (srv *Server) HandleBlockUser(c echo.Context) error {
	if err := srv.guardWrites(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	uid, err := paramUint(c, "id")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidUserId", Message: err.Error()})
	}

	var req blockUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, GenericError{Error: "InvalidBody", Message: err.Error()})
	}
	if req.DurationSeconds < 1 {
		return c.JSON(400, GenericError{Error: "InvalidDuration", Message: "durationSeconds must be at least 1"})
	}

	if err := srv.limiter.BlockUser(ctx, uid, time.Duration(req.DurationSeconds)*time.Second, req.Reason); err != nil {
		return c.JSON(500, GenericError{Error: "InternalError", Message: err.Error()})
	}
	return c.JSON(200, map[string]string{"status": "blocked"})
}

func (srv *Server) HandleUnblockUser(c echo.Context) error {
	if err := srv.guardWrites(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	uid, err := paramUint(c, "id")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidUserId", Message: err.Error()})
	}
	if err := srv.limiter.UnblockUser(ctx, uid); err != nil {
		return c.JSON(500, GenericError{Error: "InternalError", Message: err.Error()})
	}
	return c.JSON(200, map[string]string{"status": "unblocked"})
}

func (srv *Server) HandleRateLimitStats(c echo.Context) error {
	return c.JSON(200, srv.limiter.GetStats())
}

type hidePostRequest struct {
	Reason models.HiddenReason `json:"reason"`
}

func (srv *Server) HandleHidePost(c echo.Context) error {
	if err := srv.guardWrites(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	pid, err := paramUint(c, "id")
	if err != nil {
		return c.JSON(400, GenericError{Error: "InvalidPostId", Message: err.Error()})
	}

	var req hidePostRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, GenericError{Error: "InvalidBody", Message: err.Error()})
	}
	if req.Reason == models.HiddenReasonNone {
		return c.JSON(400, GenericError{Error: "InvalidReason", Message: "a hide reason is required"})
	}

	if err := srv.store.HidePost(ctx, pid, req.Reason); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(404, GenericError{Error: "PostNotFound", Message: err.Error()})
		}
		return c.JSON(500, GenericError{Error: "InternalError", Message: err.Error()})
	}
	return c.JSON(200, map[string]string{"status": "hidden"})
}

func (srv *Server) HandleListReports(c echo.Context) error {
	ctx := c.Request().Context()
	reports, err := srv.store.ListOpenReports(ctx, queryInt(c, "limit", 100))
	if err != nil {
		return c.JSON(500, GenericError{Error: "InternalError", Message: err.Error()})
	}
	return c.JSON(200, map[string]any{"reports": reports})
}
