package policy

// User-facing operations gated by minimum trust score.
type Action string

const (
	ActionLikeContent         = Action("like_content")
	ActionCreatePost          = Action("create_post")
	ActionCreateComment       = Action("create_comment")
	ActionReportContent       = Action("report_content")
	ActionSendMessage         = Action("send_message")
	ActionFollowUser          = Action("follow_user")
	ActionCreateMultiplePosts = Action("create_multiple_posts")
)

func defaultActionThresholds() map[Action]float64 {
	return map[Action]float64{
		ActionLikeContent:         0.05,
		ActionCreatePost:          0.1,
		ActionCreateComment:       0.1,
		ActionFollowUser:          0.15,
		ActionReportContent:       0.2,
		ActionSendMessage:         0.3,
		ActionCreateMultiplePosts: 0.7,
	}
}

// CanPerformAction reports whether a user at the given trust score may perform
// the action. The gate is strict: a score exactly at the threshold is denied.
// Unknown actions are allowed (fail open).
func (p *Policy) CanPerformAction(score float64, action Action) bool {
	threshold, ok := p.actions[action]
	if !ok {
		return true
	}
	return score > threshold
}

// ActionThreshold returns the configured minimum for an action, and whether the
// action is gated at all.
func (p *Policy) ActionThreshold(action Action) (float64, bool) {
	threshold, ok := p.actions[action]
	return threshold, ok
}
