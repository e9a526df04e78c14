package trust

import (
	"encoding/json"
	"io"
	"os"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

// Discrete behavioral actions with fixed trust-score weights.
type Action string

const (
	ActionPostCreated     = Action("post_created")
	ActionCommentCreated  = Action("comment_created")
	ActionLikeGiven       = Action("like_given")
	ActionEmailVerified   = Action("email_verified")
	ActionPhoneVerified   = Action("phone_verified")
	ActionContentReported = Action("content_reported")
	ActionContentHidden   = Action("content_hidden")
	ActionSpamDetected    = Action("spam_detected")
	ActionUserSuspended   = Action("user_suspended")
	ActionUserBanned      = Action("user_banned")
)

type ActionWeight struct {
	Delta  float64            `json:"delta"`
	Reason models.TrustReason `json:"reason"`
}

// DefaultWeights returns the stock action weight table. The suspension penalty
// is sized to pull a neutral account (0.8) below the 0.5 moderation line in a
// single step.
func DefaultWeights() map[Action]ActionWeight {
	return map[Action]ActionWeight{
		ActionPostCreated:     {Delta: 0.01, Reason: models.TrustReasonPositiveEngagement},
		ActionCommentCreated:  {Delta: 0.005, Reason: models.TrustReasonPositiveEngagement},
		ActionLikeGiven:       {Delta: 0.001, Reason: models.TrustReasonPositiveEngagement},
		ActionEmailVerified:   {Delta: 0.05, Reason: models.TrustReasonVerificationComplete},
		ActionPhoneVerified:   {Delta: 0.05, Reason: models.TrustReasonVerificationComplete},
		ActionContentReported: {Delta: -0.05, Reason: models.TrustReasonUserReport},
		ActionContentHidden:   {Delta: -0.15, Reason: models.TrustReasonContentModeration},
		ActionSpamDetected:    {Delta: -0.2, Reason: models.TrustReasonContentModeration},
		ActionUserSuspended:   {Delta: -0.4, Reason: models.TrustReasonAccountPenalty},
		ActionUserBanned:      {Delta: -0.8, Reason: models.TrustReasonAccountPenalty},
	}
}

// LoadWeightsFromFileJSON merges weight overrides from a JSON file over the
// defaults.
func LoadWeightsFromFileJSON(p string) (map[Action]ActionWeight, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var overrides map[Action]ActionWeight
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return nil, err
	}

	weights := DefaultWeights()
	for action, w := range overrides {
		weights[action] = w
	}
	return weights, nil
}
