package models

import (
	"time"

	"gorm.io/gorm"
)

type UserStatus int

const (
	UserStatusActive       = UserStatus(0)
	UserStatusSuspended    = UserStatus(1)
	UserStatusBanned       = UserStatus(2)
	UserStatusShadowBanned = UserStatus(3)
)

func (s UserStatus) String() string {
	switch s {
	case UserStatusActive:
		return "active"
	case UserStatusSuspended:
		return "suspended"
	case UserStatusBanned:
		return "banned"
	case UserStatusShadowBanned:
		return "shadow_banned"
	default:
		return "<unknown>"
	}
}

type UserRole int

const (
	UserRoleUser      = UserRole(0)
	UserRoleModerator = UserRole(1)
	UserRoleAdmin     = UserRole(2)
)

func (r UserRole) String() string {
	switch r {
	case UserRoleUser:
		return "user"
	case UserRoleModerator:
		return "moderator"
	case UserRoleAdmin:
		return "admin"
	default:
		return "<unknown>"
	}
}

type PostPrivacy int

const (
	PostPrivacyPublic    = PostPrivacy(0)
	PostPrivacyFollowers = PostPrivacy(1)
)

func (p PostPrivacy) String() string {
	switch p {
	case PostPrivacyPublic:
		return "public"
	case PostPrivacyFollowers:
		return "followers"
	default:
		return "<unknown>"
	}
}

// HiddenReason tags why a post is suppressed. HiddenReasonNone must be set
// whenever a post is not in a hidden state. HiddenReasonVideoProcessing is the
// only transient reason; posts in that state remain visible to their author.
type HiddenReason int

const (
	HiddenReasonNone              = HiddenReason(0)
	HiddenReasonDeletedByUser     = HiddenReason(1)
	HiddenReasonModeratorHidden   = HiddenReason(2)
	HiddenReasonVideoProcessing   = HiddenReason(3)
	HiddenReasonContentModeration = HiddenReason(4)
	HiddenReasonSpamDetection     = HiddenReason(5)
	HiddenReasonMaliciousContent  = HiddenReason(6)
)

func (hr HiddenReason) String() string {
	switch hr {
	case HiddenReasonNone:
		return "none"
	case HiddenReasonDeletedByUser:
		return "deleted_by_user"
	case HiddenReasonModeratorHidden:
		return "moderator_hidden"
	case HiddenReasonVideoProcessing:
		return "video_processing"
	case HiddenReasonContentModeration:
		return "content_moderation_hidden"
	case HiddenReasonSpamDetection:
		return "spam_detection"
	case HiddenReasonMaliciousContent:
		return "malicious_content"
	default:
		return "<unknown>"
	}
}

type User struct {
	gorm.Model
	Handle        string `gorm:"uniqueIndex"`
	Email         string
	EmailVerified bool
	TrustScore    float64 `gorm:"default:1.0"`
	Status        UserStatus
	Role          UserRole
}

type Post struct {
	gorm.Model
	AuthorID     uint `gorm:"index"`
	Text         string
	Privacy      PostPrivacy
	Hidden       bool
	HiddenReason HiddenReason
	GroupID      *uint `gorm:"index"`
}

type BlockRecord struct {
	gorm.Model
	Blocker uint `gorm:"index:idx_block_pair,unique"`
	Blocked uint `gorm:"index:idx_block_pair,unique"`
}

type FollowRecord struct {
	gorm.Model
	Follower uint `gorm:"index:idx_follow_pair,unique"`
	Target   uint `gorm:"index:idx_follow_pair,unique"`
}

type TrustReason int

const (
	TrustReasonPositiveEngagement   = TrustReason(0)
	TrustReasonVerificationComplete = TrustReason(1)
	TrustReasonUserReport           = TrustReason(2)
	TrustReasonContentModeration    = TrustReason(3)
	TrustReasonAccountPenalty       = TrustReason(4)
)

func (tr TrustReason) String() string {
	switch tr {
	case TrustReasonPositiveEngagement:
		return "positive_engagement"
	case TrustReasonVerificationComplete:
		return "verification_complete"
	case TrustReasonUserReport:
		return "user_report"
	case TrustReasonContentModeration:
		return "content_moderation"
	case TrustReasonAccountPenalty:
		return "account_penalty"
	default:
		return "<unknown>"
	}
}

// ModerationReport is a review-queue entry. Priority is assigned from the
// author's trust standing at enqueue time; 1 is most urgent, 5 least, so
// low-trust authors are reviewed first.
type ModerationReport struct {
	gorm.Model
	PostID    uint `gorm:"index"`
	AuthorID  uint `gorm:"index"`
	RiskScore float64
	Priority  int `gorm:"index"`
	Tags      string
	Resolved  bool
}

// TrustScoreHistory is append-only: rows are created by the trust engine and
// never updated or deleted. The current score on User is authoritative;
// history is audit data and is never replayed to recompute a score.
type TrustScoreHistory struct {
	ID                uint `gorm:"primarykey"`
	CreatedAt         time.Time
	UserID            uint `gorm:"index"`
	Delta             float64
	Score             float64
	Reason            TrustReason
	RelatedEntityType string
	RelatedEntityID   *uint
	IsAutomatic       bool
	Metadata          string
}
