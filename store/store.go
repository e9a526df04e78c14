package store

import (
	"context"
	"errors"
	"time"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

var ErrNotFound = errors.New("record not found")

// UserStore covers user accounts, relationship sets, and trust score
// persistence. GetBlockedIDs returns the symmetric union of both block
// directions: if either side blocked the other, both IDs appear in each
// other's set.
type UserStore interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	GetRole(ctx context.Context, userID uint) (models.UserRole, error)
	GetBlockedIDs(ctx context.Context, userID uint) (map[uint]bool, error)
	GetFollowingIDs(ctx context.Context, userID uint) (map[uint]bool, error)

	GetTrustScore(ctx context.Context, userID uint) (float64, error)
	PersistTrustScore(ctx context.Context, userID uint, score float64) error
	AppendTrustHistory(ctx context.Context, entry *models.TrustScoreHistory) error
	ListTrustHistory(ctx context.Context, userID uint, limit int) ([]models.TrustScoreHistory, error)
}

// ContentStore covers posts and the moderation review queue.
type ContentStore interface {
	GetPost(ctx context.Context, postID uint) (*models.Post, error)
	ListRecentPosts(ctx context.Context, since time.Time, limit int) ([]models.Post, error)
	HidePost(ctx context.Context, postID uint, reason models.HiddenReason) error

	CreateReport(ctx context.Context, report *models.ModerationReport) error
	ListOpenReports(ctx context.Context, limit int) ([]models.ModerationReport, error)
}

// Store is the full collaborator surface the daemon wires up.
type Store interface {
	UserStore
	ContentStore
}
