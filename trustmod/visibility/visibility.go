package visibility

import (
	"github.com/michaeltrefry/Yapplr-sub003/models"
)

// Feed filtering is pure: callers hand in a candidate slice plus snapshots of
// the viewer's relationship sets and the candidate authors, and get back an
// order-preserving subset. No I/O, no locks; safe from any number of
// goroutines. FeedService (service.go) is the impure wrapper that assembles
// the snapshots.

// Authors whose trust score sits below this floor are dropped from feeds
// (except their own).
const MinAuthorTrust = 0.1

// AuthorMeta is a point-in-time snapshot of the fields feed filtering needs.
type AuthorMeta struct {
	ID         uint
	TrustScore float64
	Status     models.UserStatus
}

// ViewerContext carries the viewer identity and precomputed relationship sets.
// BlockedIDs is the symmetric union: users the viewer blocked plus users who
// blocked the viewer, so a single membership test suppresses both directions.
// A nil ViewerID means anonymous: privacy degrades to public-only and all
// self-exceptions disappear.
type ViewerContext struct {
	ViewerID     *uint
	BlockedIDs   map[uint]bool
	FollowingIDs map[uint]bool
}

func (vc *ViewerContext) isSelf(userID uint) bool {
	return vc.ViewerID != nil && *vc.ViewerID == userID
}

// PersonalizedFilter returns the candidates visible to the viewer, preserving
// input order. Authors missing from the snapshot map are excluded unless the
// viewer is the author.
func PersonalizedFilter(candidates []*models.Post, viewer ViewerContext, authors map[uint]AuthorMeta) []*models.Post {
	out := make([]*models.Post, 0, len(candidates))
	for _, post := range candidates {
		if post == nil {
			continue
		}
		if personalizedVisible(post, &viewer, authors) {
			out = append(out, post)
		}
	}
	return out
}

func personalizedVisible(post *models.Post, viewer *ViewerContext, authors map[uint]AuthorMeta) bool {
	// group-scoped content never surfaces in general feeds
	if post.GroupID != nil {
		return false
	}

	self := viewer.isSelf(post.AuthorID)

	if post.Hidden {
		// video processing is transient and self-visible; every other hidden
		// reason is terminal and excluded even from the author
		if !(post.HiddenReason == models.HiddenReasonVideoProcessing && self) {
			return false
		}
	}

	if post.Privacy == models.PostPrivacyFollowers {
		if !self && !(viewer.ViewerID != nil && viewer.FollowingIDs[post.AuthorID]) {
			return false
		}
	}

	if !self {
		author, ok := authors[post.AuthorID]
		if !ok {
			return false
		}
		if author.Status != models.UserStatusActive {
			return false
		}
		if author.TrustScore < MinAuthorTrust {
			return false
		}
	}

	// symmetric union set: covers blocks in both directions
	if viewer.BlockedIDs[post.AuthorID] {
		return false
	}

	return true
}

// PublicFilter is the anonymous-equivalent feed filter: public privacy only,
// no video-processing exception, no self-exceptions anywhere.
func PublicFilter(candidates []*models.Post, blockedIDs map[uint]bool, authors map[uint]AuthorMeta) []*models.Post {
	out := make([]*models.Post, 0, len(candidates))
	for _, post := range candidates {
		if post == nil {
			continue
		}
		if publicVisible(post, blockedIDs, authors) {
			out = append(out, post)
		}
	}
	return out
}

func publicVisible(post *models.Post, blockedIDs map[uint]bool, authors map[uint]AuthorMeta) bool {
	if post.GroupID != nil {
		return false
	}
	if post.Hidden {
		return false
	}
	if post.Privacy != models.PostPrivacyPublic {
		return false
	}
	author, ok := authors[post.AuthorID]
	if !ok {
		return false
	}
	if author.Status != models.UserStatusActive {
		return false
	}
	if author.TrustScore < MinAuthorTrust {
		return false
	}
	if blockedIDs[post.AuthorID] {
		return false
	}
	return true
}

// CanViewHiddenContent gates moderation-dashboard and ownership-scoped queries
// over terminally hidden content. It is deliberately separate from the feed
// filters: content owners and moderation staff reach hidden items through
// explicit queries, never through a feed.
func CanViewHiddenContent(viewerID *uint, contentOwnerID uint, viewerRole models.UserRole) bool {
	if viewerID == nil {
		return false
	}
	if *viewerID == contentOwnerID {
		return true
	}
	return viewerRole == models.UserRoleAdmin || viewerRole == models.UserRoleModerator
}
