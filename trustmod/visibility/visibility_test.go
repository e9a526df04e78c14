package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

func uintPtr(v uint) *uint {
	return &v
}

func publicPost(id, author uint) *models.Post {
	p := &models.Post{AuthorID: author, Privacy: models.PostPrivacyPublic}
	p.ID = id
	return p
}

func activeAuthor(id uint, score float64) AuthorMeta {
	return AuthorMeta{ID: id, TrustScore: score, Status: models.UserStatusActive}
}

func postIDs(posts []*models.Post) []uint {
	out := make([]uint, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestGroupIsolation(t *testing.T) {
	assert := assert.New(t)

	grouped := publicPost(1, 2)
	grouped.GroupID = uintPtr(9)
	plain := publicPost(2, 2)
	authors := map[uint]AuthorMeta{2: activeAuthor(2, 0.9)}
	candidates := []*models.Post{grouped, plain}

	viewer := ViewerContext{ViewerID: uintPtr(1), BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{}}
	assert.Equal([]uint{2}, postIDs(PersonalizedFilter(candidates, viewer, authors)))
	assert.Equal([]uint{2}, postIDs(PublicFilter(candidates, map[uint]bool{}, authors)))

	// group isolation holds even for the author and group members
	self := ViewerContext{ViewerID: uintPtr(2), BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{}}
	assert.Equal([]uint{2}, postIDs(PersonalizedFilter(candidates, self, authors)))
}

func TestHiddenReasonsAreTerminalExceptVideoProcessing(t *testing.T) {
	assert := assert.New(t)

	authors := map[uint]AuthorMeta{5: activeAuthor(5, 0.9)}

	modHidden := publicPost(1, 5)
	modHidden.Hidden = true
	modHidden.HiddenReason = models.HiddenReasonModeratorHidden

	processing := publicPost(2, 5)
	processing.Hidden = true
	processing.HiddenReason = models.HiddenReasonVideoProcessing

	spam := publicPost(3, 5)
	spam.Hidden = true
	spam.HiddenReason = models.HiddenReasonSpamDetection

	candidates := []*models.Post{modHidden, processing, spam}

	// the author sees only their own processing post
	self := ViewerContext{ViewerID: uintPtr(5), BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{}}
	assert.Equal([]uint{2}, postIDs(PersonalizedFilter(candidates, self, authors)))

	// everyone else sees nothing
	other := ViewerContext{ViewerID: uintPtr(6), BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{}}
	assert.Empty(PersonalizedFilter(candidates, other, authors))

	// the public timeline never shows processing content, not even to the author
	assert.Empty(PublicFilter(candidates, map[uint]bool{}, authors))
}

func TestFollowersPrivacy(t *testing.T) {
	assert := assert.New(t)

	post := publicPost(1, 5)
	post.Privacy = models.PostPrivacyFollowers
	authors := map[uint]AuthorMeta{5: activeAuthor(5, 0.9)}
	candidates := []*models.Post{post}

	follower := ViewerContext{ViewerID: uintPtr(6), BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{5: true}}
	assert.Len(PersonalizedFilter(candidates, follower, authors), 1)

	stranger := ViewerContext{ViewerID: uintPtr(7), BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{}}
	assert.Empty(PersonalizedFilter(candidates, stranger, authors))

	self := ViewerContext{ViewerID: uintPtr(5), BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{}}
	assert.Len(PersonalizedFilter(candidates, self, authors), 1)

	// followers content never reaches the public surface
	assert.Empty(PublicFilter(candidates, map[uint]bool{}, authors))
}

func TestAuthorEligibility(t *testing.T) {
	assert := assert.New(t)

	post := publicPost(1, 5)
	candidates := []*models.Post{post}
	viewer := ViewerContext{ViewerID: uintPtr(6), BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{}}
	self := ViewerContext{ViewerID: uintPtr(5), BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{}}

	suspended := map[uint]AuthorMeta{5: {ID: 5, TrustScore: 0.9, Status: models.UserStatusSuspended}}
	assert.Empty(PersonalizedFilter(candidates, viewer, suspended))
	assert.Len(PersonalizedFilter(candidates, self, suspended), 1)
	// a suspended author's public posts are excluded from the public feed
	// even though the post itself is not hidden
	assert.Empty(PublicFilter(candidates, map[uint]bool{}, suspended))

	lowTrust := map[uint]AuthorMeta{5: activeAuthor(5, 0.05)}
	assert.Empty(PersonalizedFilter(candidates, viewer, lowTrust))
	assert.Len(PersonalizedFilter(candidates, self, lowTrust), 1)
	assert.Empty(PublicFilter(candidates, map[uint]bool{}, lowTrust))

	// author exactly at the floor is eligible
	atFloor := map[uint]AuthorMeta{5: activeAuthor(5, MinAuthorTrust)}
	assert.Len(PersonalizedFilter(candidates, viewer, atFloor), 1)

	// unknown author cannot be vetted, so the post is dropped (except self)
	assert.Empty(PersonalizedFilter(candidates, viewer, map[uint]AuthorMeta{}))
	assert.Len(PersonalizedFilter(candidates, self, map[uint]AuthorMeta{}), 1)
}

func TestBlockIsSymmetric(t *testing.T) {
	assert := assert.New(t)

	// A=1 blocked B=2. The store hands each side the symmetric union, so
	// both viewers carry the other's id in BlockedIDs.
	postByB := publicPost(1, 2)
	postByA := publicPost(2, 1)
	authors := map[uint]AuthorMeta{1: activeAuthor(1, 0.9), 2: activeAuthor(2, 0.9)}

	viewerA := ViewerContext{ViewerID: uintPtr(1), BlockedIDs: map[uint]bool{2: true}, FollowingIDs: map[uint]bool{}}
	assert.Empty(PersonalizedFilter([]*models.Post{postByB}, viewerA, authors))

	viewerB := ViewerContext{ViewerID: uintPtr(2), BlockedIDs: map[uint]bool{1: true}, FollowingIDs: map[uint]bool{}}
	assert.Empty(PersonalizedFilter([]*models.Post{postByA}, viewerB, authors))

	// and in the public variant
	assert.Empty(PublicFilter([]*models.Post{postByB}, map[uint]bool{2: true}, authors))
}

func TestAnonymousViewerDegradation(t *testing.T) {
	assert := assert.New(t)

	followersOnly := publicPost(1, 5)
	followersOnly.Privacy = models.PostPrivacyFollowers
	processing := publicPost(2, 5)
	processing.Hidden = true
	processing.HiddenReason = models.HiddenReasonVideoProcessing
	open := publicPost(3, 5)

	authors := map[uint]AuthorMeta{5: activeAuthor(5, 0.9)}
	candidates := []*models.Post{followersOnly, processing, open}

	anon := ViewerContext{BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{}}
	assert.Equal([]uint{3}, postIDs(PersonalizedFilter(candidates, anon, authors)))
}

func TestFilterPreservesOrder(t *testing.T) {
	assert := assert.New(t)

	authors := map[uint]AuthorMeta{5: activeAuthor(5, 0.9)}
	var candidates []*models.Post
	for i := uint(1); i <= 6; i++ {
		candidates = append(candidates, publicPost(i, 5))
	}
	candidates[2].Hidden = true
	candidates[2].HiddenReason = models.HiddenReasonDeletedByUser

	viewer := ViewerContext{ViewerID: uintPtr(6), BlockedIDs: map[uint]bool{}, FollowingIDs: map[uint]bool{}}
	assert.Equal([]uint{1, 2, 4, 5, 6}, postIDs(PersonalizedFilter(candidates, viewer, authors)))
}

func TestCanViewHiddenContent(t *testing.T) {
	assert := assert.New(t)

	assert.False(CanViewHiddenContent(nil, 5, models.UserRoleAdmin))
	assert.True(CanViewHiddenContent(uintPtr(5), 5, models.UserRoleUser))
	assert.False(CanViewHiddenContent(uintPtr(6), 5, models.UserRoleUser))
	assert.True(CanViewHiddenContent(uintPtr(6), 5, models.UserRoleModerator))
	assert.True(CanViewHiddenContent(uintPtr(6), 5, models.UserRoleAdmin))
}
