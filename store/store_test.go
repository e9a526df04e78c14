package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

// fixture abstracts seeding so the same behavioral suite runs against both
// implementations.
type fixture struct {
	store     Store
	addUser   func(t *testing.T, user models.User) uint
	addPost   func(t *testing.T, post models.Post) uint
	addBlock  func(t *testing.T, blocker, blocked uint)
	addFollow func(t *testing.T, follower, target uint)
}

func memFixture(t *testing.T) *fixture {
	s := NewMemStore()
	return &fixture{
		store:     s,
		addUser:   func(t *testing.T, u models.User) uint { return s.AddUser(u) },
		addPost:   func(t *testing.T, p models.Post) uint { return s.AddPost(p) },
		addBlock:  func(t *testing.T, blocker, blocked uint) { s.AddBlock(blocker, blocked) },
		addFollow: func(t *testing.T, follower, target uint) { s.AddFollow(follower, target) },
	}
}

func gormFixture(t *testing.T) *fixture {
	db, err := SetupDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)
	require.NoError(t, MigrateDatabase(db))
	s := NewGormStore(db)
	ctx := context.Background()
	return &fixture{
		store: s,
		addUser: func(t *testing.T, u models.User) uint {
			require.NoError(t, s.CreateUser(ctx, &u))
			return u.ID
		},
		addPost: func(t *testing.T, p models.Post) uint {
			require.NoError(t, s.CreatePost(ctx, &p))
			return p.ID
		},
		addBlock: func(t *testing.T, blocker, blocked uint) {
			require.NoError(t, s.CreateBlock(ctx, blocker, blocked))
		},
		addFollow: func(t *testing.T, follower, target uint) {
			require.NoError(t, s.CreateFollow(ctx, follower, target))
		},
	}
}

func runStoreSuite(t *testing.T, newFixture func(t *testing.T) *fixture) {
	ctx := context.Background()

	t.Run("UsersAndTrustScore", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		fx := newFixture(t)

		_, err := fx.store.GetUser(ctx, 999)
		assert.ErrorIs(err, ErrNotFound)

		uid := fx.addUser(t, models.User{Handle: "alice", TrustScore: 1.0, Role: models.UserRoleModerator})
		user, err := fx.store.GetUser(ctx, uid)
		require.NoError(err)
		assert.Equal("alice", user.Handle)

		role, err := fx.store.GetRole(ctx, uid)
		require.NoError(err)
		assert.Equal(models.UserRoleModerator, role)

		require.NoError(fx.store.PersistTrustScore(ctx, uid, 0.42))
		score, err := fx.store.GetTrustScore(ctx, uid)
		require.NoError(err)
		assert.InDelta(0.42, score, 1e-9)

		assert.ErrorIs(fx.store.PersistTrustScore(ctx, 999, 0.5), ErrNotFound)
	})

	t.Run("BlockSymmetry", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		fx := newFixture(t)

		a := fx.addUser(t, models.User{Handle: "a", TrustScore: 1.0})
		b := fx.addUser(t, models.User{Handle: "b", TrustScore: 1.0})
		c := fx.addUser(t, models.User{Handle: "c", TrustScore: 1.0})
		fx.addBlock(t, a, b)

		// one stored direction is visible from both sides
		blockedA, err := fx.store.GetBlockedIDs(ctx, a)
		require.NoError(err)
		assert.True(blockedA[b])
		assert.False(blockedA[c])

		blockedB, err := fx.store.GetBlockedIDs(ctx, b)
		require.NoError(err)
		assert.True(blockedB[a])

		blockedC, err := fx.store.GetBlockedIDs(ctx, c)
		require.NoError(err)
		assert.Empty(blockedC)
	})

	t.Run("Following", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		fx := newFixture(t)

		a := fx.addUser(t, models.User{Handle: "a", TrustScore: 1.0})
		b := fx.addUser(t, models.User{Handle: "b", TrustScore: 1.0})
		fx.addFollow(t, a, b)

		following, err := fx.store.GetFollowingIDs(ctx, a)
		require.NoError(err)
		assert.True(following[b])

		// follows are directional
		following, err = fx.store.GetFollowingIDs(ctx, b)
		require.NoError(err)
		assert.Empty(following)
	})

	t.Run("TrustHistory", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		fx := newFixture(t)

		uid := fx.addUser(t, models.User{Handle: "a", TrustScore: 1.0})
		for i, delta := range []float64{0.01, -0.05, 0.05} {
			require.NoError(fx.store.AppendTrustHistory(ctx, &models.TrustScoreHistory{
				UserID: uid,
				Delta:  delta,
				Score:  1.0 + delta,
				Reason: models.TrustReason(i % 3),
			}))
		}

		entries, err := fx.store.ListTrustHistory(ctx, uid, 0)
		require.NoError(err)
		require.Len(entries, 3)
		// newest first
		assert.InDelta(0.05, entries[0].Delta, 1e-9)
		assert.InDelta(0.01, entries[2].Delta, 1e-9)

		entries, err = fx.store.ListTrustHistory(ctx, uid, 2)
		require.NoError(err)
		assert.Len(entries, 2)

		entries, err = fx.store.ListTrustHistory(ctx, 999, 0)
		require.NoError(err)
		assert.Empty(entries)
	})

	t.Run("Posts", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		fx := newFixture(t)

		uid := fx.addUser(t, models.User{Handle: "a", TrustScore: 1.0})
		first := fx.addPost(t, models.Post{AuthorID: uid, Text: "first post here"})
		second := fx.addPost(t, models.Post{AuthorID: uid, Text: "second post here"})

		posts, err := fx.store.ListRecentPosts(ctx, time.Time{}, 0)
		require.NoError(err)
		require.Len(posts, 2)
		assert.Equal(second, posts[0].ID)

		posts, err = fx.store.ListRecentPosts(ctx, time.Time{}, 1)
		require.NoError(err)
		assert.Len(posts, 1)

		require.NoError(fx.store.HidePost(ctx, first, models.HiddenReasonSpamDetection))
		post, err := fx.store.GetPost(ctx, first)
		require.NoError(err)
		assert.True(post.Hidden)
		assert.Equal(models.HiddenReasonSpamDetection, post.HiddenReason)

		assert.ErrorIs(fx.store.HidePost(ctx, 999, models.HiddenReasonSpamDetection), ErrNotFound)
		_, err = fx.store.GetPost(ctx, 999)
		assert.ErrorIs(err, ErrNotFound)
	})

	t.Run("Reports", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		fx := newFixture(t)

		uid := fx.addUser(t, models.User{Handle: "a", TrustScore: 1.0})
		pid := fx.addPost(t, models.Post{AuthorID: uid, Text: "sketchy post text"})

		relaxed := &models.ModerationReport{PostID: pid, AuthorID: uid, RiskScore: 0.5, Priority: 4}
		urgent := &models.ModerationReport{PostID: pid, AuthorID: uid, RiskScore: 0.7, Priority: 1}
		require.NoError(fx.store.CreateReport(ctx, relaxed))
		require.NoError(fx.store.CreateReport(ctx, urgent))

		// most urgent first
		reports, err := fx.store.ListOpenReports(ctx, 0)
		require.NoError(err)
		require.Len(reports, 2)
		assert.Equal(1, reports[0].Priority)
	})
}

func TestMemStore(t *testing.T) {
	runStoreSuite(t, memFixture)
}

func TestGormStore(t *testing.T) {
	runStoreSuite(t, gormFixture)
}
