package visibility

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

type fakeRelationships struct {
	blocked   map[uint]map[uint]bool
	following map[uint]map[uint]bool
}

func (f *fakeRelationships) GetBlockedIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	if m, ok := f.blocked[userID]; ok {
		return m, nil
	}
	return map[uint]bool{}, nil
}

func (f *fakeRelationships) GetFollowingIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	if m, ok := f.following[userID]; ok {
		return m, nil
	}
	return map[uint]bool{}, nil
}

type fakeUsers struct {
	users   map[uint]*models.User
	lookups atomic.Int64
}

func (f *fakeUsers) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	f.lookups.Add(1)
	u, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d not found", userID)
	}
	return u, nil
}

func testUser(id uint, score float64, status models.UserStatus) *models.User {
	u := &models.User{TrustScore: score, Status: status}
	u.ID = id
	return u
}

func TestFeedServicePersonalized(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	users := &fakeUsers{users: map[uint]*models.User{
		2: testUser(2, 0.9, models.UserStatusActive),
		3: testUser(3, 0.9, models.UserStatusSuspended),
	}}
	rel := &fakeRelationships{
		blocked:   map[uint]map[uint]bool{1: {4: true}},
		following: map[uint]map[uint]bool{1: {2: true}},
	}
	svc := NewFeedService(rel, &BaseDirectory{Users: users}, nil)

	followersPost := publicPost(1, 2)
	followersPost.Privacy = models.PostPrivacyFollowers
	suspendedPost := publicPost(2, 3)
	blockedPost := publicPost(3, 4)

	out, err := svc.PersonalizedFeed(ctx, uintPtr(1), []*models.Post{followersPost, suspendedPost, blockedPost})
	require.NoError(err)
	assert.Equal([]uint{1}, postIDs(out))
}

func TestFeedServicePublicAnonymous(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	users := &fakeUsers{users: map[uint]*models.User{
		2: testUser(2, 0.9, models.UserStatusActive),
	}}
	svc := NewFeedService(&fakeRelationships{}, &BaseDirectory{Users: users}, nil)

	open := publicPost(1, 2)
	followers := publicPost(2, 2)
	followers.Privacy = models.PostPrivacyFollowers

	out, err := svc.PublicFeed(ctx, nil, []*models.Post{open, followers})
	require.NoError(err)
	assert.Equal([]uint{1}, postIDs(out))
}

func TestCacheDirectoryCachesAndPurges(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	users := &fakeUsers{users: map[uint]*models.User{
		2: testUser(2, 0.9, models.UserStatusActive),
	}}
	dir := NewCacheDirectory(&BaseDirectory{Users: users}, 100, time.Minute)

	meta, err := dir.Lookup(ctx, 2)
	require.NoError(err)
	require.NotNil(meta)
	assert.Equal(0.9, meta.TrustScore)

	_, err = dir.Lookup(ctx, 2)
	require.NoError(err)
	assert.Equal(int64(1), users.lookups.Load())

	require.NoError(dir.Purge(ctx, 2))
	_, err = dir.Lookup(ctx, 2)
	require.NoError(err)
	assert.Equal(int64(2), users.lookups.Load())
}

func TestFeedServiceExcludesUnresolvableAuthors(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	users := &fakeUsers{users: map[uint]*models.User{}}
	svc := NewFeedService(&fakeRelationships{}, &BaseDirectory{Users: users}, nil)

	out, err := svc.PublicFeed(ctx, nil, []*models.Post{publicPost(1, 9)})
	require.NoError(err)
	assert.Empty(out)
}
