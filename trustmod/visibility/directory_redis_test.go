package visibility

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltrefry/Yapplr-sub003/models"
)

type countingDirectory struct {
	metas   map[uint]*AuthorMeta
	lookups atomic.Int64
}

func (d *countingDirectory) Lookup(ctx context.Context, userID uint) (*AuthorMeta, error) {
	d.lookups.Add(1)
	return d.metas[userID], nil
}

func (d *countingDirectory) Purge(ctx context.Context, userID uint) error {
	return nil
}

// exercises the cache tier without a redis server: go-redis/cache serves
// purely from its local TinyLFU when no redis client is configured
func testRedisDirectory(inner AuthorDirectory) *RedisDirectory {
	return &RedisDirectory{
		Inner: inner,
		Data:  cache.New(&cache.Options{LocalCache: cache.NewTinyLFU(1000, time.Minute)}),
		TTL:   time.Minute,
	}
}

func TestRedisDirectoryCachesResolvedAuthors(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	inner := &countingDirectory{metas: map[uint]*AuthorMeta{
		2: {ID: 2, TrustScore: 0.9, Status: models.UserStatusActive},
	}}
	dir := testRedisDirectory(inner)

	meta, err := dir.Lookup(ctx, 2)
	require.NoError(err)
	require.NotNil(meta)
	assert.Equal(0.9, meta.TrustScore)

	meta, err = dir.Lookup(ctx, 2)
	require.NoError(err)
	require.NotNil(meta)
	assert.Equal(int64(1), inner.lookups.Load())
}

func TestRedisDirectoryNegativeCachesMissingAuthors(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	inner := &countingDirectory{metas: map[uint]*AuthorMeta{}}
	dir := testRedisDirectory(inner)

	// repeated references to a deleted account hit the inner directory once
	for i := 0; i < 3; i++ {
		meta, err := dir.Lookup(ctx, 9)
		require.NoError(err)
		assert.Nil(meta)
	}
	assert.Equal(int64(1), inner.lookups.Load())
}
