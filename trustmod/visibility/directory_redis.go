package visibility

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// RedisDirectory caches author snapshots in redis (with a small local TinyLFU
// tier), for deployments where multiple feed instances share one cache.
type RedisDirectory struct {
	Inner AuthorDirectory
	Data  *cache.Cache
	TTL   time.Duration
}

var _ AuthorDirectory = (*RedisDirectory)(nil)

func NewRedisDirectory(inner AuthorDirectory, redisURL string, ttl time.Duration) (*RedisDirectory, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	data := cache.New(&cache.Options{
		Redis:      rdb,
		LocalCache: cache.NewTinyLFU(10_000, ttl),
	})
	return &RedisDirectory{
		Inner: inner,
		Data:  data,
		TTL:   ttl,
	}, nil
}

func redisAuthorKey(userID uint) string {
	return "author/" + strconv.FormatUint(uint64(userID), 10)
}

func (d *RedisDirectory) Lookup(ctx context.Context, userID uint) (*AuthorMeta, error) {
	var meta AuthorMeta
	err := d.Data.Get(ctx, redisAuthorKey(userID), &meta)
	if err == nil {
		authorCacheHits.Inc()
		// a zero ID is the negative-cache marker for a missing account
		if meta.ID == 0 {
			return nil, nil
		}
		return &meta, nil
	}
	if err != cache.ErrCacheMiss {
		return nil, err
	}
	authorCacheMisses.Inc()

	resolved, err := d.Inner.Lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	item := &cache.Item{
		Ctx: ctx,
		Key: redisAuthorKey(userID),
		TTL: d.TTL,
	}
	if resolved != nil {
		item.Value = *resolved
	} else {
		// negative lookups are cached too, same as CacheDirectory
		item.Value = AuthorMeta{}
	}
	if err := d.Data.Set(item); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (d *RedisDirectory) Purge(ctx context.Context, userID uint) error {
	err := d.Data.Delete(ctx, redisAuthorKey(userID))
	if err != nil && err != cache.ErrCacheMiss {
		return err
	}
	return d.Inner.Purge(ctx, userID)
}
