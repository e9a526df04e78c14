package ratelimit

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisBlockPrefix string = "ratelimit/block/"

type RedisBlockStore struct {
	Client *redis.Client
}

var _ BlockStore = (*RedisBlockStore)(nil)

func NewRedisBlockStore(redisURL string) (*RedisBlockStore, error) {
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
	return &RedisBlockStore{Client: rdb}, nil
}

func redisBlockKey(userID uint) string {
	return redisBlockPrefix + strconv.FormatUint(uint64(userID), 10)
}

func (s *RedisBlockStore) Get(ctx context.Context, userID uint) (*Block, error) {
	raw, err := s.Client.Get(ctx, redisBlockKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var b Block
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	if !b.Until.After(time.Now()) {
		return nil, nil
	}
	return &b, nil
}

func (s *RedisBlockStore) Set(ctx context.Context, userID uint, b Block) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	ttl := time.Until(b.Until)
	if ttl <= 0 {
		return s.Clear(ctx, userID)
	}
	return s.Client.Set(ctx, redisBlockKey(userID), raw, ttl).Err()
}

func (s *RedisBlockStore) Clear(ctx context.Context, userID uint) error {
	return s.Client.Del(ctx, redisBlockKey(userID)).Err()
}
