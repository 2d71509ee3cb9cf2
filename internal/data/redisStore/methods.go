package redisStore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, key).Result()
	return count > 0, err
}

// SetIndexed writes key and records member in the sorted set index under
// score, atomically.
func (s *Store) SetIndexed(ctx context.Context, key string, value interface{}, index string, score float64, member string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, 0)
		pipe.ZAdd(ctx, index, redis.Z{Score: score, Member: member})
		return nil
	})
	return err
}

// DelIndexed removes key and its index entry. It reports whether key existed.
func (s *Store) DelIndexed(ctx context.Context, key string, index string, member string) (bool, error) {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, key)
		pipe.ZRem(ctx, index, member)
		return nil
	})
	if err != nil {
		return false, err
	}
	return del.Val() > 0, nil
}

// Members lists a sorted set from highest to lowest score.
func (s *Store) Members(ctx context.Context, index string) ([]string, error) {
	return s.client.ZRevRange(ctx, index, 0, -1).Result()
}

func (s *Store) Unindex(ctx context.Context, index string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.client.ZRem(ctx, index, args...).Err()
}
