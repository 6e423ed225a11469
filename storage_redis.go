package kvschema

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisBackend struct {
	opt *redis.Options

	mu  sync.RWMutex
	rdb *redis.Client
}

// NewRedisBackend returns a Backend talking to a Redis server. Connect dials
// and pings the server; Quit closes the client.
func NewRedisBackend(opt *redis.Options) Backend {
	return &redisBackend{opt: opt}
}

func (b *redisBackend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rdb != nil {
		return nil
	}
	rdb := redis.NewClient(b.opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return err
	}
	b.rdb = rdb
	return nil
}

func (b *redisBackend) Quit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rdb == nil {
		return ErrNotConnected
	}
	err := b.rdb.Close()
	b.rdb = nil
	return err
}

func (b *redisBackend) client() (*redis.Client, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.rdb == nil {
		return nil, ErrNotConnected
	}
	return b.rdb, nil
}

func (b *redisBackend) Ping(ctx context.Context) (string, error) {
	rdb, err := b.client()
	if err != nil {
		return "", err
	}
	return rdb.Ping(ctx).Result()
}

// optional converts a redis.Nil reply into found == false.
func optional[T any](v T, err error) (T, bool, error) {
	if errors.Is(err, redis.Nil) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

func (b *redisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	rdb, err := b.client()
	if err != nil {
		return "", false, err
	}
	return optional(rdb.Get(ctx, key).Result())
}

func (b *redisBackend) Set(ctx context.Context, key, val string) error {
	rdb, err := b.client()
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, val, 0).Err()
}

func (b *redisBackend) SetEx(ctx context.Context, key, val string, seconds int) error {
	rdb, err := b.client()
	if err != nil {
		return err
	}
	return rdb.SetEx(ctx, key, val, time.Duration(seconds)*time.Second).Err()
}

func (b *redisBackend) Del(ctx context.Context, key string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.Del(ctx, key).Result()
}

func (b *redisBackend) Exists(ctx context.Context, key string) (bool, error) {
	rdb, err := b.client()
	if err != nil {
		return false, err
	}
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

func (b *redisBackend) Expire(ctx context.Context, key string, seconds int) error {
	rdb, err := b.client()
	if err != nil {
		return err
	}
	return rdb.Expire(ctx, key, time.Duration(seconds)*time.Second).Err()
}

func (b *redisBackend) HGet(ctx context.Context, key, field string) (string, bool, error) {
	rdb, err := b.client()
	if err != nil {
		return "", false, err
	}
	return optional(rdb.HGet(ctx, key, field).Result())
}

func (b *redisBackend) HSet(ctx context.Context, key, field, val string) error {
	rdb, err := b.client()
	if err != nil {
		return err
	}
	return rdb.HSet(ctx, key, field, val).Err()
}

func (b *redisBackend) HSetMany(ctx context.Context, key string, values map[string]string) error {
	rdb, err := b.client()
	if err != nil {
		return err
	}
	args := make(map[string]any, len(values))
	for f, v := range values {
		args[f] = v
	}
	return rdb.HSet(ctx, key, args).Err()
}

func (b *redisBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rdb, err := b.client()
	if err != nil {
		return nil, err
	}
	return rdb.HGetAll(ctx, key).Result()
}

func (b *redisBackend) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.HDel(ctx, key, fields...).Result()
}

func (b *redisBackend) HExists(ctx context.Context, key, field string) (bool, error) {
	rdb, err := b.client()
	if err != nil {
		return false, err
	}
	return rdb.HExists(ctx, key, field).Result()
}

func (b *redisBackend) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.LPush(ctx, key, anySlice(values)...).Result()
}

func (b *redisBackend) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.RPush(ctx, key, anySlice(values)...).Result()
}

func (b *redisBackend) LPop(ctx context.Context, key string) (string, bool, error) {
	rdb, err := b.client()
	if err != nil {
		return "", false, err
	}
	return optional(rdb.LPop(ctx, key).Result())
}

func (b *redisBackend) RPop(ctx context.Context, key string) (string, bool, error) {
	rdb, err := b.client()
	if err != nil {
		return "", false, err
	}
	return optional(rdb.RPop(ctx, key).Result())
}

func (b *redisBackend) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	rdb, err := b.client()
	if err != nil {
		return nil, err
	}
	return rdb.LRange(ctx, key, start, stop).Result()
}

func (b *redisBackend) LLen(ctx context.Context, key string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.LLen(ctx, key).Result()
}

func (b *redisBackend) LTrim(ctx context.Context, key string, start, stop int64) error {
	rdb, err := b.client()
	if err != nil {
		return err
	}
	return rdb.LTrim(ctx, key, start, stop).Err()
}

func (b *redisBackend) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.SAdd(ctx, key, anySlice(members)...).Result()
}

func (b *redisBackend) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.SRem(ctx, key, anySlice(members)...).Result()
}

func (b *redisBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	rdb, err := b.client()
	if err != nil {
		return nil, err
	}
	return rdb.SMembers(ctx, key).Result()
}

func (b *redisBackend) SIsMember(ctx context.Context, key, member string) (bool, error) {
	rdb, err := b.client()
	if err != nil {
		return false, err
	}
	return rdb.SIsMember(ctx, key, member).Result()
}

func (b *redisBackend) SCard(ctx context.Context, key string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.SCard(ctx, key).Result()
}

func (b *redisBackend) SPop(ctx context.Context, key string) (string, bool, error) {
	rdb, err := b.client()
	if err != nil {
		return "", false, err
	}
	return optional(rdb.SPop(ctx, key).Result())
}

func (b *redisBackend) ZAdd(ctx context.Context, key string, score float64, member string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Result()
}

func (b *redisBackend) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.ZRem(ctx, key, anySlice(members)...).Result()
}

func (b *redisBackend) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	rdb, err := b.client()
	if err != nil {
		return nil, err
	}
	return rdb.ZRange(ctx, key, start, stop).Result()
}

func (b *redisBackend) ZRank(ctx context.Context, key, member string) (int64, bool, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, false, err
	}
	return optional(rdb.ZRank(ctx, key, member).Result())
}

func (b *redisBackend) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, false, err
	}
	return optional(rdb.ZScore(ctx, key, member).Result())
}

func (b *redisBackend) ZCard(ctx context.Context, key string) (int64, error) {
	rdb, err := b.client()
	if err != nil {
		return 0, err
	}
	return rdb.ZCard(ctx, key).Result()
}

func (b *redisBackend) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error {
	rdb, err := b.client()
	if err != nil {
		return err
	}
	return rdb.ZRemRangeByRank(ctx, key, start, stop).Err()
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
