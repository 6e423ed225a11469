package kvschema

import "context"

// Backend is the store a Client runs on: the primitive Redis commands with
// their standard semantics. Lookups report absence with found == false
// rather than an error.
//
// Implementations: NewMemoryBackend, NewBoltBackend, NewRedisBackend.
type Backend interface {
	// Connect opens the connection. The client calls it lazily, once per
	// connected period.
	Connect(ctx context.Context) error
	// Quit closes the connection.
	Quit(ctx context.Context) error
	Ping(ctx context.Context) (string, error)

	Get(ctx context.Context, key string) (val string, found bool, err error)
	Set(ctx context.Context, key, val string) error
	SetEx(ctx context.Context, key, val string, seconds int) error
	Del(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, seconds int) error

	HGet(ctx context.Context, key, field string) (val string, found bool, err error)
	HSet(ctx context.Context, key, field, val string) error
	HSetMany(ctx context.Context, key string, values map[string]string) error
	// HGetAll returns an empty map for a missing key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)
	HExists(ctx context.Context, key, field string) (bool, error)

	LPush(ctx context.Context, key string, values ...string) (int64, error)
	RPush(ctx context.Context, key string, values ...string) (int64, error)
	LPop(ctx context.Context, key string) (val string, found bool, err error)
	RPop(ctx context.Context, key string) (val string, found bool, err error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
	LTrim(ctx context.Context, key string, start, stop int64) error

	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)
	// SPop removes and returns an arbitrary member.
	SPop(ctx context.Context, key string) (val string, found bool, err error)

	ZAdd(ctx context.Context, key string, score float64, member string) (int64, error)
	ZRem(ctx context.Context, key string, members ...string) (int64, error)
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRank(ctx context.Context, key, member string) (rank int64, found bool, err error)
	ZScore(ctx context.Context, key, member string) (score float64, found bool, err error)
	ZCard(ctx context.Context, key string) (int64, error)
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error
}
