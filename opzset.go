package kvschema

import "context"

// SortedSetOps operates on sorted sets.
type SortedSetOps[T any] struct {
	c    *Client
	name string
	z    SortedSetType[T]
}

func (z SortedSetType[T]) newBundle(c *Client, name string) Bundle {
	return &SortedSetOps[T]{c: c, name: name, z: z}
}

func (o *SortedSetOps[T]) Name() string           { return o.name }
func (o *SortedSetOps[T]) Descriptor() Descriptor { return o.z }

func (o *SortedSetOps[T]) event(op, key string) Event {
	return Event{Schema: o.name, Op: op, Key: key}
}

// ZAdd adds member with score (or updates its score) and returns 1 if the
// member is new. With MaxSize set, the lowest-ranked members beyond the bound
// are then removed in one call. If that fails, the add has still been applied.
func (o *SortedSetOps[T]) ZAdd(ctx context.Context, key string, score float64, member T) (int64, error) {
	raw, err := encodeFor(o.name, member, o.z.elem)
	if err != nil {
		return 0, err
	}
	ev := o.event("zadd", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, err
	}
	n, err := o.c.backend.ZAdd(ctx, key, score, raw)
	if err != nil {
		return 0, o.c.fail(ev.with(err))
	}
	info := &o.z.d.info
	if err := o.c.expire(ctx, ev, key, info.TTL); err != nil {
		return n, err
	}
	if info.MaxSize > 0 {
		if err := o.c.trimSortedSet(ctx, ev, key, int64(info.MaxSize)); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (o *SortedSetOps[T]) ZRem(ctx context.Context, key string, members ...T) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	raws, err := encodeAll(o.name, members, o.z.elem)
	if err != nil {
		return 0, err
	}
	ev := o.event("zrem", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, err
	}
	n, err := o.c.backend.ZRem(ctx, key, raws...)
	if err != nil {
		return 0, o.c.fail(ev.with(err))
	}
	return n, nil
}

// ZRange returns members by rank, lowest score first, between start and stop
// inclusive. Undecodable members are skipped.
func (o *SortedSetOps[T]) ZRange(ctx context.Context, key string, start, stop int64) ([]T, error) {
	ev := o.event("zrange", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return nil, err
	}
	raws, err := o.c.backend.ZRange(ctx, key, start, stop)
	if err != nil {
		return nil, o.c.fail(ev.with(err))
	}
	return decodeAll[T](o.c, ev, raws, o.z.elem), nil
}

func (o *SortedSetOps[T]) ZRank(ctx context.Context, key string, member T) (int64, bool, error) {
	raw, err := encodeFor(o.name, member, o.z.elem)
	if err != nil {
		return 0, false, err
	}
	ev := o.event("zrank", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, false, err
	}
	rank, found, err := o.c.backend.ZRank(ctx, key, raw)
	if err != nil {
		return 0, false, o.c.fail(ev.with(err))
	}
	return rank, found, nil
}

func (o *SortedSetOps[T]) ZScore(ctx context.Context, key string, member T) (float64, bool, error) {
	raw, err := encodeFor(o.name, member, o.z.elem)
	if err != nil {
		return 0, false, err
	}
	ev := o.event("zscore", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, false, err
	}
	score, found, err := o.c.backend.ZScore(ctx, key, raw)
	if err != nil {
		return 0, false, o.c.fail(ev.with(err))
	}
	return score, found, nil
}
