package kvschema

import "context"

// SetOps operates on unordered sets.
type SetOps[T any] struct {
	c    *Client
	name string
	s    SetType[T]
}

func (s SetType[T]) newBundle(c *Client, name string) Bundle {
	return &SetOps[T]{c: c, name: name, s: s}
}

func (o *SetOps[T]) Name() string           { return o.name }
func (o *SetOps[T]) Descriptor() Descriptor { return o.s }

func (o *SetOps[T]) event(op, key string) Event {
	return Event{Schema: o.name, Op: op, Key: key}
}

// SAdd adds members and returns how many were new. With MaxSize set, excess
// members are then evicted with SPOP; which members go is up to the store,
// and may include the ones just added. If eviction fails, the add has still
// been applied.
func (o *SetOps[T]) SAdd(ctx context.Context, key string, members ...T) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	raws, err := encodeAll(o.name, members, o.s.elem)
	if err != nil {
		return 0, err
	}
	ev := o.event("sadd", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, err
	}
	n, err := o.c.backend.SAdd(ctx, key, raws...)
	if err != nil {
		return 0, o.c.fail(ev.with(err))
	}
	info := &o.s.d.info
	if err := o.c.expire(ctx, ev, key, info.TTL); err != nil {
		return n, err
	}
	if info.MaxSize > 0 {
		if err := o.c.trimSet(ctx, ev, key, int64(info.MaxSize)); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (o *SetOps[T]) SRem(ctx context.Context, key string, members ...T) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	raws, err := encodeAll(o.name, members, o.s.elem)
	if err != nil {
		return 0, err
	}
	ev := o.event("srem", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, err
	}
	n, err := o.c.backend.SRem(ctx, key, raws...)
	if err != nil {
		return 0, o.c.fail(ev.with(err))
	}
	return n, nil
}

// SMembers returns all members in the store's order. Undecodable members are
// skipped.
func (o *SetOps[T]) SMembers(ctx context.Context, key string) ([]T, error) {
	ev := o.event("smembers", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return nil, err
	}
	raws, err := o.c.backend.SMembers(ctx, key)
	if err != nil {
		return nil, o.c.fail(ev.with(err))
	}
	return decodeAll[T](o.c, ev, raws, o.s.elem), nil
}

func (o *SetOps[T]) SIsMember(ctx context.Context, key string, member T) (bool, error) {
	raw, err := encodeFor(o.name, member, o.s.elem)
	if err != nil {
		return false, err
	}
	ev := o.event("sismember", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return false, err
	}
	ok, err := o.c.backend.SIsMember(ctx, key, raw)
	if err != nil {
		return false, o.c.fail(ev.with(err))
	}
	return ok, nil
}

func (o *SetOps[T]) SCard(ctx context.Context, key string) (int64, error) {
	ev := o.event("scard", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, err
	}
	n, err := o.c.backend.SCard(ctx, key)
	if err != nil {
		return 0, o.c.fail(ev.with(err))
	}
	return n, nil
}
