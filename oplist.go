package kvschema

import "context"

// ListOps operates on lists.
type ListOps[T any] struct {
	c    *Client
	name string
	l    ListType[T]
}

func (l ListType[T]) newBundle(c *Client, name string) Bundle {
	return &ListOps[T]{c: c, name: name, l: l}
}

func (o *ListOps[T]) Name() string           { return o.name }
func (o *ListOps[T]) Descriptor() Descriptor { return o.l }

func (o *ListOps[T]) event(op, key string) Event {
	return Event{Schema: o.name, Op: op, Key: key}
}

// LPush prepends values (so the last one ends up first) and returns the list
// length. With MaxLength set, the list is then trimmed to its first MaxLength
// elements, which are the most recently pushed ones. If trimming fails, the
// push has still been applied.
func (o *ListOps[T]) LPush(ctx context.Context, key string, values ...T) (int64, error) {
	return o.push(ctx, "lpush", key, values, true)
}

// RPush appends values and returns the list length. With MaxLength set, the
// list is then trimmed to its last MaxLength elements.
func (o *ListOps[T]) RPush(ctx context.Context, key string, values ...T) (int64, error) {
	return o.push(ctx, "rpush", key, values, false)
}

func (o *ListOps[T]) push(ctx context.Context, op, key string, values []T, head bool) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	raws, err := encodeAll(o.name, values, o.l.elem)
	if err != nil {
		return 0, err
	}
	ev := o.event(op, key)
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, err
	}
	var n int64
	if head {
		n, err = o.c.backend.LPush(ctx, key, raws...)
	} else {
		n, err = o.c.backend.RPush(ctx, key, raws...)
	}
	if err != nil {
		return 0, o.c.fail(ev.with(err))
	}
	info := &o.l.d.info
	if err := o.c.expire(ctx, ev, key, info.TTL); err != nil {
		return n, err
	}
	if info.MaxLength > 0 {
		if err := o.c.trimList(ctx, ev, key, n, int64(info.MaxLength), head); err != nil {
			return n, err
		}
		n = min(n, int64(info.MaxLength))
	}
	return n, nil
}

// LPop removes and returns the first element. There is no default
// substitution: an empty list yields found == false.
func (o *ListOps[T]) LPop(ctx context.Context, key string) (T, bool, error) {
	return o.pop(ctx, "lpop", key, true)
}

func (o *ListOps[T]) RPop(ctx context.Context, key string) (T, bool, error) {
	return o.pop(ctx, "rpop", key, false)
}

func (o *ListOps[T]) pop(ctx context.Context, op, key string, head bool) (v T, found bool, err error) {
	ev := o.event(op, key)
	if err := o.c.begin(ctx, ev); err != nil {
		return v, false, err
	}
	var raw string
	if head {
		raw, found, err = o.c.backend.LPop(ctx, key)
	} else {
		raw, found, err = o.c.backend.RPop(ctx, key)
	}
	if err != nil {
		return v, false, o.c.fail(ev.with(err))
	}
	if !found {
		return v, false, nil
	}
	v, err = decodeAs[T](raw, o.l.elem)
	if err != nil {
		o.c.undecodable(ev.with(err))
		var zero T
		return zero, false, nil
	}
	return v, true, nil
}

// LRange returns the elements between start and stop inclusive; negative
// indexes count from the end. Undecodable elements are skipped.
func (o *ListOps[T]) LRange(ctx context.Context, key string, start, stop int64) ([]T, error) {
	ev := o.event("lrange", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return nil, err
	}
	raws, err := o.c.backend.LRange(ctx, key, start, stop)
	if err != nil {
		return nil, o.c.fail(ev.with(err))
	}
	return decodeAll[T](o.c, ev, raws, o.l.elem), nil
}

func (o *ListOps[T]) LLen(ctx context.Context, key string) (int64, error) {
	ev := o.event("llen", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, err
	}
	n, err := o.c.backend.LLen(ctx, key)
	if err != nil {
		return 0, o.c.fail(ev.with(err))
	}
	return n, nil
}
