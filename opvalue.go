package kvschema

import "context"

// ValueOps operates on string and JSON keys.
type ValueOps[T any] struct {
	c    *Client
	name string
	d    Typed[T]
}

func (v Value[T]) newBundle(c *Client, name string) Bundle {
	return &ValueOps[T]{c: c, name: name, d: v}
}

func (v Doc[T]) newBundle(c *Client, name string) Bundle {
	return &ValueOps[T]{c: c, name: name, d: v}
}

func (o *ValueOps[T]) Name() string           { return o.name }
func (o *ValueOps[T]) Descriptor() Descriptor { return o.d }

func (o *ValueOps[T]) event(op, key string) Event {
	return Event{Schema: o.name, Op: op, Key: key}
}

// Get returns the value stored at key. A missing key yields the configured
// default with found == true, or found == false without one. A stored value
// that cannot be decoded is reported to the Observer and yields found == false.
func (o *ValueOps[T]) Get(ctx context.Context, key string) (v T, found bool, err error) {
	ev := o.event("get", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return v, false, err
	}
	raw, found, err := o.c.backend.Get(ctx, key)
	if err != nil {
		return v, false, o.c.fail(ev.with(err))
	}
	if !found {
		if d := o.d.core(); d.info.HasDefault {
			def, _ := d.defaultValue().(T)
			return def, true, nil
		}
		return v, false, nil
	}
	v, err = decodeAs[T](raw, o.d)
	if err != nil {
		o.c.undecodable(ev.with(err))
		var zero T
		return zero, false, nil
	}
	return v, true, nil
}

// Set stores v at key, applying the TTL if one is configured.
func (o *ValueOps[T]) Set(ctx context.Context, key string, v T) error {
	raw, err := encodeFor(o.name, v, o.d)
	if err != nil {
		return err
	}
	ev := o.event("set", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return err
	}
	if ttl := o.d.core().info.TTL; ttl > 0 {
		err = o.c.backend.SetEx(ctx, key, raw, ttl)
	} else {
		err = o.c.backend.Set(ctx, key, raw)
	}
	if err != nil {
		return o.c.fail(ev.with(err))
	}
	return nil
}

func (o *ValueOps[T]) Del(ctx context.Context, key string) (int64, error) {
	ev := o.event("del", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, err
	}
	n, err := o.c.backend.Del(ctx, key)
	if err != nil {
		return 0, o.c.fail(ev.with(err))
	}
	return n, nil
}

func (o *ValueOps[T]) Exists(ctx context.Context, key string) (bool, error) {
	ev := o.event("exists", key)
	if err := o.c.begin(ctx, ev); err != nil {
		return false, err
	}
	ok, err := o.c.backend.Exists(ctx, key)
	if err != nil {
		return false, o.c.fail(ev.with(err))
	}
	return ok, nil
}

// encodeFor is Encode with the schema entry name attached to errors.
func encodeFor(name string, v any, d Descriptor) (string, error) {
	raw, err := Encode(v, d)
	if se, ok := err.(*SerializationError); ok {
		se.Schema = name
	}
	return raw, err
}

func encodeAll[T any](name string, values []T, d Descriptor) ([]string, error) {
	raws := make([]string, len(values))
	for i, v := range values {
		raw, err := encodeFor(name, v, d)
		if err != nil {
			return nil, err
		}
		raws[i] = raw
	}
	return raws, nil
}

// decodeAll decodes elements, skipping (and reporting) undecodable ones.
func decodeAll[T any](c *Client, ev Event, raws []string, d Descriptor) []T {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		v, err := decodeAs[T](raw, d)
		if err != nil {
			c.undecodable(ev.with(err))
			continue
		}
		out = append(out, v)
	}
	return out
}
