package kvschema

import "context"

// HashOps operates on hashes with a declared set of fields.
type HashOps struct {
	c    *Client
	name string
	h    HashType
}

func (o *HashOps) Name() string           { return o.name }
func (o *HashOps) Descriptor() Descriptor { return o.h }

func (o *HashOps) event(op, key, field string) Event {
	return Event{Schema: o.name, Op: op, Key: key, Field: field}
}

func (o *HashOps) field(name string) (FieldDescriptor, error) {
	fd, ok := o.h.fields[name]
	if !ok {
		return nil, entryErrf(o.name, ErrUnknownField, "field %q", name)
	}
	return fd, nil
}

// HGet returns one field. A missing field yields its default (found == true)
// or found == false.
func (o *HashOps) HGet(ctx context.Context, key, field string) (any, bool, error) {
	fd, err := o.field(field)
	if err != nil {
		return nil, false, err
	}
	ev := o.event("hget", key, field)
	if err := o.c.begin(ctx, ev); err != nil {
		return nil, false, err
	}
	raw, found, err := o.c.backend.HGet(ctx, key, field)
	if err != nil {
		return nil, false, o.c.fail(ev.with(err))
	}
	if !found {
		if d := fd.core(); d.info.HasDefault {
			return d.defaultValue(), true, nil
		}
		return nil, false, nil
	}
	v, err := Decode(raw, fd)
	if err != nil {
		o.c.undecodable(ev.with(err))
		return nil, false, nil
	}
	return v, true, nil
}

// HSet stores a single field. It does not touch the hash's TTL; use HSetMap
// for writes that should refresh it.
func (o *HashOps) HSet(ctx context.Context, key, field string, value any) error {
	fd, err := o.field(field)
	if err != nil {
		return err
	}
	raw, err := encodeFor(o.name, value, fd)
	if err != nil {
		return err
	}
	ev := o.event("hset", key, field)
	if err := o.c.begin(ctx, ev); err != nil {
		return err
	}
	if err := o.c.backend.HSet(ctx, key, field, raw); err != nil {
		return o.c.fail(ev.with(err))
	}
	return nil
}

// HSetMap stores several fields at once and re-applies the hash's TTL.
// All values are encoded before anything is written.
func (o *HashOps) HSetMap(ctx context.Context, key string, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	raws := make(map[string]string, len(values))
	for field, value := range values {
		fd, err := o.field(field)
		if err != nil {
			return err
		}
		raw, err := encodeFor(o.name, value, fd)
		if err != nil {
			return err
		}
		raws[field] = raw
	}
	ev := o.event("hset", key, "")
	if err := o.c.begin(ctx, ev); err != nil {
		return err
	}
	if err := o.c.backend.HSetMany(ctx, key, raws); err != nil {
		return o.c.fail(ev.with(err))
	}
	return o.c.expire(ctx, ev, key, o.h.d.info.TTL)
}

// HGetAll returns every stored field, decoded, plus the defaults of declared
// fields the hash does not contain. Fields that fail to decode are left out
// (and reported). found is false only when the hash does not exist.
//
// Stored fields the hash does not declare are returned as raw strings.
func (o *HashOps) HGetAll(ctx context.Context, key string) (map[string]any, bool, error) {
	ev := o.event("hgetall", key, "")
	if err := o.c.begin(ctx, ev); err != nil {
		return nil, false, err
	}
	raws, err := o.c.backend.HGetAll(ctx, key)
	if err != nil {
		return nil, false, o.c.fail(ev.with(err))
	}
	if len(raws) == 0 {
		return nil, false, nil
	}

	result := make(map[string]any, len(o.h.fields))
	for field, raw := range raws {
		fd, ok := o.h.fields[field]
		if !ok {
			result[field] = raw
			continue
		}
		v, err := Decode(raw, fd)
		if err != nil {
			fev := ev
			fev.Field = field
			o.c.undecodable(fev.with(err))
			continue
		}
		result[field] = v
	}
	for field, fd := range o.h.fields {
		if _, stored := raws[field]; stored {
			continue
		}
		if _, ok := result[field]; ok {
			continue
		}
		if d := fd.core(); d.info.HasDefault {
			result[field] = d.defaultValue()
		}
	}
	return result, true, nil
}

func (o *HashOps) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	ev := o.event("hdel", key, "")
	if err := o.c.begin(ctx, ev); err != nil {
		return 0, err
	}
	n, err := o.c.backend.HDel(ctx, key, fields...)
	if err != nil {
		return 0, o.c.fail(ev.with(err))
	}
	return n, nil
}

func (o *HashOps) HExists(ctx context.Context, key, field string) (bool, error) {
	ev := o.event("hexists", key, field)
	if err := o.c.begin(ctx, ev); err != nil {
		return false, err
	}
	ok, err := o.c.backend.HExists(ctx, key, field)
	if err != nil {
		return false, o.c.fail(ev.with(err))
	}
	return ok, nil
}

// FieldAs extracts a field of a HGetAll result as T.
func FieldAs[T any](m map[string]any, name string) (T, bool) {
	v, ok := m[name].(T)
	return v, ok
}
