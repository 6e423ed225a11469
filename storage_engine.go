package kvschema

import (
	"context"
	"maps"
	"slices"
	"sort"
	"time"
)

type entryKind uint8

const (
	entryString entryKind = iota + 1
	entryHash
	entryList
	entrySet
	entrySortedSet
)

// entry is one key of the built-in backends. The Bolt backend stores it
// msgpack-encoded, so the field tags are part of the file format.
type entry struct {
	Kind     entryKind          `msgpack:"k"`
	Str      string             `msgpack:"s,omitempty"`
	Hash     map[string]string  `msgpack:"h,omitempty"`
	List     []string           `msgpack:"l,omitempty"`
	Set      map[string]bool    `msgpack:"m,omitempty"`
	ZSet     map[string]float64 `msgpack:"z,omitempty"`
	ExpireAt int64              `msgpack:"x,omitempty"` // unix millis, 0 = persistent
}

func (e *entry) empty() bool {
	switch e.Kind {
	case entryHash:
		return len(e.Hash) == 0
	case entryList:
		return len(e.List) == 0
	case entrySet:
		return len(e.Set) == 0
	case entrySortedSet:
		return len(e.ZSet) == 0
	default:
		return false
	}
}

func (e *entry) expired(now time.Time) bool {
	return e.ExpireAt != 0 && e.ExpireAt <= now.UnixMilli()
}

type zmember struct {
	member string
	score  float64
}

// sortedMembers orders by score, then lexicographically by member.
func (e *entry) sortedMembers() []zmember {
	ms := make([]zmember, 0, len(e.ZSet))
	for m, s := range e.ZSet {
		ms = append(ms, zmember{m, s})
	}
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].score != ms[j].score {
			return ms[i].score < ms[j].score
		}
		return ms[i].member < ms[j].member
	})
	return ms
}

// keyspace is the view of the stored keys inside one engine transaction.
type keyspace interface {
	// load returns nil for a missing key; it does not check expiry.
	load(key string) (*entry, error)
	// store deletes the key when e is nil.
	store(key string, e *entry) error
}

// engine implements the data commands of Backend on top of a keyspace. The
// memory and Bolt backends only differ in how they run a transaction.
type engine struct {
	now  func() time.Time
	exec func(ctx context.Context, writable bool, f func(ks keyspace) error) error
}

func (en *engine) lookup(ks keyspace, key string, kind entryKind) (*entry, error) {
	e, err := ks.load(key)
	if err != nil || e == nil {
		return nil, err
	}
	if e.expired(en.now()) {
		return nil, nil
	}
	if kind != 0 && e.Kind != kind {
		return nil, ErrWrongType
	}
	return e, nil
}

func (en *engine) lookupOrCreate(ks keyspace, key string, kind entryKind) (*entry, error) {
	e, err := en.lookup(ks, key, kind)
	if err != nil || e != nil {
		return e, err
	}
	e = &entry{Kind: kind}
	switch kind {
	case entryHash:
		e.Hash = make(map[string]string)
	case entrySet:
		e.Set = make(map[string]bool)
	case entrySortedSet:
		e.ZSet = make(map[string]float64)
	}
	return e, nil
}

func (en *engine) save(ks keyspace, key string, e *entry) error {
	if e == nil || e.empty() {
		return ks.store(key, nil)
	}
	return ks.store(key, e)
}

func (en *engine) read(ctx context.Context, f func(ks keyspace) error) error {
	return en.exec(ctx, false, f)
}

func (en *engine) write(ctx context.Context, f func(ks keyspace) error) error {
	return en.exec(ctx, true, f)
}

func (en *engine) Get(ctx context.Context, key string) (val string, found bool, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entryString)
		if e != nil {
			val, found = e.Str, true
		}
		return err
	})
	return
}

func (en *engine) Set(ctx context.Context, key, val string) error {
	return en.write(ctx, func(ks keyspace) error {
		return ks.store(key, &entry{Kind: entryString, Str: val})
	})
}

func (en *engine) SetEx(ctx context.Context, key, val string, seconds int) error {
	return en.write(ctx, func(ks keyspace) error {
		return ks.store(key, &entry{
			Kind:     entryString,
			Str:      val,
			ExpireAt: en.now().Add(time.Duration(seconds) * time.Second).UnixMilli(),
		})
	})
}

func (en *engine) Del(ctx context.Context, key string) (n int64, err error) {
	err = en.write(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, 0)
		if err != nil || e == nil {
			return err
		}
		n = 1
		return ks.store(key, nil)
	})
	return
}

func (en *engine) Exists(ctx context.Context, key string) (ok bool, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, 0)
		ok = e != nil
		return err
	})
	return
}

func (en *engine) Expire(ctx context.Context, key string, seconds int) error {
	return en.write(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, 0)
		if err != nil || e == nil {
			return err
		}
		if seconds <= 0 {
			return ks.store(key, nil)
		}
		e.ExpireAt = en.now().Add(time.Duration(seconds) * time.Second).UnixMilli()
		return ks.store(key, e)
	})
}

func (en *engine) HGet(ctx context.Context, key, field string) (val string, found bool, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entryHash)
		if e != nil {
			val, found = e.Hash[field]
		}
		return err
	})
	return
}

func (en *engine) HSet(ctx context.Context, key, field, val string) error {
	return en.HSetMany(ctx, key, map[string]string{field: val})
}

func (en *engine) HSetMany(ctx context.Context, key string, values map[string]string) error {
	return en.write(ctx, func(ks keyspace) error {
		e, err := en.lookupOrCreate(ks, key, entryHash)
		if err != nil {
			return err
		}
		maps.Copy(e.Hash, values)
		return en.save(ks, key, e)
	})
}

func (en *engine) HGetAll(ctx context.Context, key string) (m map[string]string, err error) {
	m = make(map[string]string)
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entryHash)
		if e != nil {
			maps.Copy(m, e.Hash)
		}
		return err
	})
	return
}

func (en *engine) HDel(ctx context.Context, key string, fields ...string) (n int64, err error) {
	err = en.write(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entryHash)
		if err != nil || e == nil {
			return err
		}
		for _, f := range fields {
			if _, ok := e.Hash[f]; ok {
				delete(e.Hash, f)
				n++
			}
		}
		return en.save(ks, key, e)
	})
	return
}

func (en *engine) HExists(ctx context.Context, key, field string) (ok bool, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entryHash)
		if e != nil {
			_, ok = e.Hash[field]
		}
		return err
	})
	return
}

func (en *engine) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	return en.push(ctx, key, values, true)
}

func (en *engine) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	return en.push(ctx, key, values, false)
}

func (en *engine) push(ctx context.Context, key string, values []string, head bool) (n int64, err error) {
	err = en.write(ctx, func(ks keyspace) error {
		e, err := en.lookupOrCreate(ks, key, entryList)
		if err != nil {
			return err
		}
		if head {
			rev := slices.Clone(values)
			slices.Reverse(rev)
			e.List = append(rev, e.List...)
		} else {
			e.List = append(e.List, values...)
		}
		n = int64(len(e.List))
		return en.save(ks, key, e)
	})
	return
}

func (en *engine) LPop(ctx context.Context, key string) (string, bool, error) {
	return en.pop(ctx, key, true)
}

func (en *engine) RPop(ctx context.Context, key string) (string, bool, error) {
	return en.pop(ctx, key, false)
}

func (en *engine) pop(ctx context.Context, key string, head bool) (val string, found bool, err error) {
	err = en.write(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entryList)
		if err != nil || e == nil {
			return err
		}
		n := len(e.List)
		if head {
			val, e.List = e.List[0], e.List[1:]
		} else {
			val, e.List = e.List[n-1], e.List[:n-1]
		}
		found = true
		return en.save(ks, key, e)
	})
	return
}

func (en *engine) LRange(ctx context.Context, key string, start, stop int64) (out []string, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entryList)
		if err != nil || e == nil {
			return err
		}
		if lo, hi, ok := normRange(start, stop, int64(len(e.List))); ok {
			out = slices.Clone(e.List[lo : hi+1])
		}
		return nil
	})
	return
}

func (en *engine) LLen(ctx context.Context, key string) (n int64, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entryList)
		if e != nil {
			n = int64(len(e.List))
		}
		return err
	})
	return
}

func (en *engine) LTrim(ctx context.Context, key string, start, stop int64) error {
	return en.write(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entryList)
		if err != nil || e == nil {
			return err
		}
		if lo, hi, ok := normRange(start, stop, int64(len(e.List))); ok {
			e.List = slices.Clone(e.List[lo : hi+1])
		} else {
			e.List = nil
		}
		return en.save(ks, key, e)
	})
}

func (en *engine) SAdd(ctx context.Context, key string, members ...string) (n int64, err error) {
	err = en.write(ctx, func(ks keyspace) error {
		e, err := en.lookupOrCreate(ks, key, entrySet)
		if err != nil {
			return err
		}
		for _, m := range members {
			if !e.Set[m] {
				e.Set[m] = true
				n++
			}
		}
		return en.save(ks, key, e)
	})
	return
}

func (en *engine) SRem(ctx context.Context, key string, members ...string) (n int64, err error) {
	err = en.write(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySet)
		if err != nil || e == nil {
			return err
		}
		for _, m := range members {
			if e.Set[m] {
				delete(e.Set, m)
				n++
			}
		}
		return en.save(ks, key, e)
	})
	return
}

func (en *engine) SMembers(ctx context.Context, key string) (out []string, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySet)
		if e != nil {
			out = slices.Sorted(maps.Keys(e.Set))
		}
		return err
	})
	return
}

func (en *engine) SIsMember(ctx context.Context, key, member string) (ok bool, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySet)
		if e != nil {
			ok = e.Set[member]
		}
		return err
	})
	return
}

func (en *engine) SCard(ctx context.Context, key string) (n int64, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySet)
		if e != nil {
			n = int64(len(e.Set))
		}
		return err
	})
	return
}

// SPop removes whichever member map iteration yields first, which Go
// randomizes.
func (en *engine) SPop(ctx context.Context, key string) (val string, found bool, err error) {
	err = en.write(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySet)
		if err != nil || e == nil {
			return err
		}
		for m := range e.Set {
			val, found = m, true
			break
		}
		delete(e.Set, val)
		return en.save(ks, key, e)
	})
	return
}

func (en *engine) ZAdd(ctx context.Context, key string, score float64, member string) (n int64, err error) {
	err = en.write(ctx, func(ks keyspace) error {
		e, err := en.lookupOrCreate(ks, key, entrySortedSet)
		if err != nil {
			return err
		}
		if _, ok := e.ZSet[member]; !ok {
			n = 1
		}
		e.ZSet[member] = score
		return en.save(ks, key, e)
	})
	return
}

func (en *engine) ZRem(ctx context.Context, key string, members ...string) (n int64, err error) {
	err = en.write(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySortedSet)
		if err != nil || e == nil {
			return err
		}
		for _, m := range members {
			if _, ok := e.ZSet[m]; ok {
				delete(e.ZSet, m)
				n++
			}
		}
		return en.save(ks, key, e)
	})
	return
}

func (en *engine) ZRange(ctx context.Context, key string, start, stop int64) (out []string, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySortedSet)
		if err != nil || e == nil {
			return err
		}
		ms := e.sortedMembers()
		if lo, hi, ok := normRange(start, stop, int64(len(ms))); ok {
			for _, zm := range ms[lo : hi+1] {
				out = append(out, zm.member)
			}
		}
		return nil
	})
	return
}

func (en *engine) ZRank(ctx context.Context, key, member string) (rank int64, found bool, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySortedSet)
		if err != nil || e == nil {
			return err
		}
		for i, zm := range e.sortedMembers() {
			if zm.member == member {
				rank, found = int64(i), true
				break
			}
		}
		return nil
	})
	return
}

func (en *engine) ZScore(ctx context.Context, key, member string) (score float64, found bool, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySortedSet)
		if e != nil {
			score, found = e.ZSet[member]
		}
		return err
	})
	return
}

func (en *engine) ZCard(ctx context.Context, key string) (n int64, err error) {
	err = en.read(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySortedSet)
		if e != nil {
			n = int64(len(e.ZSet))
		}
		return err
	})
	return
}

func (en *engine) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error {
	return en.write(ctx, func(ks keyspace) error {
		e, err := en.lookup(ks, key, entrySortedSet)
		if err != nil || e == nil {
			return err
		}
		ms := e.sortedMembers()
		if lo, hi, ok := normRange(start, stop, int64(len(ms))); ok {
			for _, zm := range ms[lo : hi+1] {
				delete(e.ZSet, zm.member)
			}
		}
		return en.save(ks, key, e)
	})
}

// normRange resolves Redis-style inclusive indexes (negative ones count from
// the end) against a sequence of length n.
func normRange(start, stop, n int64) (lo, hi int64, ok bool) {
	if start < 0 {
		start = max(start+n, 0)
	}
	if stop < 0 {
		stop += n
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
