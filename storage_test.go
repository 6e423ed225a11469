package kvschema

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type backendFixture struct {
	name    string
	backend Backend
	advance func(d time.Duration)
}

func backendFixtures(t *testing.T) []backendFixture {
	memClock := newFakeClock()
	boltClock := newFakeClock()
	mr := miniredis.RunT(t)
	return []backendFixture{
		{"memory", newMemBackend(memClock.Now), memClock.Advance},
		{"bolt", newBoltBackend(filepath.Join(t.TempDir(), "kv.db"), BoltOptions{NoSync: true}, boltClock.Now), boltClock.Advance},
		{"redis", NewRedisBackend(&redis.Options{Addr: mr.Addr()}), mr.FastForward},
	}
}

func forEachBackend(t *testing.T, f func(t *testing.T, b Backend, advance func(time.Duration))) {
	for _, fx := range backendFixtures(t) {
		t.Run(fx.name, func(t *testing.T) {
			ctx := context.Background()
			ensure(fx.backend.Connect(ctx))
			t.Cleanup(func() { fx.backend.Quit(ctx) })
			f(t, fx.backend, fx.advance)
		})
	}
}

func TestBackendStrings(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend, advance func(time.Duration)) {
		ctx := context.Background()

		_, found := must2(b.Get(ctx, "s"))
		deepEqual(t, found, false)

		ensure(b.Set(ctx, "s", "v1"))
		v, found := must2(b.Get(ctx, "s"))
		deepEqual(t, v, "v1")
		deepEqual(t, found, true)
		deepEqual(t, must(b.Exists(ctx, "s")), true)

		deepEqual(t, must(b.Del(ctx, "s")), int64(1))
		deepEqual(t, must(b.Del(ctx, "s")), int64(0))
		deepEqual(t, must(b.Exists(ctx, "s")), false)
	})
}

func TestBackendExpiry(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend, advance func(time.Duration)) {
		ctx := context.Background()

		ensure(b.SetEx(ctx, "a", "1", 10))
		must(b.RPush(ctx, "l", "x"))
		ensure(b.Expire(ctx, "l", 5))
		ensure(b.Expire(ctx, "missing", 5))

		advance(6 * time.Second)
		deepEqual(t, must(b.Exists(ctx, "a")), true)
		deepEqual(t, must(b.Exists(ctx, "l")), false)
		deepEqual(t, must(b.LLen(ctx, "l")), int64(0))

		advance(5 * time.Second)
		_, found := must2(b.Get(ctx, "a"))
		deepEqual(t, found, false)

		// a plain SET clears the TTL
		ensure(b.SetEx(ctx, "c", "1", 10))
		ensure(b.Set(ctx, "c", "2"))
		advance(20 * time.Second)
		deepEqual(t, must(b.Exists(ctx, "c")), true)
	})
}

func TestBackendHashes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend, advance func(time.Duration)) {
		ctx := context.Background()

		deepEqual(t, len(must(b.HGetAll(ctx, "h"))), 0)
		_, found := must2(b.HGet(ctx, "h", "a"))
		deepEqual(t, found, false)

		ensure(b.HSet(ctx, "h", "a", "1"))
		ensure(b.HSetMany(ctx, "h", map[string]string{"b": "2", "c": "3"}))
		v, found := must2(b.HGet(ctx, "h", "b"))
		deepEqual(t, v, "2")
		deepEqual(t, found, true)
		deepEqual(t, must(b.HGetAll(ctx, "h")), map[string]string{"a": "1", "b": "2", "c": "3"})
		deepEqual(t, must(b.HExists(ctx, "h", "c")), true)

		deepEqual(t, must(b.HDel(ctx, "h", "a", "zz")), int64(1))
		deepEqual(t, must(b.HExists(ctx, "h", "a")), false)

		// removing the last field removes the key
		deepEqual(t, must(b.HDel(ctx, "h", "b", "c")), int64(2))
		deepEqual(t, must(b.Exists(ctx, "h")), false)
	})
}

func TestBackendLists(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend, advance func(time.Duration)) {
		ctx := context.Background()

		deepEqual(t, must(b.RPush(ctx, "l", "a", "b")), int64(2))
		deepEqual(t, must(b.LPush(ctx, "l", "y", "z")), int64(4))
		deepEqual(t, must(b.LRange(ctx, "l", 0, -1)), []string{"z", "y", "a", "b"})
		deepEqual(t, must(b.LRange(ctx, "l", -2, 10)), []string{"a", "b"})
		deepEqual(t, len(must(b.LRange(ctx, "l", 3, 1))), 0)

		ensure(b.LTrim(ctx, "l", 1, 2))
		deepEqual(t, must(b.LRange(ctx, "l", 0, -1)), []string{"y", "a"})

		v, found := must2(b.LPop(ctx, "l"))
		deepEqual(t, v, "y")
		deepEqual(t, found, true)
		v, found = must2(b.RPop(ctx, "l"))
		deepEqual(t, v, "a")
		deepEqual(t, found, true)
		_, found = must2(b.RPop(ctx, "l"))
		deepEqual(t, found, false)
		deepEqual(t, must(b.LLen(ctx, "l")), int64(0))
		deepEqual(t, must(b.Exists(ctx, "l")), false)

		must(b.RPush(ctx, "l", "a", "b", "c"))
		ensure(b.LTrim(ctx, "l", -2, -1))
		deepEqual(t, must(b.LRange(ctx, "l", 0, -1)), []string{"b", "c"})
	})
}

func TestBackendSets(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend, advance func(time.Duration)) {
		ctx := context.Background()

		deepEqual(t, must(b.SAdd(ctx, "s", "a", "b", "a")), int64(2))
		deepEqual(t, must(b.SCard(ctx, "s")), int64(2))
		deepEqual(t, must(b.SIsMember(ctx, "s", "b")), true)
		members := must(b.SMembers(ctx, "s"))
		slices.Sort(members)
		deepEqual(t, members, []string{"a", "b"})

		deepEqual(t, must(b.SRem(ctx, "s", "a", "q")), int64(1))
		v, found := must2(b.SPop(ctx, "s"))
		deepEqual(t, v, "b")
		deepEqual(t, found, true)
		_, found = must2(b.SPop(ctx, "s"))
		deepEqual(t, found, false)
		deepEqual(t, must(b.SCard(ctx, "s")), int64(0))
	})
}

func TestBackendSortedSets(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend, advance func(time.Duration)) {
		ctx := context.Background()

		deepEqual(t, must(b.ZAdd(ctx, "z", 2, "b")), int64(1))
		deepEqual(t, must(b.ZAdd(ctx, "z", 1, "a")), int64(1))
		deepEqual(t, must(b.ZAdd(ctx, "z", 3, "c")), int64(1))
		deepEqual(t, must(b.ZAdd(ctx, "z", 0.5, "c")), int64(0))
		deepEqual(t, must(b.ZRange(ctx, "z", 0, -1)), []string{"c", "a", "b"})
		deepEqual(t, must(b.ZCard(ctx, "z")), int64(3))

		rank, found := must2(b.ZRank(ctx, "z", "b"))
		deepEqual(t, rank, int64(2))
		deepEqual(t, found, true)
		_, found = must2(b.ZRank(ctx, "z", "nope"))
		deepEqual(t, found, false)

		score, found := must2(b.ZScore(ctx, "z", "a"))
		deepEqual(t, score, float64(1))
		deepEqual(t, found, true)

		ensure(b.ZRemRangeByRank(ctx, "z", 0, 0))
		deepEqual(t, must(b.ZRange(ctx, "z", 0, -1)), []string{"a", "b"})
		deepEqual(t, must(b.ZRem(ctx, "z", "a", "x")), int64(1))
		deepEqual(t, must(b.ZRange(ctx, "z", 0, -1)), []string{"b"})
	})
}

func TestBackendWrongType(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend, advance func(time.Duration)) {
		ctx := context.Background()

		ensure(b.Set(ctx, "k", "v"))
		_, err := b.LPush(ctx, "k", "x")
		if err == nil || !strings.Contains(err.Error(), "WRONGTYPE") {
			t.Errorf("** LPush on a string: err = %v, wanted WRONGTYPE", err)
		}
		_, _, err = b.HGet(ctx, "k", "f")
		if err == nil || !strings.Contains(err.Error(), "WRONGTYPE") {
			t.Errorf("** HGet on a string: err = %v, wanted WRONGTYPE", err)
		}
	})
}

func TestBackendNotConnected(t *testing.T) {
	ctx := context.Background()
	for _, fx := range backendFixtures(t) {
		t.Run(fx.name, func(t *testing.T) {
			_, _, err := fx.backend.Get(ctx, "k")
			if !errors.Is(err, ErrNotConnected) {
				t.Errorf("** Get before Connect: err = %v, wanted ErrNotConnected", err)
			}
			if err := fx.backend.Quit(ctx); !errors.Is(err, ErrNotConnected) {
				t.Errorf("** Quit before Connect: err = %v, wanted ErrNotConnected", err)
			}
		})
	}
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	b := NewBoltBackend(path, BoltOptions{})
	ensure(b.Connect(ctx))
	ensure(b.Set(ctx, "s", "hello"))
	must(b.ZAdd(ctx, "z", 1, "a"))
	ensure(b.Quit(ctx))

	b = NewBoltBackend(path, BoltOptions{})
	ensure(b.Connect(ctx))
	defer b.Quit(ctx)
	v, found := must2(b.Get(ctx, "s"))
	deepEqual(t, v, "hello")
	deepEqual(t, found, true)
	deepEqual(t, must(b.ZRange(ctx, "z", 0, -1)), []string{"a"})
}

func TestNormRange(t *testing.T) {
	tests := []struct {
		start, stop, n int64
		lo, hi         int64
		ok             bool
	}{
		{0, -1, 3, 0, 2, true},
		{-2, -1, 3, 1, 2, true},
		{-10, 1, 3, 0, 1, true},
		{1, 100, 3, 1, 2, true},
		{2, 1, 3, 0, 0, false},
		{3, 5, 3, 0, 0, false},
		{0, -1, 0, 0, 0, false},
		{0, -4, 3, 0, 0, false},
	}
	for _, tt := range tests {
		lo, hi, ok := normRange(tt.start, tt.stop, tt.n)
		if lo != tt.lo || hi != tt.hi || ok != tt.ok {
			t.Errorf("** normRange(%d, %d, %d) = %d, %d, %v, wanted %d, %d, %v", tt.start, tt.stop, tt.n, lo, hi, ok, tt.lo, tt.hi, tt.ok)
		}
	}
}
