package kvschema

import (
	"context"
	"errors"
	"testing"
)

var errBoom = errors.New("boom")

func TestBackendErrorPropagates(t *testing.T) {
	ctx := context.Background()
	c, fb, rec := setupFaulty(t, Schema{"v": String()})
	v := ValueOf[string](c, "v")

	fb.failOn("get", errBoom)
	_, _, err := v.Get(ctx, "k")
	if !errors.Is(err, errBoom) {
		t.Fatalf("** err = %v, wanted errBoom", err)
	}
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("** err = %T, wanted *BackendError", err)
	}
	deepEqual(t, be.Schema, "v")
	deepEqual(t, be.Op, "get")
	deepEqual(t, be.Key, "k")

	failures := rec.Failures()
	if len(failures) != 1 {
		t.Fatalf("** got %d failure events, wanted 1", len(failures))
	}
	deepEqual(t, failures[0].Op, "get")
	deepEqual(t, c.Stats().BackendErrors, uint64(1))

	fb.failOn("get", nil)
	_, found := must2(v.Get(ctx, "k"))
	deepEqual(t, found, false)
}

func TestListTrimFailureKeepsPush(t *testing.T) {
	ctx := context.Background()
	c, fb, rec := setupFaulty(t, Schema{"l": List(String()).MaxLength(1)})
	l := ListOf[string](c, "l")

	fb.failOn("ltrim", errBoom)
	n, err := l.RPush(ctx, "k", "a", "b")
	deepEqual(t, n, int64(2))
	if !errors.Is(err, errBoom) {
		t.Fatalf("** err = %v, wanted errBoom", err)
	}
	deepEqual(t, rec.Failures()[0].Op, "ltrim")
	deepEqual(t, rec.TotalEvicted(), int64(0))

	fb.failOn("ltrim", nil)
	deepEqual(t, must(l.LRange(ctx, "k", 0, -1)), []string{"a", "b"})
}

func TestSetTrimFailureKeepsAdd(t *testing.T) {
	ctx := context.Background()
	c, fb, rec := setupFaulty(t, Schema{"s": Set(String()).MaxSize(1)})
	s := SetOf[string](c, "s")

	fb.failOn("spop", errBoom)
	n, err := s.SAdd(ctx, "k", "a", "b", "c")
	deepEqual(t, n, int64(3))
	if !errors.Is(err, errBoom) {
		t.Fatalf("** err = %v, wanted errBoom", err)
	}
	deepEqual(t, must(s.SCard(ctx, "k")), int64(3))
	deepEqual(t, rec.Failures()[0].Op, "spop")
}

func TestSortedSetTrimFailureKeepsAdd(t *testing.T) {
	ctx := context.Background()
	c, fb, _ := setupFaulty(t, Schema{"z": SortedSet(String()).MaxSize(1)})
	z := SortedSetOf[string](c, "z")

	must(z.ZAdd(ctx, "k", 1, "a"))
	fb.failOn("zremrangebyrank", errBoom)
	n, err := z.ZAdd(ctx, "k", 2, "b")
	deepEqual(t, n, int64(1))
	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("** err = %v, wanted *BackendError", err)
	}
	deepEqual(t, be.Op, "zremrangebyrank")
	deepEqual(t, must(z.ZRange(ctx, "k", 0, -1)), []string{"a", "b"})
}

func TestExpireFailure(t *testing.T) {
	ctx := context.Background()
	c, fb, _ := setupFaulty(t, Schema{"h": Hash(Fields{"a": HashString()}).TTL(10)})
	h := HashOf(c, "h")

	fb.failOn("expire", errBoom)
	err := h.HSetMap(ctx, "k", map[string]any{"a": "x"})
	if !errors.Is(err, errBoom) {
		t.Fatalf("** err = %v, wanted errBoom", err)
	}
	v, found := must2(h.HGet(ctx, "k", "a"))
	deepEqual(t, v, any("x"))
	deepEqual(t, found, true)
}

func TestWriteFailureSkipsFollowUps(t *testing.T) {
	ctx := context.Background()
	c, fb, _ := setupFaulty(t, Schema{"h": Hash(Fields{"a": HashString()}).TTL(10)})
	h := HashOf(c, "h")

	fb.failOn("hsetmany", errBoom)
	err := h.HSetMap(ctx, "k", map[string]any{"a": "x"})
	if !errors.Is(err, errBoom) {
		t.Fatalf("** err = %v, wanted errBoom", err)
	}
	deepEqual(t, fb.callCount("expire"), 0)
}
