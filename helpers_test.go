package kvschema

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func must2[T1, T2 any](v1 T1, v2 T2, err error) (T1, T2) {
	if err != nil {
		panic(err)
	}
	return v1, v2
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isempty[T any, S ~[]T](t testing.TB, a S) {
	if len(a) > 0 {
		t.Helper()
		t.Errorf("** got %v, wanted empty slice", a)
	}
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}

// fakeClock is a settable time source for the built-in backends.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recorder is an Observer that keeps every event.
type recorder struct {
	mu       sync.Mutex
	failures []Event
	decodes  []Event
	evicts   []Event
	evicted  int64
}

func (r *recorder) BackendFailed(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, ev)
}

func (r *recorder) DecodeFailed(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decodes = append(r.decodes, ev)
}

func (r *recorder) Evicted(ev Event, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicts = append(r.evicts, ev)
	r.evicted += n
}

func (r *recorder) Failures() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.failures...)
}

func (r *recorder) Decodes() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.decodes...)
}

func (r *recorder) TotalEvicted() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evicted
}

// faultBackend wraps a Backend, failing selected commands and counting calls.
type faultBackend struct {
	Backend

	mu           sync.Mutex
	faults       map[string]error
	calls        map[string]int
	connectDelay time.Duration
	connectGate  chan struct{} // when set, Connect blocks until it is closed
	connectErr   error         // ctx.Err() seen by the last Connect, once it returns
}

func newFaultBackend(b Backend) *faultBackend {
	return &faultBackend{Backend: b, faults: make(map[string]error), calls: make(map[string]int)}
}

func (f *faultBackend) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.faults, op)
	} else {
		f.faults[op] = err
	}
}

func (f *faultBackend) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *faultBackend) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.faults[op]
}

func (f *faultBackend) Connect(ctx context.Context) error {
	if err := f.check("connect"); err != nil {
		return err
	}
	if f.connectDelay > 0 {
		time.Sleep(f.connectDelay)
	}
	if f.connectGate != nil {
		<-f.connectGate
	}
	f.mu.Lock()
	f.connectErr = ctx.Err()
	f.mu.Unlock()
	return f.Backend.Connect(ctx)
}

// waitForConnect blocks until Connect has been called n times.
func (f *faultBackend) waitForConnect(t testing.TB, n int) {
	t.Helper()
	for range 200 {
		if f.callCount("connect") >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("** Connect was not called %d times", n)
}

func (f *faultBackend) Quit(ctx context.Context) error {
	if err := f.check("quit"); err != nil {
		return err
	}
	return f.Backend.Quit(ctx)
}

func (f *faultBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := f.check("get"); err != nil {
		return "", false, err
	}
	return f.Backend.Get(ctx, key)
}

func (f *faultBackend) Set(ctx context.Context, key, val string) error {
	if err := f.check("set"); err != nil {
		return err
	}
	return f.Backend.Set(ctx, key, val)
}

func (f *faultBackend) Expire(ctx context.Context, key string, seconds int) error {
	if err := f.check("expire"); err != nil {
		return err
	}
	return f.Backend.Expire(ctx, key, seconds)
}

func (f *faultBackend) HSetMany(ctx context.Context, key string, values map[string]string) error {
	if err := f.check("hsetmany"); err != nil {
		return err
	}
	return f.Backend.HSetMany(ctx, key, values)
}

func (f *faultBackend) LTrim(ctx context.Context, key string, start, stop int64) error {
	if err := f.check("ltrim"); err != nil {
		return err
	}
	return f.Backend.LTrim(ctx, key, start, stop)
}

func (f *faultBackend) SPop(ctx context.Context, key string) (string, bool, error) {
	if err := f.check("spop"); err != nil {
		return "", false, err
	}
	return f.Backend.SPop(ctx, key)
}

func (f *faultBackend) ZCard(ctx context.Context, key string) (int64, error) {
	if err := f.check("zcard"); err != nil {
		return 0, err
	}
	return f.Backend.ZCard(ctx, key)
}

func (f *faultBackend) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error {
	if err := f.check("zremrangebyrank"); err != nil {
		return err
	}
	return f.Backend.ZRemRangeByRank(ctx, key, start, stop)
}

// setup compiles scm against a fresh in-memory backend driven by clock.
func setup(t testing.TB, scm Schema, clock *fakeClock) (*Client, *recorder) {
	t.Helper()
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	rec := &recorder{}
	c := must(Compile(newMemBackend(now), scm, Options{Observer: rec}))
	t.Cleanup(func() { c.Quit(context.Background()) })
	return c, rec
}

// setupFaulty is setup with a faultBackend between the client and the store.
func setupFaulty(t testing.TB, scm Schema) (*Client, *faultBackend, *recorder) {
	t.Helper()
	fb := newFaultBackend(newMemBackend(time.Now))
	rec := &recorder{}
	c := must(Compile(fb, scm, Options{Observer: rec}))
	return c, fb, rec
}

// rawBackend connects c and returns its backend for writing wire text directly.
func rawBackend(t testing.TB, c *Client) Backend {
	t.Helper()
	ensure(c.conn.ensure(context.Background()))
	return c.Backend()
}

func rawGet(t testing.TB, c *Client, key string) string {
	t.Helper()
	v, _ := must2(rawBackend(t, c).Get(context.Background(), key))
	return v
}
