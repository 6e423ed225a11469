package kvschema

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Options configures Compile.
type Options struct {
	// Observer receives failure and eviction events. When nil, a LogObserver
	// is used if Logger is set, otherwise events are dropped.
	Observer Observer
	Logger   *zerolog.Logger
}

// Client is a compiled schema bound to a backend. It holds a single logical
// connection, opened lazily by the first operation, and is safe for
// concurrent use.
type Client struct {
	backend Backend
	conn    conn
	obs     Observer

	bundles map[string]Bundle
	names   []string

	opCount       atomic.Uint64
	backendErrors atomic.Uint64
	decodeFails   atomic.Uint64
	evictions     atomic.Uint64
}

func (c *Client) Backend() Backend {
	return c.backend
}

// Names returns the schema entry names, sorted.
func (c *Client) Names() []string {
	return slices.Clone(c.names)
}

// Bundle returns the operation bundle of a schema entry, or nil.
func (c *Client) Bundle(name string) Bundle {
	return c.bundles[name]
}

func (c *Client) IsConnected() bool {
	return c.conn.isConnected()
}

// Quit closes the connection. It is a no-op when not connected.
func (c *Client) Quit(ctx context.Context) error {
	if err := c.conn.quit(ctx); err != nil {
		return c.fail(Event{Op: "quit", Err: err})
	}
	return nil
}

// Reconnect closes the connection if it is open, then connects again.
func (c *Client) Reconnect(ctx context.Context) error {
	err := c.conn.reconnect(ctx)
	if err != nil {
		c.backendErrors.Add(1)
		c.obs.BackendFailed(Event{Op: "reconnect", Err: err})
	}
	return err
}

func (c *Client) Ping(ctx context.Context) (string, error) {
	ev := Event{Op: "ping"}
	if err := c.begin(ctx, ev); err != nil {
		return "", err
	}
	s, err := c.backend.Ping(ctx)
	if err != nil {
		return "", c.fail(ev.with(err))
	}
	return s, nil
}

func (c *Client) Stats() Stats {
	return Stats{
		Ops:            c.opCount.Load(),
		BackendErrors:  c.backendErrors.Load(),
		DecodeFailures: c.decodeFails.Load(),
		Evictions:      c.evictions.Load(),
	}
}

// begin counts an operation and makes sure the connection is open.
func (c *Client) begin(ctx context.Context, ev Event) error {
	c.opCount.Add(1)
	err := c.conn.ensure(ctx)
	if err != nil {
		c.backendErrors.Add(1)
		c.obs.BackendFailed(ev.with(err))
	}
	return err
}

// fail reports a backend error and returns it wrapped in a *BackendError.
func (c *Client) fail(ev Event) error {
	c.backendErrors.Add(1)
	c.obs.BackendFailed(ev)
	return backendErr(ev.Schema, ev.Op, ev.Key, ev.Err)
}

func (c *Client) undecodable(ev Event) {
	c.decodeFails.Add(1)
	c.obs.DecodeFailed(ev)
}

// expire re-applies a descriptor TTL after a write.
func (c *Client) expire(ctx context.Context, ev Event, key string, ttl int) error {
	if ttl <= 0 {
		return nil
	}
	ev.Op = "expire"
	if err := c.backend.Expire(ctx, key, ttl); err != nil {
		return c.fail(ev.with(err))
	}
	return nil
}

func (ev Event) with(err error) Event {
	ev.Err = err
	return ev
}

// entryErrf formats a usage error about a schema entry.
func entryErrf(name string, err error, format string, args ...any) error {
	return fmt.Errorf("kvschema: %s: %s: %w", name, fmt.Sprintf(format, args...), err)
}
