package kvschema

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// conn tracks whether the shared backend connection is open. Concurrent
// callers that find it closed share a single Connect call.
type conn struct {
	backend Backend

	mu        sync.Mutex
	connected bool
	gen       uint64 // bumped by quit; a connect started before it is discarded
	connects  singleflight.Group
}

func (c *conn) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ensure connects unless already connected. On failure the state stays
// disconnected and a *ConnectionError is returned.
//
// The shared Connect runs under a context detached from the caller's
// cancellation, so one caller giving up does not fail the others; backends
// bound it with their own dial timeouts. A quit that lands while Connect is
// in flight wins: the new connection is closed and callers get
// ErrNotConnected.
func (c *conn) ensure(ctx context.Context) error {
	if c.isConnected() {
		return nil
	}
	_, err, _ := c.connects.Do("connect", func() (any, error) {
		c.mu.Lock()
		if c.connected {
			c.mu.Unlock()
			return nil, nil
		}
		gen := c.gen
		c.mu.Unlock()

		cctx := context.WithoutCancel(ctx)
		if err := c.backend.Connect(cctx); err != nil {
			return nil, &ConnectionError{Op: "connect", Err: err}
		}

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			c.backend.Quit(cctx)
			return nil, &ConnectionError{Op: "connect", Err: ErrNotConnected}
		}
		c.connected = true
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// quit is a no-op on the backend when disconnected. The state becomes
// disconnected even if the backend fails to close.
func (c *conn) quit(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()
	return c.backend.Quit(ctx)
}

func (c *conn) reconnect(ctx context.Context) error {
	if err := c.quit(ctx); err != nil {
		return &ConnectionError{Op: "reconnect", Err: err}
	}
	return c.ensure(ctx)
}
