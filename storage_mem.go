package kvschema

import (
	"context"
	"sync"
	"time"
)

type memBackend struct {
	engine

	mu        sync.Mutex
	keys      map[string]*entry
	connected bool
	connects  int
}

// NewMemoryBackend returns a transient in-process Backend with Redis
// semantics, including key expiry. Data survives Quit/Connect cycles but not
// the process.
func NewMemoryBackend() Backend {
	return newMemBackend(time.Now)
}

func newMemBackend(now func() time.Time) *memBackend {
	b := &memBackend{keys: make(map[string]*entry)}
	b.engine = engine{now: now, exec: b.exec}
	return b
}

func (b *memBackend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	b.connects++
	return nil
}

func (b *memBackend) Quit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return ErrNotConnected
	}
	b.connected = false
	return nil
}

func (b *memBackend) Ping(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return "", ErrNotConnected
	}
	return "PONG", nil
}

func (b *memBackend) exec(ctx context.Context, writable bool, f func(ks keyspace) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return ErrNotConnected
	}
	return f(memKeyspace{b.keys})
}

type memKeyspace struct {
	keys map[string]*entry
}

func (ks memKeyspace) load(key string) (*entry, error) {
	return ks.keys[key], nil
}

func (ks memKeyspace) store(key string, e *entry) error {
	if e == nil {
		delete(ks.keys, key)
	} else {
		ks.keys[key] = e
	}
	return nil
}
