package kvschema

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

var boltKeysBucket = []byte("keys")

// BoltOptions configures NewBoltBackend.
type BoltOptions struct {
	// Timeout bounds waiting for the file lock on Connect.
	Timeout time.Duration
	// NoSync trades durability for speed; meant for tests.
	NoSync bool
}

type boltBackend struct {
	engine

	path string
	opt  BoltOptions

	mu  sync.RWMutex
	bdb *bbolt.DB
}

// NewBoltBackend returns an embedded persistent Backend stored in a Bolt file
// at path. Connect opens the file and Quit closes it. Each key is one record
// holding a msgpack-encoded value, so every command is a single Bolt
// transaction.
func NewBoltBackend(path string, opt BoltOptions) Backend {
	return newBoltBackend(path, opt, time.Now)
}

func newBoltBackend(path string, opt BoltOptions, now func() time.Time) *boltBackend {
	b := &boltBackend{path: path, opt: opt}
	b.engine = engine{now: now, exec: b.exec}
	return b
}

func (b *boltBackend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bdb != nil {
		return nil
	}

	bopt := *bbolt.DefaultOptions
	bopt.Timeout = b.opt.Timeout
	if bopt.Timeout == 0 {
		bopt.Timeout = 10 * time.Second
	}
	if b.opt.NoSync {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	}

	bdb, err := bbolt.Open(b.path, 0666, &bopt)
	if err != nil {
		return fmt.Errorf("bolt: %w", err)
	}
	err = bdb.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(boltKeysBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return fmt.Errorf("bolt: %w", err)
	}
	b.bdb = bdb
	return nil
}

func (b *boltBackend) Quit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bdb == nil {
		return ErrNotConnected
	}
	err := b.bdb.Close()
	b.bdb = nil
	return err
}

func (b *boltBackend) Ping(ctx context.Context) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.bdb == nil {
		return "", ErrNotConnected
	}
	return "PONG", nil
}

func (b *boltBackend) exec(ctx context.Context, writable bool, f func(ks keyspace) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.bdb == nil {
		return ErrNotConnected
	}
	run := b.bdb.View
	if writable {
		run = b.bdb.Update
	}
	return run(func(btx *bbolt.Tx) error {
		return f(boltKeyspace{btx.Bucket(boltKeysBucket)})
	})
}

type boltKeyspace struct {
	b *bbolt.Bucket
}

func (ks boltKeyspace) load(key string) (*entry, error) {
	raw := ks.b.Get(unsafeBytesFromString(key))
	if raw == nil {
		return nil, nil
	}
	var e entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return nil, &DecodeError{Raw: string(raw), Err: fmt.Errorf("bolt record %q: %w", key, err)}
	}
	return &e, nil
}

func (ks boltKeyspace) store(key string, e *entry) error {
	if e == nil {
		return ks.b.Delete([]byte(key))
	}
	raw, err := msgpack.Marshal(e)
	if err != nil {
		return err
	}
	return ks.b.Put([]byte(key), raw)
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
