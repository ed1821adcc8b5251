// Package cache is the key-value cache seam used by the resolver's
// per-step lookups (spec §2, §4.3, §5: "best-effort; its miss path must
// always be defined"). The default Memory store is a simple TTL map;
// a Redis-backed store is not built because no repository in the
// reference pack imports a Redis client (see DESIGN.md) — the
// interface is the documented extension point.
package cache

import (
	"context"
	"sync"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is a process-local TTL cache, safe for concurrent use. Expired
// entries are swept lazily on read rather than with a background
// goroutine, so a cold cache never spins a timer.
type Memory struct {
	mu sync.Mutex
	m  map[string]entry
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]entry)}
}

func (c *Memory) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.m, key)
		return nil, false
	}
	return e.value, true
}

func (c *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = entry{value: value, expires: time.Now().Add(ttl)}
}

// Null never hits, the "miss path always defined" guarantee made
// concrete for callers that run with no cache configured.
type Null struct{}

func (Null) Get(ctx context.Context, key string) ([]byte, bool)         { return nil, false }
func (Null) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {}
