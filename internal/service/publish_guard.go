package service

import (
	"context"
	"errors"
	"sync"
)

// ErrPublishInProgress is returned when a page is already being published.
var ErrPublishInProgress = errors.New("publish already in progress")

// ExportedKeyGuard is an exported alias so _test packages can test the guard.
type ExportedKeyGuard = keyGuard

// ─────────────────────────────────────────────────────────────
// keyGuard — prevents concurrent execution per key
// ─────────────────────────────────────────────────────────────

// keyGuard ensures only one holder per key at a time. Publishing uses it
// per page id and the compactor uses it for its single run key.
type keyGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock attempts to mark key as held. Returns false if it already is.
func (g *keyGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases key. Must be called after TryLock returns true.
func (g *keyGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
	g.wg.Done()
}

// WaitAll blocks until every held key is released or ctx is cancelled.
func (g *keyGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
