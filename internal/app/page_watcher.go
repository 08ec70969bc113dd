package app

import (
	"context"
	"log"
	"sync"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
)

const defaultPollInterval = 2 * time.Second

// pageWatcher polls a database backend for page versions written by other
// processes (e.g. a CLI apply while the MCP server runs) and reports them
// to the PageService. The json backend uses the fsnotify watcher instead.
type pageWatcher struct {
	store    domain.PageStore
	pages    *service.PageService
	interval time.Duration

	mu   sync.Mutex
	last map[string]int64 // page id → version at the previous poll

	stopCh chan struct{}
	done   chan struct{}
}

func newPageWatcher(store domain.PageStore, pages *service.PageService, interval time.Duration) *pageWatcher {
	return &pageWatcher{store: store, pages: pages, interval: interval}
}

// Start begins the polling loop. Should be called once.
func (w *pageWatcher) Start(ctx context.Context) {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop(ctx)
}

// Stop terminates the polling loop and waits for it.
func (w *pageWatcher) Stop() {
	if w.stopCh != nil {
		close(w.stopCh)
		<-w.done
		w.stopCh = nil
	}
}

func (w *pageWatcher) pollLoop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.check(ctx)
	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *pageWatcher) check(ctx context.Context) {
	list, err := w.store.ListPages(ctx, "")
	if err != nil {
		log.Printf("[watcher] poll pages: %v", err)
		return
	}

	current := make(map[string]int64, len(list))
	for _, p := range list {
		current[p.ID] = p.Version
	}

	w.mu.Lock()
	previous := w.last
	w.last = current
	w.mu.Unlock()

	// First poll only records the baseline.
	if previous == nil {
		return
	}
	for id, v := range current {
		if old, ok := previous[id]; ok && old != v {
			w.pages.NoteExternalChange(ctx, id, v)
		}
	}
	for id := range previous {
		if _, ok := current[id]; !ok {
			w.pages.NoteExternalChange(ctx, id, -1)
		}
	}
}
