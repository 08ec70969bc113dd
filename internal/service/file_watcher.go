package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// FileWatcher — notices page files edited outside the service
// ─────────────────────────────────────────────────────────────

const watchDebounce = 200 * time.Millisecond

// FileWatcher watches the json store directory. Each changed page file is
// re-read after a short debounce and reported to the PageService, which
// ignores the writes it made itself.
type FileWatcher struct {
	files *storage.FileStore
	pages *PageService

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewFileWatcher(files *storage.FileStore, pages *PageService) *FileWatcher {
	return &FileWatcher{files: files, pages: pages}
}

// Start begins watching. Call Stop to release the watcher.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.Stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(w.files.Root()); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", w.files.Root(), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.mu.Lock()
	w.watcher, w.cancel, w.done = watcher, cancel, done
	w.mu.Unlock()

	go w.loop(watchCtx, watcher, done)
	log.Printf("[watcher] watching %s", w.files.Root())
	return nil
}

func (w *FileWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			id, ok := storage.PageIDFromPath(event.Name)
			if !ok {
				continue
			}
			if t, exists := timers[id]; exists {
				t.Stop()
			}
			timers[id] = time.AfterFunc(watchDebounce, func() { w.check(ctx, id) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		}
	}
}

func (w *FileWatcher) check(ctx context.Context, id string) {
	if ctx.Err() != nil {
		return
	}
	version := int64(-1)
	p, err := w.files.GetPage(ctx, id)
	switch {
	case err == nil:
		version = p.Version
	case errors.Is(err, domain.ErrNotFound):
	default:
		log.Printf("[watcher] read %s: %v", id, err)
		return
	}
	w.pages.NoteExternalChange(ctx, id, version)
}

// Stop closes the watcher and waits for its loop to exit.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	watcher, cancel, done := w.watcher, w.cancel, w.done
	w.watcher, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		watcher.Close()
	}
	if done != nil {
		<-done
	}
}
