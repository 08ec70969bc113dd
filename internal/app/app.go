// Package app wires configuration, storage and services together. Every
// entry point (MCP server, CLI commands) builds one App and closes it when
// done.
package app

import (
	"context"
	"fmt"
	"log"

	"pagebuilder/internal/config"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

// App owns the opened backend and the services running on it.
type App struct {
	Config  config.Config
	Backend *storage.Backend
	Pages   *service.PageService

	emitter   service.EventEmitter
	compactor *service.Compactor
	files     *service.FileWatcher
	poller    *pageWatcher
}

// Options selects the background workers to start.
type Options struct {
	Emitter service.EventEmitter
	// Background starts the revision compactor and, when cfg.Watch is set,
	// the change watcher.
	Background bool
}

// New opens storage and builds the services.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	emitter := opts.Emitter
	if emitter == nil {
		emitter = service.LogEmitter{}
	}

	pageOpts := service.PageOptions{HistoryLimit: cfg.HistoryLimit}
	if backend.Cache != nil {
		pageOpts.Cache = backend.Cache
	}
	a := &App{
		Config:  cfg,
		Backend: backend,
		Pages:   service.NewPageService(backend.Pages, backend.Revisions, emitter, pageOpts),
		emitter: emitter,
	}

	if opts.Background {
		if err := a.startBackground(ctx); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

func (a *App) startBackground(ctx context.Context) error {
	if a.Config.RevisionsKeep > 0 && a.Config.CompactSchedule != "" {
		a.compactor = service.NewCompactor(a.Backend.Revisions, a.Config.RevisionsKeep, a.emitter)
		if err := a.compactor.Start(ctx, a.Config.CompactSchedule); err != nil {
			return err
		}
	}

	if !a.Config.Watch {
		return nil
	}
	if a.Backend.Files != nil {
		a.files = service.NewFileWatcher(a.Backend.Files, a.Pages)
		if err := a.files.Start(ctx); err != nil {
			return fmt.Errorf("start file watcher: %w", err)
		}
		return nil
	}
	a.poller = newPageWatcher(a.Backend.Pages, a.Pages, defaultPollInterval)
	a.poller.Start(ctx)
	return nil
}

// Compact prunes revisions once, outside the schedule.
func (a *App) Compact(ctx context.Context) (int, error) {
	c := a.compactor
	if c == nil {
		c = service.NewCompactor(a.Backend.Revisions, a.Config.RevisionsKeep, a.emitter)
	}
	return c.RunOnce(ctx)
}

// Close stops the workers, the sessions and the backend, in that order.
func (a *App) Close(ctx context.Context) {
	if a.poller != nil {
		a.poller.Stop()
	}
	if a.files != nil {
		a.files.Stop()
	}
	if a.compactor != nil {
		a.compactor.Stop()
	}
	a.Pages.Close(ctx)
	if err := a.Backend.Close(); err != nil {
		log.Printf("[app] close storage: %v", err)
	}
}
