// Package storage persists pages and their revisions. Open picks the
// backend from configuration; callers only see the domain interfaces.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
)

// ErrUnknownBackend is returned for a backend name Open does not know.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend bundles the stores of one opened backend.
type Backend struct {
	Name      string
	Pages     domain.PageStore
	Revisions domain.RevisionStore

	// Cache is the caching layer in front of Pages, nil when disabled.
	Cache *CachedStore
	// Files is set for the json backend so its directory can be watched.
	Files *FileStore
}

func (b *Backend) Close() error {
	return b.Pages.Close()
}

// Open opens the backend named by cfg.Backend: sqlite (default), postgres,
// pgx, mysql, json or mongo.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	name := cfg.Backend
	if name == "" {
		name = "sqlite"
	}

	b := &Backend{Name: name}
	switch name {
	case "sqlite":
		path := cfg.DSN
		if path == "" {
			path = cfg.SQLitePath()
		}
		db, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		b.Pages, b.Revisions = NewPageStore(db), NewRevisionStore(db)

	case "postgres", "pgx", "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			if name == "mysql" {
				dsn = buildMySQLDSN(cfg.DB)
			} else {
				dsn = buildPostgresDSN(cfg.DB)
			}
		}
		db, err := OpenSQL(ctx, name, dsn)
		if err != nil {
			return nil, err
		}
		b.Pages, b.Revisions = NewPageStore(db), NewRevisionStore(db)

	case "json":
		fs, err := NewFileStore(cfg.PagesDir())
		if err != nil {
			return nil, err
		}
		b.Pages, b.Revisions, b.Files = fs, fs, fs

	case "mongo":
		uri, dbName := buildMongoURI(cfg.DSN, cfg.DB)
		ms, err := OpenMongo(ctx, uri, dbName)
		if err != nil {
			return nil, err
		}
		b.Pages, b.Revisions = ms, ms

	default:
		return nil, fmt.Errorf("open %q: %w", name, ErrUnknownBackend)
	}

	if cfg.CacheSize > 0 {
		b.Cache = NewCachedStore(b.Pages, CacheConfig{TTL: cfg.CacheTTL, MaxEntries: cfg.CacheSize})
		b.Pages = b.Cache
	}
	log.Printf("[storage] backend %s (cache=%t)", name, b.Cache != nil)
	return b, nil
}
