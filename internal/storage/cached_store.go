package storage

import (
	"context"
	"maps"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"pagebuilder/internal/domain"
)

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        2 * time.Minute,
		MaxEntries: 256,
	}
}

// CachedStore puts an expiring LRU in front of a PageStore. Pages are
// copied on the way in and out so callers never share a cached value.
type CachedStore struct {
	origin domain.PageStore
	pages  *expirable.LRU[string, *domain.Page]
}

func NewCachedStore(origin domain.PageStore, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	return &CachedStore{
		origin: origin,
		pages:  expirable.NewLRU[string, *domain.Page](cfg.MaxEntries, nil, cfg.TTL),
	}
}

func (s *CachedStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	if p, ok := s.pages.Get(id); ok {
		return clonePage(p), nil
	}
	p, err := s.origin.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	s.pages.Add(id, clonePage(p))
	return p, nil
}

// ListPages always reads through; listings are not cached.
func (s *CachedStore) ListPages(ctx context.Context, shop string) ([]domain.Page, error) {
	return s.origin.ListPages(ctx, shop)
}

func (s *CachedStore) SavePage(ctx context.Context, p *domain.Page) error {
	if err := s.origin.SavePage(ctx, p); err != nil {
		s.pages.Remove(p.ID)
		return err
	}
	s.pages.Add(p.ID, clonePage(p))
	return nil
}

func (s *CachedStore) DeletePage(ctx context.Context, id string) error {
	s.pages.Remove(id)
	return s.origin.DeletePage(ctx, id)
}

// Invalidate drops id from the cache, e.g. after an external edit.
func (s *CachedStore) Invalidate(id string) {
	s.pages.Remove(id)
}

func (s *CachedStore) Close() error {
	s.pages.Purge()
	return s.origin.Close()
}

// clonePage copies the mutable parts of p. Components are immutable values
// and are shared.
func clonePage(p *domain.Page) *domain.Page {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Components = append(domain.Tree(nil), p.Components...)
	if cp.Components == nil {
		cp.Components = domain.Tree{}
	}
	if p.Editor != nil {
		cp.Editor = maps.Clone(p.Editor)
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}
