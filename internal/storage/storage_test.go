package storage_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

type stores struct {
	pages     domain.PageStore
	revisions domain.RevisionStore
}

func openSQLite(t *testing.T) stores {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	assert.Equal(t, "sqlite", db.Dialect())
	return stores{storage.NewPageStore(db), storage.NewRevisionStore(db)}
}

func openFiles(t *testing.T) stores {
	t.Helper()
	fs, err := storage.NewFileStore(filepath.Join(t.TempDir(), "pages"))
	require.NoError(t, err)
	return stores{fs, fs}
}

func backends() map[string]func(*testing.T) stores {
	return map[string]func(*testing.T) stores{
		"sqlite": openSQLite,
		"json":   openFiles,
	}
}

func samplePage(id, shop string) *domain.Page {
	z := 2
	return &domain.Page{
		ID:   id,
		Shop: shop,
		Slug: "/" + id,
		Components: domain.Tree{
			domain.NewContainer("hero", "Section", map[string]any{"padding": "8px"},
				domain.NewLeaf("title", "Text", map[string]any{"text": "Hello", "maxItems": float64(3)}),
			),
		},
		Editor: domain.Overlay{
			"title": {Name: "Title", ZIndex: &z, Hidden: []domain.Viewport{domain.ViewportMobile}},
		},
		Version: 1,
	}
}

func TestPageStore_RoundTrip(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			p := samplePage("home", "shop-1")
			require.NoError(t, s.pages.SavePage(ctx, p))
			assert.False(t, p.CreatedAt.IsZero())
			assert.Equal(t, domain.PageStatusDraft, p.Status)

			got, err := s.pages.GetPage(ctx, "home")
			require.NoError(t, err)
			assert.Equal(t, "shop-1", got.Shop)
			assert.Equal(t, int64(1), got.Version)
			assert.Equal(t, p.Components, got.Components)
			assert.Equal(t, "Title", got.Editor["title"].Name)
			assert.Equal(t, 2, *got.Editor["title"].ZIndex)
			assert.Equal(t, []domain.Viewport{domain.ViewportMobile}, got.Editor["title"].Hidden)
			assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Second)
			assert.Nil(t, got.PublishedAt)
		})
	}
}

func TestPageStore_UpsertAndPublish(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			p := samplePage("home", "shop-1")
			require.NoError(t, s.pages.SavePage(ctx, p))

			now := time.Now().UTC().Truncate(time.Second)
			p.Version = 2
			p.Status = domain.PageStatusPublished
			p.PublishedAt = &now
			p.Components = domain.Tree{}
			require.NoError(t, s.pages.SavePage(ctx, p))

			got, err := s.pages.GetPage(ctx, "home")
			require.NoError(t, err)
			assert.Equal(t, int64(2), got.Version)
			assert.Equal(t, domain.PageStatusPublished, got.Status)
			require.NotNil(t, got.PublishedAt)
			assert.True(t, now.Equal(*got.PublishedAt))
			assert.Empty(t, got.Components)

			all, err := s.pages.ListPages(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestPageStore_ListByShop(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			require.NoError(t, s.pages.SavePage(ctx, samplePage("a", "one")))
			require.NoError(t, s.pages.SavePage(ctx, samplePage("b", "two")))
			require.NoError(t, s.pages.SavePage(ctx, samplePage("c", "one")))

			one, err := s.pages.ListPages(ctx, "one")
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "c"}, pageIDs(one))

			all, err := s.pages.ListPages(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestPageStore_NotFound(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			_, err := s.pages.GetPage(ctx, "missing")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.ErrorIs(t, s.pages.DeletePage(ctx, "missing"), domain.ErrNotFound)
		})
	}
}

func TestRevisions_PushListPrune(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			require.NoError(t, s.pages.SavePage(ctx, samplePage("home", "")))

			for v := 1; v <= 5; v++ {
				r := &domain.Revision{
					PageID:     "home",
					Label:      fmt.Sprintf("edit %d", v),
					Version:    int64(v),
					Components: domain.Tree{domain.NewLeaf(fmt.Sprintf("n%d", v), "Text", nil)},
				}
				require.NoError(t, s.revisions.PushRevision(ctx, r))
				assert.NotEmpty(t, r.ID)
			}

			latest, err := s.revisions.ListRevisions(ctx, "home", 2)
			require.NoError(t, err)
			require.Len(t, latest, 2)
			assert.Equal(t, int64(5), latest[0].Version)
			assert.Equal(t, "n5", latest[0].Components[0].ID)

			got, err := s.revisions.GetRevision(ctx, latest[1].ID)
			require.NoError(t, err)
			assert.Equal(t, "edit 4", got.Label)

			ids, err := s.revisions.PageIDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"home"}, ids)

			removed, err := s.revisions.Prune(ctx, "home", 3)
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			left, err := s.revisions.ListRevisions(ctx, "home", 0)
			require.NoError(t, err)
			assert.Equal(t, []int64{5, 4, 3}, versions(left))

			removed, err = s.revisions.Prune(ctx, "home", 3)
			require.NoError(t, err)
			assert.Zero(t, removed)

			_, err = s.revisions.GetRevision(ctx, "missing")
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestDeletePage_RemovesRevisions(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			require.NoError(t, s.pages.SavePage(ctx, samplePage("home", "")))
			require.NoError(t, s.revisions.PushRevision(ctx, &domain.Revision{PageID: "home", Version: 1}))

			require.NoError(t, s.pages.DeletePage(ctx, "home"))

			revs, err := s.revisions.ListRevisions(ctx, "home", 0)
			require.NoError(t, err)
			assert.Empty(t, revs)
		})
	}
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	s := openFiles(t)
	ctx := context.Background()

	assert.Error(t, s.pages.SavePage(ctx, &domain.Page{ID: "../escape"}))
	_, err := s.pages.GetPage(ctx, "a/b")
	assert.Error(t, err)
}

func TestPageIDFromPath(t *testing.T) {
	id, ok := storage.PageIDFromPath("/data/pages/home.json")
	assert.True(t, ok)
	assert.Equal(t, "home", id)

	_, ok = storage.PageIDFromPath("/data/pages/.tmp-123")
	assert.False(t, ok)
	_, ok = storage.PageIDFromPath("/data/pages/readme.txt")
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	cfg.Backend = "json"
	b, err := storage.Open(ctx, cfg)
	require.NoError(t, err)
	assert.NotNil(t, b.Files)
	assert.NotNil(t, b.Cache)
	require.NoError(t, b.Pages.SavePage(ctx, samplePage("home", "")))
	require.NoError(t, b.Close())

	cfg.Backend = ""
	cfg.CacheSize = 0
	b, err = storage.Open(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", b.Name)
	assert.Nil(t, b.Cache)
	require.NoError(t, b.Close())

	cfg.Backend = "cassandra"
	_, err = storage.Open(ctx, cfg)
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}

func pageIDs(pages []domain.Page) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.ID)
	}
	return out
}

func versions(revs []domain.Revision) []int64 {
	out := make([]int64, 0, len(revs))
	for _, r := range revs {
		out = append(out, r.Version)
	}
	return out
}
