package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

type PageStatus string

const (
	PageStatusDraft     PageStatus = "draft"
	PageStatusPublished PageStatus = "published"
)

// Page is one editable page of a shop: the canonical component tree plus the
// editor overlay kept next to it.
type Page struct {
	ID          string     `json:"id"`
	Shop        string     `json:"shop"`
	Slug        string     `json:"slug"`
	Status      PageStatus `json:"status"`
	Components  Tree       `json:"components"`
	Editor      Overlay    `json:"editor,omitempty"`
	Version     int64      `json:"version"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Revision is a stored snapshot of a page tree, one per applied edit.
type Revision struct {
	ID         string    `json:"id"`
	PageID     string    `json:"pageId"`
	Label      string    `json:"label"`
	Version    int64     `json:"version"`
	Components Tree      `json:"components"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PageStore persists pages. Implementations pick their own encoding; the
// tree engine never sees which backend is active.
type PageStore interface {
	GetPage(ctx context.Context, id string) (*Page, error)
	ListPages(ctx context.Context, shop string) ([]Page, error)
	SavePage(ctx context.Context, p *Page) error
	DeletePage(ctx context.Context, id string) error
	Close() error
}

// RevisionStore keeps page snapshots for history browsing and restore.
type RevisionStore interface {
	PushRevision(ctx context.Context, r *Revision) error
	ListRevisions(ctx context.Context, pageID string, limit int) ([]Revision, error)
	GetRevision(ctx context.Context, id string) (*Revision, error)
	Prune(ctx context.Context, pageID string, keep int) (int, error)
	PageIDs(ctx context.Context) ([]string, error)
}
