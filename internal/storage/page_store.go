package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

const pageSelect = `SELECT id, shop, slug, status, components_json, editor_json, version, published_at, created_at, updated_at FROM pages`

// PageStore implements domain.PageStore on any SQL dialect.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (*domain.Page, error) {
	var (
		p           domain.Page
		status      string
		components  string
		editor      string
		publishedAt sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Shop, &p.Slug, &status, &components, &editor, &p.Version, &publishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.PageStatus(status)
	if publishedAt.Valid {
		t := publishedAt.Time
		p.PublishedAt = &t
	}

	owner := "page " + p.ID
	var err error
	if p.Components, err = decodeTree(owner, components); err != nil {
		return nil, err
	}
	if p.Editor, err = decodeOverlay(owner, editor); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PageStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	row := s.db.Conn().QueryRowContext(ctx, s.db.q(pageSelect+` WHERE id = ?`), id)
	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get page %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", id, err)
	}
	return p, nil
}

// ListPages returns the pages of shop, or every page when shop is empty.
func (s *PageStore) ListPages(ctx context.Context, shop string) ([]domain.Page, error) {
	query := pageSelect
	var args []any
	if shop != "" {
		query += ` WHERE shop = ?`
		args = append(args, shop)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.Conn().QueryContext(ctx, s.db.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// SavePage inserts or replaces p. Timestamps are filled in when zero.
func (s *PageStore) SavePage(ctx context.Context, p *domain.Page) error {
	components, err := encodeTree(p.Components)
	if err != nil {
		return err
	}
	editor, err := encodeOverlay(p.Editor)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = domain.PageStatusDraft
	}
	var publishedAt sql.NullTime
	if p.PublishedAt != nil {
		publishedAt = sql.NullTime{Time: p.PublishedAt.UTC(), Valid: true}
	}

	_, err = s.db.Conn().ExecContext(ctx, s.db.q(
		`INSERT INTO pages (id, shop, slug, status, components_json, editor_json, version, published_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`+s.db.dialect.upsert),
		p.ID, p.Shop, p.Slug, string(p.Status), components, editor, p.Version, publishedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save page %s: %w", p.ID, err)
	}
	return nil
}

// DeletePage removes the page and its revisions.
func (s *PageStore) DeletePage(ctx context.Context, id string) error {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.db.q(`DELETE FROM pages WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete page %s: %w", id, domain.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, s.db.q(`DELETE FROM page_revisions WHERE page_id = ?`), id); err != nil {
		return fmt.Errorf("delete revisions of %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *PageStore) Close() error {
	return s.db.Close()
}
