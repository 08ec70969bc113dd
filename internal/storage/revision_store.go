package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
)

// RevisionStore implements domain.RevisionStore on any SQL dialect.
type RevisionStore struct {
	db *DB
}

func NewRevisionStore(db *DB) *RevisionStore {
	return &RevisionStore{db: db}
}

// PushRevision stores r, assigning an id and timestamp when missing.
func (s *RevisionStore) PushRevision(ctx context.Context, r *domain.Revision) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	components, err := encodeTree(r.Components)
	if err != nil {
		return err
	}
	_, err = s.db.Conn().ExecContext(ctx, s.db.q(
		`INSERT INTO page_revisions (id, page_id, label, version, components_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		r.ID, r.PageID, r.Label, r.Version, components, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// ListRevisions returns the newest revisions of pageID first. limit <= 0
// returns all of them.
func (s *RevisionStore) ListRevisions(ctx context.Context, pageID string, limit int) ([]domain.Revision, error) {
	query := `SELECT id, page_id, label, version, components_json, created_at
		 FROM page_revisions WHERE page_id = ? ORDER BY version DESC, created_at DESC`
	args := []any{pageID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Conn().QueryContext(ctx, s.db.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var out []domain.Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *RevisionStore) GetRevision(ctx context.Context, id string) (*domain.Revision, error) {
	row := s.db.Conn().QueryRowContext(ctx, s.db.q(
		`SELECT id, page_id, label, version, components_json, created_at FROM page_revisions WHERE id = ?`), id)
	r, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get revision %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision %s: %w", id, err)
	}
	return r, nil
}

func scanRevision(row rowScanner) (*domain.Revision, error) {
	var r domain.Revision
	var components string
	if err := row.Scan(&r.ID, &r.PageID, &r.Label, &r.Version, &components, &r.CreatedAt); err != nil {
		return nil, err
	}
	t, err := decodeTree("revision "+r.ID, components)
	if err != nil {
		return nil, err
	}
	r.Components = t
	return &r, nil
}

// Prune deletes the oldest revisions of pageID so that at most keep remain,
// and reports how many were removed.
func (s *RevisionStore) Prune(ctx context.Context, pageID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	var count int
	if err := s.db.Conn().QueryRowContext(ctx, s.db.q(
		`SELECT COUNT(*) FROM page_revisions WHERE page_id = ?`), pageID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count revisions: %w", err)
	}
	if count <= keep {
		return 0, nil
	}

	// collect ids first, the cursor must be closed before any write
	rows, err := s.db.Conn().QueryContext(ctx, s.db.q(
		`SELECT id FROM page_revisions WHERE page_id = ?
		 ORDER BY version ASC, created_at ASC LIMIT ?`), pageID, count-keep)
	if err != nil {
		return 0, fmt.Errorf("select old revisions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan revision id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, s.db.q(`DELETE FROM page_revisions WHERE id = ?`), id); err != nil {
			return 0, fmt.Errorf("delete revision %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// PageIDs lists every page that has revisions.
func (s *RevisionStore) PageIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT DISTINCT page_id FROM page_revisions ORDER BY page_id`)
	if err != nil {
		return nil, fmt.Errorf("list revision pages: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
