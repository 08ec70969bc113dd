package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
)

// FileStore keeps one JSON document per page under root, and revisions
// under root/revisions/<pageID>/. It implements both domain.PageStore and
// domain.RevisionStore.
type FileStore struct {
	root string
	mu   sync.Mutex
}

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("file store: root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, "revisions"), 0o755); err != nil {
		return nil, fmt.Errorf("create page directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Root is the directory pages live in.
func (s *FileStore) Root() string { return s.root }

// PageIDFromPath maps a page file path back to its id.
func PageIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".json") || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, ".json"), true
}

type pageFile struct {
	domain.Page
	Components json.RawMessage `json:"components"`
	Editor     json.RawMessage `json:"editor,omitempty"`
}

type revisionFile struct {
	domain.Revision
	Components json.RawMessage `json:"components"`
}

func checkName(kind, id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid %s id %q", kind, id)
	}
	return nil
}

func (s *FileStore) pagePath(id string) string {
	return filepath.Join(s.root, id+".json")
}

func (s *FileStore) revisionDir(pageID string) string {
	return filepath.Join(s.root, "revisions", pageID)
}

// writeAtomic replaces path via a temp file and rename, so readers never
// see a half-written document.
func writeAtomic(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) readPage(path string) (*domain.Page, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f pageFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	p := f.Page
	owner := "page " + p.ID
	if p.Components, err = decodeTree(owner, string(f.Components)); err != nil {
		return nil, err
	}
	if p.Editor, err = decodeOverlay(owner, string(f.Editor)); err != nil {
		return nil, err
	}
	return &p, nil
}

// ── PageStore ───────────────────────────────────────────────

func (s *FileStore) GetPage(_ context.Context, id string) (*domain.Page, error) {
	if err := checkName("page", id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.readPage(s.pagePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("get page %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", id, err)
	}
	return p, nil
}

func (s *FileStore) ListPages(_ context.Context, shop string) ([]domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var pages []domain.Page
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := PageIDFromPath(e.Name()); !ok {
			continue
		}
		p, err := s.readPage(filepath.Join(s.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("list pages: %w", err)
		}
		if shop != "" && p.Shop != shop {
			continue
		}
		pages = append(pages, *p)
	}
	sort.Slice(pages, func(i, j int) bool {
		if !pages[i].CreatedAt.Equal(pages[j].CreatedAt) {
			return pages[i].CreatedAt.Before(pages[j].CreatedAt)
		}
		return pages[i].ID < pages[j].ID
	})
	return pages, nil
}

func (s *FileStore) SavePage(_ context.Context, p *domain.Page) error {
	if err := checkName("page", p.ID); err != nil {
		return err
	}
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

	s.mu.Lock()
	defer s.mu.Unlock()
	f := pageFile{Page: *p, Components: json.RawMessage(components), Editor: json.RawMessage(editor)}
	if err := writeAtomic(s.pagePath(p.ID), f); err != nil {
		return fmt.Errorf("save page %s: %w", p.ID, err)
	}
	return nil
}

func (s *FileStore) DeletePage(_ context.Context, id string) error {
	if err := checkName("page", id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.pagePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete page %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	if err := os.RemoveAll(s.revisionDir(id)); err != nil {
		return fmt.Errorf("delete revisions of %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// ── RevisionStore ───────────────────────────────────────────

func (s *FileStore) PushRevision(_ context.Context, r *domain.Revision) error {
	if err := checkName("page", r.PageID); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if err := checkName("revision", r.ID); err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	components, err := encodeTree(r.Components)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f := revisionFile{Revision: *r, Components: json.RawMessage(components)}
	if err := writeAtomic(filepath.Join(s.revisionDir(r.PageID), r.ID+".json"), f); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// revisionsLocked returns the revisions of pageID, newest first.
func (s *FileStore) revisionsLocked(pageID string) ([]domain.Revision, error) {
	dir := s.revisionDir(pageID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []domain.Revision
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		r, err := readRevision(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return out[i].Version > out[j].Version
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func readRevision(path string) (*domain.Revision, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f revisionFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	r := f.Revision
	if r.Components, err = decodeTree("revision "+r.ID, string(f.Components)); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *FileStore) ListRevisions(_ context.Context, pageID string, limit int) ([]domain.Revision, error) {
	if err := checkName("page", pageID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.revisionsLocked(pageID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetRevision scans every page's revision directory; ids are globally unique.
func (s *FileStore) GetRevision(_ context.Context, id string) (*domain.Revision, error) {
	if err := checkName("revision", id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(s.root, "revisions", "*", id+".json"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("get revision %s: %w", id, domain.ErrNotFound)
	}
	return readRevision(matches[0])
}

func (s *FileStore) Prune(_ context.Context, pageID string, keep int) (int, error) {
	if err := checkName("page", pageID); err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	revs, err := s.revisionsLocked(pageID)
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", pageID, err)
	}
	if len(revs) <= keep {
		return 0, nil
	}
	removed := 0
	for _, r := range revs[keep:] {
		if err := os.Remove(filepath.Join(s.revisionDir(pageID), r.ID+".json")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("delete revision %s: %w", r.ID, err)
		}
		removed++
	}
	return removed, nil
}

func (s *FileStore) PageIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.root, "revisions"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
