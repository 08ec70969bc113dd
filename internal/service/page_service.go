package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/tree"
)

// ─────────────────────────────────────────────────────────────
// Page Service — load, edit, save and publish pages
// ─────────────────────────────────────────────────────────────

var (
	ErrPageExists      = errors.New("page already exists")
	ErrUnknownViewport = errors.New("unknown viewport")
)

// Invalidator drops cached copies of a page.
type Invalidator interface {
	Invalidate(id string)
}

// PageOptions tunes a PageService. Zero values pick the defaults.
type PageOptions struct {
	HistoryLimit int
	IDs          tree.IDGenerator
	// Cache is invalidated when a page changes outside this process.
	Cache Invalidator
}

// PageInput describes a page to create.
type PageInput struct {
	ID         string
	Shop       string
	Slug       string
	Components domain.Tree
}

// PageChange is the payload of page events.
type PageChange struct {
	PageID  string `json:"pageId"`
	Version int64  `json:"version"`
	Label   string `json:"label,omitempty"`
}

// ApplyResult is what an edit returns to the caller.
type ApplyResult struct {
	Components domain.Tree       `json:"components"`
	Version    int64             `json:"version"`
	CreatedID  string            `json:"createdId,omitempty"`
	IDMap      map[string]string `json:"idMap,omitempty"`
	CanUndo    bool              `json:"canUndo"`
	CanRedo    bool              `json:"canRedo"`
}

// HistoryInfo summarises the undo stack of a page.
type HistoryInfo struct {
	Past    int  `json:"past"`
	Future  int  `json:"future"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// PageService owns one editor session per open page. Every committed edit
// saves the page, pushes a revision and emits page:changed.
type PageService struct {
	pages     domain.PageStore
	revisions domain.RevisionStore
	emitter   EventEmitter
	ids       tree.IDGenerator
	limit     int
	cache     Invalidator

	mu       sync.Mutex
	sessions map[string]*editor.Session
	known    map[string]int64
	locks    map[string]*sync.Mutex

	publishing keyGuard
}

// NewPageService creates a PageService.
func NewPageService(
	pages domain.PageStore,
	revisions domain.RevisionStore,
	emitter EventEmitter,
	opts PageOptions,
) *PageService {
	if emitter == nil {
		emitter = LogEmitter{}
	}
	if opts.IDs == nil {
		opts.IDs = tree.UUIDGenerator{}
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = editor.DefaultHistoryLimit
	}
	return &PageService{
		pages:     pages,
		revisions: revisions,
		emitter:   emitter,
		ids:       opts.IDs,
		limit:     opts.HistoryLimit,
		cache:     opts.Cache,
		sessions:  make(map[string]*editor.Session),
		known:     make(map[string]int64),
		locks:     make(map[string]*sync.Mutex),
	}
}

// ── Pages ──────────────────────────────────────────────────

func (s *PageService) CreatePage(ctx context.Context, in PageInput) (*domain.Page, error) {
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := s.pages.GetPage(ctx, id); err == nil {
		return nil, fmt.Errorf("create page %s: %w", id, ErrPageExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("create page %s: %w", id, err)
	}

	components := in.Components
	if components == nil {
		components = domain.Tree{}
	}
	if err := tree.Validate(components); err != nil {
		return nil, fmt.Errorf("create page %s: %w", id, err)
	}

	p := &domain.Page{
		ID:         id,
		Shop:       in.Shop,
		Slug:       in.Slug,
		Status:     domain.PageStatusDraft,
		Components: components,
		Editor:     domain.Overlay{},
		Version:    1,
	}
	if err := s.save(ctx, p); err != nil {
		return nil, fmt.Errorf("create page %s: %w", id, err)
	}
	if err := s.revisions.PushRevision(ctx, &domain.Revision{
		PageID: id, Label: "create page", Version: p.Version, Components: components,
	}); err != nil {
		log.Printf("[pages] push revision for %s: %v", id, err)
	}
	s.emitter.Emit(ctx, EventPageChanged, PageChange{PageID: id, Version: p.Version, Label: "create page"})
	return p, nil
}

func (s *PageService) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	return s.pages.GetPage(ctx, id)
}

func (s *PageService) ListPages(ctx context.Context, shop string) ([]domain.Page, error) {
	return s.pages.ListPages(ctx, shop)
}

// DeletePage closes the page's session and removes the page with its
// revisions.
func (s *PageService) DeletePage(ctx context.Context, id string) error {
	s.Forget(id)

	unlock := s.lock(id)
	defer unlock()
	if err := s.pages.DeletePage(ctx, id); err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	s.mu.Lock()
	s.known[id] = -1
	s.mu.Unlock()
	s.emitter.Emit(ctx, EventPageDeleted, PageChange{PageID: id})
	return nil
}

// ── Editing ────────────────────────────────────────────────

// Apply runs one editor action against the page. Structural no-ops are
// not saved and leave the version unchanged.
func (s *PageService) Apply(ctx context.Context, pageID string, a editor.Action) (*ApplyResult, error) {
	sess, err := s.session(ctx, pageID)
	if err != nil {
		return nil, err
	}
	h, out, err := sess.Dispatch(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("apply %s to %s: %w", a.Type, pageID, err)
	}
	s.mu.Lock()
	version := s.known[pageID]
	s.mu.Unlock()
	return &ApplyResult{
		Components: h.Present,
		Version:    version,
		CreatedID:  out.CreatedID,
		IDMap:      out.IDMap,
		CanUndo:    h.CanUndo(),
		CanRedo:    h.CanRedo(),
	}, nil
}

func (s *PageService) Undo(ctx context.Context, pageID string) (*ApplyResult, error) {
	return s.Apply(ctx, pageID, editor.Action{Type: editor.ActionUndo})
}

func (s *PageService) Redo(ctx context.Context, pageID string) (*ApplyResult, error) {
	return s.Apply(ctx, pageID, editor.Action{Type: editor.ActionRedo})
}

// History reports the undo and redo depth of the page's session.
func (s *PageService) History(ctx context.Context, pageID string) (HistoryInfo, error) {
	sess, err := s.session(ctx, pageID)
	if err != nil {
		return HistoryInfo{}, err
	}
	h, err := sess.Snapshot(ctx)
	if err != nil {
		return HistoryInfo{}, err
	}
	return HistoryInfo{
		Past:    len(h.Past),
		Future:  len(h.Future),
		CanUndo: h.CanUndo(),
		CanRedo: h.CanRedo(),
	}, nil
}

// Revisions lists stored snapshots of the page, newest first.
func (s *PageService) Revisions(ctx context.Context, pageID string, limit int) ([]domain.Revision, error) {
	return s.revisions.ListRevisions(ctx, pageID, limit)
}

// RestoreRevision replaces the page tree with a stored snapshot. The
// restore is itself an undoable edit.
func (s *PageService) RestoreRevision(ctx context.Context, pageID, revisionID string) (*ApplyResult, error) {
	rev, err := s.revisions.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", revisionID, err)
	}
	if rev.PageID != pageID {
		return nil, fmt.Errorf("restore %s: revision belongs to another page: %w", revisionID, domain.ErrNotFound)
	}
	return s.Apply(ctx, pageID, editor.Action{Type: editor.ActionSet, Components: rev.Components})
}

// ── Editor overlay ─────────────────────────────────────────

// SetEditorFlags stores the overlay entry of one component. Zero flags
// remove the entry.
func (s *PageService) SetEditorFlags(ctx context.Context, pageID, componentID string, flags domain.EditorFlags) error {
	unlock := s.lock(pageID)
	defer unlock()

	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return fmt.Errorf("set flags on %s: %w", pageID, err)
	}
	if tree.GetNodeByID(p.Components, componentID) == nil {
		return fmt.Errorf("set flags on %s: component %s: %w", pageID, componentID, domain.ErrNotFound)
	}
	for _, vp := range flags.Hidden {
		if !vp.Valid() {
			return fmt.Errorf("set flags on %s: %w: %q", pageID, ErrUnknownViewport, vp)
		}
	}

	overlay := make(domain.Overlay, len(p.Editor)+1)
	for k, v := range p.Editor {
		overlay[k] = v
	}
	if isZeroFlags(flags) {
		delete(overlay, componentID)
	} else {
		overlay[componentID] = flags
	}
	p.Editor = overlay
	p.Version++
	if err := s.save(ctx, p); err != nil {
		return fmt.Errorf("set flags on %s: %w", pageID, err)
	}
	s.emitter.Emit(ctx, EventPageChanged, PageChange{PageID: pageID, Version: p.Version, Label: "editor flags " + componentID})
	return nil
}

func isZeroFlags(f domain.EditorFlags) bool {
	return f.Name == "" && !f.Locked && f.ZIndex == nil && f.Hidden == nil && f.Global == nil
}

// Render projects the page for one viewport with its editor overlay
// applied.
func (s *PageService) Render(ctx context.Context, pageID string, vp domain.Viewport) ([]tree.Decorated, error) {
	if !vp.Valid() {
		return nil, fmt.Errorf("render %s: %w: %q", pageID, ErrUnknownViewport, vp)
	}
	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageID, err)
	}
	return tree.DecorateForViewport(p.Components, p.Editor, vp), nil
}

// ── Publishing ─────────────────────────────────────────────

// Publish validates the page tree and marks the page published. Only one
// publish per page runs at a time.
func (s *PageService) Publish(ctx context.Context, pageID string) (*domain.Page, error) {
	if !s.publishing.TryLock(pageID) {
		return nil, fmt.Errorf("publish %s: %w", pageID, ErrPublishInProgress)
	}
	defer s.publishing.Unlock(pageID)

	unlock := s.lock(pageID)
	defer unlock()

	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", pageID, err)
	}
	if err := tree.Validate(p.Components); err != nil {
		return nil, fmt.Errorf("publish %s: %w", pageID, err)
	}
	now := time.Now().UTC()
	p.Status = domain.PageStatusPublished
	p.PublishedAt = &now
	if err := s.save(ctx, p); err != nil {
		return nil, fmt.Errorf("publish %s: %w", pageID, err)
	}
	log.Printf("[pages] published %s v%d", pageID, p.Version)
	s.emitter.Emit(ctx, EventPagePublished, PageChange{PageID: pageID, Version: p.Version})
	return p, nil
}

// ── External changes ───────────────────────────────────────

// NoteExternalChange is called when the stored copy of a page is seen at
// version. A version this service wrote itself is ignored and false is
// returned. Otherwise the cache and the session are dropped so the next
// edit starts from the stored page. version < 0 means the page is gone; a
// page this service deleted is known at -1.
func (s *PageService) NoteExternalChange(ctx context.Context, pageID string, version int64) bool {
	s.mu.Lock()
	known, ok := s.known[pageID]
	s.mu.Unlock()
	if ok && known == version {
		return false
	}

	if s.cache != nil {
		s.cache.Invalidate(pageID)
	}
	s.Forget(pageID)
	s.mu.Lock()
	delete(s.known, pageID)
	s.mu.Unlock()

	log.Printf("[pages] %s changed outside the editor (version %d)", pageID, version)
	s.emitter.Emit(ctx, EventPageExternalChange, PageChange{PageID: pageID, Version: version})
	return true
}

// Forget closes the session of a page, dropping its undo history.
func (s *PageService) Forget(pageID string) {
	s.mu.Lock()
	sess, ok := s.sessions[pageID]
	delete(s.sessions, pageID)
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
}

// Close closes every session and waits for running publishes.
func (s *PageService) Close(ctx context.Context) {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*editor.Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
	s.publishing.WaitAll(ctx)
}

// ── Internals ──────────────────────────────────────────────

func (s *PageService) session(ctx context.Context, pageID string) (*editor.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[pageID]; ok {
		return sess, nil
	}
	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("open page %s: %w", pageID, err)
	}
	sess := editor.NewSession(editor.NewHistory(p.Components), s.ids, s.limit, s.commitFor(pageID))
	s.sessions[pageID] = sess
	s.known[pageID] = p.Version
	return sess, nil
}

func (s *PageService) commitFor(pageID string) editor.CommitFunc {
	return func(ctx context.Context, next editor.History, a editor.Action, out editor.Outcome) error {
		unlock := s.lock(pageID)
		defer unlock()

		p, err := s.pages.GetPage(ctx, pageID)
		if err != nil {
			return fmt.Errorf("load page %s: %w", pageID, err)
		}
		p.Components = next.Present
		p.Editor = carryOverlay(p.Editor, next, out.IDMap)
		p.Version++
		if err := s.save(ctx, p); err != nil {
			return fmt.Errorf("save page %s: %w", pageID, err)
		}

		label := a.Label()
		if err := s.revisions.PushRevision(ctx, &domain.Revision{
			PageID: pageID, Label: label, Version: p.Version, Components: next.Present,
		}); err != nil {
			log.Printf("[pages] push revision for %s: %v", pageID, err)
		}
		s.emitter.Emit(ctx, EventPageChanged, PageChange{PageID: pageID, Version: p.Version, Label: label})
		return nil
	}
}

// carryOverlay copies flags onto duplicated ids and drops entries whose id
// appears in no snapshot of the session history.
func carryOverlay(o domain.Overlay, h editor.History, idMap map[string]string) domain.Overlay {
	if len(o) == 0 {
		return o
	}
	live := tree.IDs(h.Present)
	for _, snaps := range [][]domain.Tree{h.Past, h.Future} {
		for _, t := range snaps {
			for id := range tree.IDs(t) {
				live[id] = struct{}{}
			}
		}
	}

	out := make(domain.Overlay, len(o)+len(idMap))
	for id, f := range o {
		if _, ok := live[id]; ok {
			out[id] = f
		}
	}
	for orig, clone := range idMap {
		if f, ok := o[orig]; ok {
			out[clone] = f.Clone()
		}
	}
	return out
}

func (s *PageService) save(ctx context.Context, p *domain.Page) error {
	if err := s.pages.SavePage(ctx, p); err != nil {
		return err
	}
	s.mu.Lock()
	s.known[p.ID] = p.Version
	s.mu.Unlock()
	return nil
}

// lock serialises writes to one page across sessions, overlay edits and
// publishing.
func (s *PageService) lock(pageID string) func() {
	s.mu.Lock()
	l, ok := s.locks[pageID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[pageID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}
