package editor_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/tree"
)

func leaf(id string) *domain.Component {
	return domain.NewLeaf(id, "Text", nil)
}

func start() domain.Tree {
	return domain.Tree{
		domain.NewContainer("a", "Section", nil, leaf("b"), leaf("c")),
		leaf("g"),
	}
}

func ids(list []*domain.Component) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func intPtr(i int) *int { return &i }

// ── Apply ───────────────────────────────────────────────────

func TestApply_Add(t *testing.T) {
	out, err := editor.Apply(start(), editor.Action{
		Type:      editor.ActionAdd,
		Component: leaf("b"),
		ParentID:  "a",
		Index:     intPtr(0),
	}, tree.NewSequenceGenerator("n"))

	require.NoError(t, err)
	assert.Equal(t, "n-1", out.CreatedID, "colliding id is re-minted")
	assert.Equal(t, []string{"n-1", "b", "c"}, ids(tree.GetNodeByID(out.Tree, "a").Children))
}

func TestApply_AddDefaultsToAppend(t *testing.T) {
	out, err := editor.Apply(start(), editor.Action{Type: editor.ActionAdd, Component: leaf("x")}, nil)

	require.NoError(t, err)
	assert.Equal(t, "x", out.CreatedID)
	assert.Equal(t, []string{"a", "g", "x"}, ids(out.Tree))
}

func TestApply_AddIntoLeafCreatesNothing(t *testing.T) {
	tr := start()
	out, err := editor.Apply(tr, editor.Action{Type: editor.ActionAdd, Component: leaf("x"), ParentID: "g"}, nil)

	require.NoError(t, err)
	assert.Empty(t, out.CreatedID)
	assert.Equal(t, tr, out.Tree)
}

func TestApply_Move(t *testing.T) {
	out, err := editor.Apply(start(), editor.Action{
		Type: editor.ActionMove,
		From: &domain.Location{ParentID: "a", Index: 0},
		To:   &domain.Location{ParentID: "a", Index: 1},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(out.Tree[0].Children))
}

func TestApply_Duplicate(t *testing.T) {
	out, err := editor.Apply(start(), editor.Action{Type: editor.ActionDuplicate, ID: "a"}, tree.NewSequenceGenerator("n"))

	require.NoError(t, err)
	assert.Equal(t, "n-1", out.CreatedID)
	assert.Equal(t, map[string]string{"a": "n-1", "b": "n-2", "c": "n-3"}, out.IDMap)
	assert.Equal(t, []string{"a", "n-1", "g"}, ids(out.Tree))
}

func TestApply_GroupAndUngroup(t *testing.T) {
	grouped, err := editor.Apply(start(), editor.Action{
		Type: editor.ActionGroup, IDs: []string{"a", "g"}, ContainerType: "Grid",
	}, tree.NewSequenceGenerator("grp"))
	require.NoError(t, err)
	assert.Equal(t, []string{"grp-1"}, ids(grouped.Tree))

	ungrouped, err := editor.Apply(grouped.Tree, editor.Action{Type: editor.ActionUngroup, ID: "grp-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "g"}, ids(ungrouped.Tree))
}

func TestApply_GroupMixedParents(t *testing.T) {
	_, err := editor.Apply(start(), editor.Action{
		Type: editor.ActionGroup, IDs: []string{"b", "g"}, ContainerType: "Section",
	}, nil)
	assert.ErrorIs(t, err, tree.ErrMixedParents)
}

func TestApply_UpdateAndResize(t *testing.T) {
	out, err := editor.Apply(start(), editor.Action{
		Type: editor.ActionUpdate, ID: "g", Patch: map[string]any{"text": "hi", "columns": "2"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text": "hi", "columns": float64(2)}, out.Tree[1].Props)

	out, err = editor.Apply(out.Tree, editor.Action{
		Type: editor.ActionResize, ID: "g", Resize: &tree.ResizePatch{Height: "40px"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "40px", out.Tree[1].Props["height"])
}

func TestApply_SetAndRemove(t *testing.T) {
	out, err := editor.Apply(start(), editor.Action{Type: editor.ActionRemove, ID: "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, ids(out.Tree))

	out, err = editor.Apply(start(), editor.Action{Type: editor.ActionSet}, nil)
	require.NoError(t, err)
	assert.NotNil(t, out.Tree)
	assert.Empty(t, out.Tree)
}

func TestApply_Errors(t *testing.T) {
	cases := []struct {
		name   string
		action editor.Action
		want   error
	}{
		{"unknown", editor.Action{Type: "paint"}, editor.ErrUnknownAction},
		{"add without component", editor.Action{Type: editor.ActionAdd}, editor.ErrInvalidAction},
		{"move without target", editor.Action{Type: editor.ActionMove, From: &domain.Location{}}, editor.ErrInvalidAction},
		{"undo", editor.Action{Type: editor.ActionUndo}, editor.ErrInvalidAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := start()
			out, err := editor.Apply(tr, tc.action, nil)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tr, out.Tree)
		})
	}
}

func TestAction_DecodesFromJSON(t *testing.T) {
	var a editor.Action
	require.NoError(t, json.Unmarshal([]byte(`{
		"type":"add","parentId":"a","index":1,
		"component":{"id":"x","type":"Grid","children":[{"id":"y","type":"Text"}]}
	}`), &a))

	assert.Equal(t, editor.ActionAdd, a.Type)
	require.NotNil(t, a.Index)
	assert.Equal(t, 1, *a.Index)
	require.NotNil(t, a.Component)
	assert.True(t, a.Component.IsContainer())
	assert.Equal(t, "add Grid", a.Label())
}

// ── History ─────────────────────────────────────────────────

func TestReduce_UndoRedo(t *testing.T) {
	h := editor.NewHistory(start())
	gen := tree.NewSequenceGenerator("n")

	h, _, err := editor.Reduce(h, editor.Action{Type: editor.ActionRemove, ID: "g"}, gen, 0)
	require.NoError(t, err)
	h, _, err = editor.Reduce(h, editor.Action{Type: editor.ActionRemove, ID: "b"}, gen, 0)
	require.NoError(t, err)
	assert.Len(t, h.Past, 2)
	assert.Equal(t, []string{"a"}, ids(h.Present))

	h, out, err := editor.Reduce(h, editor.Action{Type: editor.ActionUndo}, gen, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(out.Tree[0].Children))
	assert.True(t, h.CanRedo())

	h, _, err = editor.Reduce(h, editor.Action{Type: editor.ActionUndo}, gen, 0)
	require.NoError(t, err)
	assert.Equal(t, start(), h.Present)
	assert.False(t, h.CanUndo())
	assert.Len(t, h.Future, 2)

	h, _, err = editor.Reduce(h, editor.Action{Type: editor.ActionRedo}, gen, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(h.Present))
	assert.Len(t, h.Future, 1)
}

func TestReduce_NewActionClearsFuture(t *testing.T) {
	h := editor.NewHistory(start())

	h, _, _ = editor.Reduce(h, editor.Action{Type: editor.ActionRemove, ID: "g"}, nil, 0)
	h, _, _ = editor.Reduce(h, editor.Action{Type: editor.ActionUndo}, nil, 0)
	require.True(t, h.CanRedo())

	h, _, err := editor.Reduce(h, editor.Action{Type: editor.ActionRemove, ID: "a"}, nil, 0)
	require.NoError(t, err)
	assert.False(t, h.CanRedo())
	assert.Len(t, h.Past, 1)
}

func TestReduce_NoopLeavesHistoryAlone(t *testing.T) {
	h := editor.NewHistory(start())

	for _, a := range []editor.Action{
		{Type: editor.ActionRemove, ID: "missing"},
		{Type: editor.ActionUpdate, ID: "missing", Patch: map[string]any{"x": 1}},
		{Type: editor.ActionUpdate, ID: "b", Patch: map[string]any{"id": "zzz"}},
		{Type: editor.ActionUpdate, ID: "b", Patch: map[string]any{"maxItems": "bad"}},
		{Type: editor.ActionUpdate, ID: "b", Patch: map[string]any{"text": nil}},
		{Type: editor.ActionUndo},
		{Type: editor.ActionRedo},
	} {
		next, _, err := editor.Reduce(h, a, nil, 0)
		require.NoError(t, err)
		assert.Empty(t, next.Past, "%s", a.Type)
		assert.Empty(t, next.Future, "%s", a.Type)
	}
}

func TestReduce_SamePropsPatchIsNoop(t *testing.T) {
	h := editor.NewHistory(domain.Tree{domain.NewLeaf("b", "Text", map[string]any{"text": "hi", "maxItems": float64(3)})})

	next, _, err := editor.Reduce(h, editor.Action{Type: editor.ActionUpdate, ID: "b", Patch: map[string]any{"text": "hi", "maxItems": "3"}}, nil, 0)
	require.NoError(t, err)
	assert.Len(t, next.Past, 0)

	next, _, err = editor.Reduce(h, editor.Action{Type: editor.ActionUpdate, ID: "b", Patch: map[string]any{"text": "bye"}}, nil, 0)
	require.NoError(t, err)
	assert.Len(t, next.Past, 1)
}

func TestReduce_CapsPast(t *testing.T) {
	h := editor.NewHistory(nil)
	gen := tree.NewSequenceGenerator("n")

	for i := 0; i < 5; i++ {
		var err error
		h, _, err = editor.Reduce(h, editor.Action{Type: editor.ActionAdd, Component: leaf("")}, gen, 3)
		require.NoError(t, err)
	}

	assert.Len(t, h.Past, 3)
	assert.Len(t, h.Present, 5)
	assert.Len(t, h.Past[0], 2, "oldest snapshots are dropped first")
}

func TestReduce_ErrorKeepsHistory(t *testing.T) {
	h := editor.NewHistory(start())

	next, _, err := editor.Reduce(h, editor.Action{Type: "bogus"}, nil, 0)

	assert.ErrorIs(t, err, editor.ErrUnknownAction)
	assert.Equal(t, h, next)
}

// ── Session ─────────────────────────────────────────────────

func TestSession_DispatchCommits(t *testing.T) {
	var mu sync.Mutex
	var commits []editor.ActionType
	s := editor.NewSession(editor.NewHistory(start()), nil, 0, func(_ context.Context, next editor.History, a editor.Action, _ editor.Outcome) error {
		mu.Lock()
		defer mu.Unlock()
		commits = append(commits, a.Type)
		return nil
	})
	defer s.Close()
	ctx := context.Background()

	_, _, err := s.Dispatch(ctx, editor.Action{Type: editor.ActionRemove, ID: "g"})
	require.NoError(t, err)
	_, _, err = s.Dispatch(ctx, editor.Action{Type: editor.ActionRemove, ID: "missing"})
	require.NoError(t, err)
	h, _, err := s.Dispatch(ctx, editor.Action{Type: editor.ActionUndo})
	require.NoError(t, err)

	assert.Equal(t, start(), h.Present)
	mu.Lock()
	assert.Equal(t, []editor.ActionType{editor.ActionRemove, editor.ActionUndo}, commits, "no-ops are not committed")
	mu.Unlock()
}

func TestSession_CommitFailureDiscardsTransition(t *testing.T) {
	boom := errors.New("disk full")
	s := editor.NewSession(editor.NewHistory(start()), nil, 0, func(context.Context, editor.History, editor.Action, editor.Outcome) error {
		return boom
	})
	defer s.Close()
	ctx := context.Background()

	h, out, err := s.Dispatch(ctx, editor.Action{Type: editor.ActionRemove, ID: "a"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "g"}, ids(out.Tree))
	assert.False(t, h.CanUndo())

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, start(), snap.Present)
}

func TestSession_ConcurrentDispatch(t *testing.T) {
	s := editor.NewSession(editor.NewHistory(nil), tree.NewSequenceGenerator("n"), 100, nil)
	defer s.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Dispatch(ctx, editor.Action{Type: editor.ActionAdd, Component: leaf("")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	h, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, h.Present, 20)
	assert.Len(t, h.Past, 20)
	assert.NoError(t, tree.Validate(h.Present))
}

func TestSession_Closed(t *testing.T) {
	s := editor.NewSession(editor.NewHistory(nil), nil, 0, nil)
	s.Close()
	s.Close()

	_, _, err := s.Dispatch(context.Background(), editor.Action{Type: editor.ActionUndo})
	assert.ErrorIs(t, err, editor.ErrSessionClosed)
}

func TestSession_ContextCancelled(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	s := editor.NewSession(editor.NewHistory(start()), nil, 0, func(context.Context, editor.History, editor.Action, editor.Outcome) error {
		close(entered)
		<-release
		return nil
	})
	defer s.Close()
	defer close(release)

	go func() {
		_, _, _ = s.Dispatch(context.Background(), editor.Action{Type: editor.ActionRemove, ID: "g"})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Snapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
