package tree_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/tree"
)

func snapshot(t *testing.T, tr domain.Tree) string {
	t.Helper()
	data, err := json.Marshal(tr)
	require.NoError(t, err)
	return string(data)
}

func TestAdd(t *testing.T) {
	tr := sample()
	before := snapshot(t, tr)

	root := tree.Add(tr, "", 1, leaf("x"))
	assert.Equal(t, []string{"a", "x", "d", "g"}, ids(root))

	nested := tree.Add(tr, "e", 0, leaf("x"))
	assert.Equal(t, []string{"x", "f"}, ids(tree.GetNodeByID(nested, "e").Children))

	appended := tree.Add(tr, "a", tree.End, leaf("x"))
	assert.Equal(t, []string{"b", "c", "x"}, ids(tree.GetNodeByID(appended, "a").Children))

	assert.Equal(t, before, snapshot(t, tr), "input tree must not change")
}

func TestAdd_MissingOrLeafParentIsNoop(t *testing.T) {
	tr := sample()

	assert.Equal(t, tr, tree.Add(tr, "missing", 0, leaf("x")))
	assert.Equal(t, tr, tree.Add(tr, "g", 0, leaf("x")))
	assert.Equal(t, tr, tree.Add(tr, "a", 0, nil))
}

func TestAdd_SharesUntouchedBranches(t *testing.T) {
	tr := sample()
	out := tree.Add(tr, "e", 0, leaf("x"))

	assert.Same(t, tr[0], out[0], "branch a is untouched")
	assert.Same(t, tr[2], out[2], "leaf g is untouched")
	assert.NotSame(t, tr[1], out[1], "branch d is on the edit path")
}

func TestExtract(t *testing.T) {
	tr := sample()

	item, rest := tree.Extract(tr, "", 2)
	require.NotNil(t, item)
	assert.Equal(t, "g", item.ID)
	assert.Equal(t, []string{"a", "d"}, ids(rest))

	item, rest = tree.Extract(tr, "a", 0)
	require.NotNil(t, item)
	assert.Equal(t, "b", item.ID)
	assert.Equal(t, []string{"c"}, ids(tree.GetNodeByID(rest, "a").Children))

	item, rest = tree.Extract(tr, "e", 0)
	require.NotNil(t, item)
	assert.Equal(t, "f", item.ID)
	assert.Empty(t, tree.GetNodeByID(rest, "e").Children)
	assert.NotNil(t, tree.GetNodeByID(rest, "e").Children, "containers keep a non-nil child list")
}

func TestExtract_MissingSlot(t *testing.T) {
	tr := sample()

	for _, tc := range []struct {
		name     string
		parentID string
		index    int
	}{
		{"root out of range", "", 3},
		{"root negative", "", -1},
		{"child out of range", "a", 2},
		{"missing parent", "missing", 0},
		{"leaf parent", "g", 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			item, rest := tree.Extract(tr, tc.parentID, tc.index)
			assert.Nil(t, item)
			assert.Equal(t, tr, rest)
		})
	}
}

func TestExtract_InvertsAdd(t *testing.T) {
	for _, loc := range []domain.Location{
		{Index: 0}, {Index: 3}, {ParentID: "a", Index: 1}, {ParentID: "e", Index: 0}, {ParentID: "e", Index: 1},
	} {
		tr := sample()
		c := leaf("new")

		item, rest := tree.Extract(tree.Add(tr, loc.ParentID, loc.Index, c), loc.ParentID, loc.Index)
		assert.Same(t, c, item, "location %+v", loc)
		assert.Equal(t, sample(), rest, "location %+v", loc)
	}
}

func TestMove_WithinParent(t *testing.T) {
	tr := domain.Tree{section("a", leaf("b"), leaf("c"))}

	out := tree.Move(tr, domain.Location{ParentID: "a", Index: 0}, domain.Location{ParentID: "a", Index: 1})

	assert.Equal(t, []string{"c", "b"}, ids(out[0].Children))
	assert.Equal(t, []string{"b", "c"}, ids(tr[0].Children))
}

func TestMove_AcrossParents(t *testing.T) {
	out := tree.Move(sample(), domain.Location{ParentID: "a", Index: 1}, domain.Location{ParentID: "e", Index: 0})

	assert.Equal(t, []string{"b"}, ids(tree.GetNodeByID(out, "a").Children))
	assert.Equal(t, []string{"c", "f"}, ids(tree.GetNodeByID(out, "e").Children))
}

func TestMove_PreservesCount(t *testing.T) {
	locs := []domain.Location{
		{Index: 0}, {Index: 1}, {Index: 2}, {Index: 9},
		{ParentID: "a", Index: 0}, {ParentID: "a", Index: 1},
		{ParentID: "d", Index: 0}, {ParentID: "e", Index: 0},
		{ParentID: "missing", Index: 0}, {ParentID: "g", Index: 0},
	}
	want := len(tree.Flatten(sample()))
	for _, from := range locs {
		for _, to := range locs {
			out := tree.Move(sample(), from, to)
			assert.Len(t, tree.Flatten(out), want, "move %+v -> %+v", from, to)
		}
	}
}

func TestMove_IntoOwnDescendantIsRefused(t *testing.T) {
	tr := sample()

	out := tree.Move(tr, domain.Location{Index: 1}, domain.Location{ParentID: "e", Index: 0})

	assert.Equal(t, tr, out)
}

func TestMove_MissingSourceIsNoop(t *testing.T) {
	tr := sample()
	assert.Equal(t, tr, tree.Move(tr, domain.Location{ParentID: "a", Index: 7}, domain.Location{Index: 0}))
}

func TestRemove(t *testing.T) {
	tr := sample()

	assert.Equal(t, []string{"a", "b", "c", "g"}, ids(tree.Flatten(tree.Remove(tr, "d"))))
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "g"}, ids(tree.Flatten(tree.Remove(tr, "f"))))
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g"}, ids(tree.Flatten(tr)))
}

func TestRemove_MissingIDIsNoop(t *testing.T) {
	tr := sample()
	out := tree.Remove(tr, "missing")

	assert.Equal(t, sample(), out)
	assert.Same(t, &tr[0], &out[0], "no-op returns the input tree value")
}

func TestUpdate_MergesPatch(t *testing.T) {
	tr := domain.Tree{section("a", domain.NewLeaf("b", "Text", map[string]any{"text": "hi", "color": "red"}))}

	out := tree.Update(tr, "b", map[string]any{"text": "hello", "align": "center"})

	b := tree.GetNodeByID(out, "b")
	assert.Equal(t, map[string]any{"text": "hello", "color": "red", "align": "center"}, b.Props)
	assert.Equal(t, map[string]any{"text": "hi", "color": "red"}, tree.GetNodeByID(tr, "b").Props)
}

func TestUpdate_CoercesNumericStrings(t *testing.T) {
	tr := domain.Tree{domain.NewLeaf("list", "ProductGrid", map[string]any{"maxItems": float64(8)})}

	out := tree.Update(tr, "list", map[string]any{"minItems": "2", "maxItems": "bad"})

	node := tree.GetNodeByID(out, "list")
	assert.Equal(t, float64(2), node.Props["minItems"])
	_, hasMax := node.Props["maxItems"]
	assert.False(t, hasMax, "invalid numeric value leaves the field absent")
}

func TestUpdate_IgnoresStructuralKeys(t *testing.T) {
	tr := sample()

	out := tree.Update(tr, "b", map[string]any{"id": "zzz", "type": "Image", "children": []any{}, "alt": "x"})

	b := tree.GetNodeByID(out, "b")
	require.NotNil(t, b)
	assert.Equal(t, "Text", b.Type)
	assert.Equal(t, map[string]any{"alt": "x"}, b.Props)
}

func TestUpdate_NilValueClearsField(t *testing.T) {
	tr := domain.Tree{domain.NewLeaf("b", "Text", map[string]any{"href": "/x", "text": "hi"})}

	out := tree.Update(tr, "b", map[string]any{"href": nil})

	assert.Equal(t, map[string]any{"text": "hi"}, out[0].Props)
}

func TestUpdate_MissingIDIsNoop(t *testing.T) {
	tr := sample()
	assert.Equal(t, tr, tree.Update(tr, "missing", map[string]any{"text": "x"}))
	assert.Equal(t, tr, tree.Update(tr, "b", nil))
}

func TestUpdate_UnchangedPropsReturnInputTree(t *testing.T) {
	tr := domain.Tree{section("a", domain.NewLeaf("b", "Text", map[string]any{"text": "hi"}))}

	for _, patch := range []map[string]any{
		{"id": "zzz"},
		{"maxItems": "bad"},
		{"text": "hi"},
		{"href": nil},
	} {
		out := tree.Update(tr, "b", patch)
		assert.Same(t, tr[0], out[0], "%v", patch)
	}
}

func TestResize(t *testing.T) {
	tr := domain.Tree{domain.NewLeaf("img", "Image", map[string]any{"width": "100px", "height": "50px"})}

	out := tree.Resize(tr, "img", tree.ResizePatch{Width: "200px", Left: "10px"})

	assert.Equal(t, map[string]any{"width": "200px", "height": "50px", "left": "10px"}, out[0].Props)
}

func TestDuplicate(t *testing.T) {
	tr := sample()
	gen := tree.NewSequenceGenerator("n")

	out := tree.Duplicate(tr, "a", gen)

	assert.Equal(t, []string{"a", "n-1", "d", "g"}, ids(out))
	assert.Equal(t, []string{"n-2", "n-3"}, ids(out[1].Children))
	assert.Equal(t, "Section", out[1].Type)
	assert.Same(t, tr[0], out[0], "original is shared, not copied")
}

func TestDuplicate_FreshIDsAdjacentToOriginal(t *testing.T) {
	tr := sample()
	original := tree.IDs(domain.Tree{tree.GetNodeByID(tr, "e")})

	out, mapping := tree.DuplicateMapped(tr, "e", tree.UUIDGenerator{})

	d := tree.GetNodeByID(out, "d")
	require.Len(t, d.Children, 2)
	assert.Equal(t, "e", d.Children[0].ID)
	clone := d.Children[1]
	assert.Equal(t, mapping["e"], clone.ID)
	for _, n := range tree.Flatten(domain.Tree{clone}) {
		_, reused := original[n.ID]
		assert.False(t, reused, "id %s reused", n.ID)
	}
	assert.Len(t, mapping, 2)
	assert.NoError(t, tree.Validate(out))
}

func TestDuplicate_DeepCopiesProps(t *testing.T) {
	items := []any{map[string]any{"label": "one"}}
	tr := domain.Tree{domain.NewLeaf("menu", "Text", map[string]any{"items": items})}

	out := tree.Duplicate(tr, "menu", tree.NewSequenceGenerator("n"))

	copied := out[1].Props["items"].([]any)
	copied[0].(map[string]any)["label"] = "changed"
	assert.Equal(t, "one", items[0].(map[string]any)["label"])
}

func TestDuplicate_SkipsCollidingIDs(t *testing.T) {
	tr := domain.Tree{leaf("n-1"), leaf("x")}

	out := tree.Duplicate(tr, "x", tree.NewSequenceGenerator("n"))

	assert.Equal(t, []string{"n-1", "x", "n-2"}, ids(out))
}

func TestDuplicate_MissingIDIsNoop(t *testing.T) {
	tr := sample()
	assert.Equal(t, tr, tree.Duplicate(tr, "missing", tree.NewSequenceGenerator("n")))
}

func TestAdopt(t *testing.T) {
	tr := sample()
	gen := tree.NewSequenceGenerator("n")

	fresh := section("s", leaf("t"))
	assert.Same(t, fresh, tree.Adopt(tr, fresh, gen))

	clash := section("a", leaf("t"), leaf("t"), leaf(""))
	adopted := tree.Adopt(tr, clash, gen)
	assert.Equal(t, "n-1", adopted.ID)
	assert.Equal(t, []string{"t", "n-2", "n-3"}, ids(adopted.Children))
	assert.Equal(t, "a", clash.ID, "input is not modified")
}
