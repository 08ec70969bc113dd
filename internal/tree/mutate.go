package tree

import (
	"log"
	"reflect"

	"pagebuilder/internal/domain"
)

// Add inserts c into the children of parentID at index, or into the root
// list when parentID is empty. Use End to append. A missing or leaf parent
// leaves the tree unchanged.
func Add(t domain.Tree, parentID string, index int, c *domain.Component) domain.Tree {
	out, _ := add(t, parentID, index, c)
	return out
}

func add(t domain.Tree, parentID string, index int, c *domain.Component) (domain.Tree, bool) {
	if c == nil {
		return t, false
	}
	if parentID == "" {
		return AddAt(t, index, c), true
	}
	out, ok := replaceNode(t, parentID, func(n *domain.Component) *domain.Component {
		if !n.IsContainer() {
			return nil
		}
		return n.WithChildren(AddAt(n.Children, index, c))
	})
	if !ok {
		return t, false
	}
	return out, true
}

// Extract removes the node at {parentID, index} and returns it with the
// remaining tree. A missing slot yields nil and the unchanged tree.
func Extract(t domain.Tree, parentID string, index int) (*domain.Component, domain.Tree) {
	if parentID == "" {
		if index < 0 || index >= len(t) {
			return nil, t
		}
		return t[index], removeAt(t, index)
	}

	var removed *domain.Component
	out, ok := replaceNode(t, parentID, func(n *domain.Component) *domain.Component {
		if !n.IsContainer() || index < 0 || index >= len(n.Children) {
			return nil
		}
		removed = n.Children[index]
		return n.WithChildren(removeAt(n.Children, index))
	})
	if !ok {
		return nil, t
	}
	return removed, out
}

// Move extracts the node at from and inserts it at to, where to is read
// against the tree after extraction. Moving a node into itself or one of
// its descendants is refused and returns the input tree.
func Move(t domain.Tree, from, to domain.Location) domain.Tree {
	item, without := Extract(t, from.ParentID, from.Index)
	if item == nil {
		return t
	}
	out, ok := add(without, to.ParentID, to.Index, item)
	if !ok {
		return t
	}
	return out
}

// Remove deletes the node with id together with its descendants.
func Remove(t domain.Tree, id string) domain.Tree {
	out, ok := removeFrom(t, id)
	if !ok {
		return t
	}
	return out
}

func removeFrom(list []*domain.Component, id string) ([]*domain.Component, bool) {
	for i, n := range list {
		if n.ID == id {
			return removeAt(list, i), true
		}
		if n.IsContainer() {
			if children, ok := removeFrom(n.Children, id); ok {
				return replaceAt(list, i, n.WithChildren(children)), true
			}
		}
	}
	return list, false
}

// Update merges patch into the props of the node with id. Numeric fields
// are normalized first; values that fail coercion, and nil values, leave
// the field absent. Structural keys (id, type, children) are ignored. A
// patch that leaves the props as they were returns t itself.
func Update(t domain.Tree, id string, patch map[string]any) domain.Tree {
	if len(patch) == 0 {
		return t
	}
	normalized, dropped := NormalizePatch(patch)
	if len(dropped) > 0 {
		log.Printf("[tree] update %s: dropped invalid numeric fields %v", id, dropped)
	}

	out, ok := replaceNode(t, id, func(n *domain.Component) *domain.Component {
		props := make(map[string]any, len(n.Props)+len(normalized))
		for k, v := range n.Props {
			props[k] = v
		}
		for k, v := range normalized {
			if domain.IsReservedKey(k) {
				continue
			}
			if v == nil {
				delete(props, k)
				continue
			}
			props[k] = v
		}
		for _, k := range dropped {
			delete(props, k)
		}
		if samePropsAs(n, props) {
			return nil
		}
		return n.WithProps(props)
	})
	if !ok {
		return t
	}
	return out
}

// samePropsAs reports whether props would leave n unchanged.
func samePropsAs(n *domain.Component, props map[string]any) bool {
	if len(n.Props) == 0 {
		return len(props) == 0
	}
	return reflect.DeepEqual(n.Props, props)
}

// ResizePatch carries CSS length strings set by the canvas resize handles.
// Empty fields are left as they are.
type ResizePatch struct {
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
	Left   string `json:"left,omitempty"`
	Top    string `json:"top,omitempty"`
}

func (r ResizePatch) fields() map[string]any {
	out := map[string]any{}
	if r.Width != "" {
		out["width"] = r.Width
	}
	if r.Height != "" {
		out["height"] = r.Height
	}
	if r.Left != "" {
		out["left"] = r.Left
	}
	if r.Top != "" {
		out["top"] = r.Top
	}
	return out
}

// Resize applies a resize gesture to the node with id.
func Resize(t domain.Tree, id string, r ResizePatch) domain.Tree {
	return Update(t, id, r.fields())
}

// Duplicate deep-clones the node with id, minting a fresh id for the clone
// and each of its descendants, and inserts the clone right after the
// original.
func Duplicate(t domain.Tree, id string, gen IDGenerator) domain.Tree {
	out, _ := DuplicateMapped(t, id, gen)
	return out
}

// DuplicateMapped is Duplicate that also reports original id -> clone id.
// The page service uses it to copy editor flags onto the clone.
func DuplicateMapped(t domain.Tree, id string, gen IDGenerator) (domain.Tree, map[string]string) {
	loc, ok := IndexOf(t, id)
	if !ok {
		return t, nil
	}
	node := GetNodeByID(t, id)
	mapping := make(map[string]string)
	clone := cloneWithNewIDs(node, gen, IDs(t), mapping)
	out, ok := add(t, loc.ParentID, loc.Index+1, clone)
	if !ok {
		return t, nil
	}
	return out, mapping
}

func cloneWithNewIDs(n *domain.Component, gen IDGenerator, taken map[string]struct{}, mapping map[string]string) *domain.Component {
	newID := uniqueID(gen, taken)
	mapping[n.ID] = newID
	cp := &domain.Component{
		ID:    newID,
		Type:  n.Type,
		Kind:  n.Kind,
		Props: cloneProps(n.Props),
	}
	if n.IsContainer() {
		cp.Children = make([]*domain.Component, 0, len(n.Children))
		for _, child := range n.Children {
			cp.Children = append(cp.Children, cloneWithNewIDs(child, gen, taken, mapping))
		}
	}
	return cp
}

func cloneProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneProps(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// replaceNode rebuilds the path to the node with id, substituting fn's
// result for it. fn returning nil aborts the edit and reports false.
func replaceNode(list []*domain.Component, id string, fn func(*domain.Component) *domain.Component) ([]*domain.Component, bool) {
	for i, n := range list {
		if n.ID == id {
			repl := fn(n)
			if repl == nil {
				return list, false
			}
			return replaceAt(list, i, repl), true
		}
		if n.IsContainer() {
			if children, ok := replaceNode(n.Children, id, fn); ok {
				return replaceAt(list, i, n.WithChildren(children)), true
			}
		}
	}
	return list, false
}

func replaceAt(list []*domain.Component, index int, item *domain.Component) []*domain.Component {
	out := make([]*domain.Component, len(list))
	copy(out, list)
	out[index] = item
	return out
}
