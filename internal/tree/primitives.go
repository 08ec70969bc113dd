// Package tree implements the page-builder component tree engine.
//
// Every operation is a pure function from a tree (plus coordinates) to a new
// tree. Input trees are never modified: edits allocate new nodes and child
// slices along the path from the root to the edit point and share every
// untouched subtree by pointer. Addressing a missing id or slot is a silent
// no-op that hands back the input tree.
package tree

import (
	"math"

	"pagebuilder/internal/domain"
)

// End appends when used as an insertion index.
const End = math.MaxInt

// AddAt returns a new slice with item inserted at index, clamped into
// [0, len(list)].
func AddAt(list []*domain.Component, index int, item *domain.Component) []*domain.Component {
	index = clamp(index, len(list))
	out := make([]*domain.Component, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, item)
	return append(out, list[index:]...)
}

// removeAt returns a new slice without the element at index.
func removeAt(list []*domain.Component, index int) []*domain.Component {
	out := make([]*domain.Component, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...)
}

func clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}

// GetNodeByID returns the first node (pre-order) whose id matches.
func GetNodeByID(t domain.Tree, id string) *domain.Component {
	for _, c := range t {
		if c.ID == id {
			return c
		}
		if c.IsContainer() {
			if found := GetNodeByID(c.Children, id); found != nil {
				return found
			}
		}
	}
	return nil
}

// GetParentOfID returns the container that directly holds id. Root-level
// matches and unknown ids both yield nil.
func GetParentOfID(t domain.Tree, id string) *domain.Component {
	for _, c := range t {
		if !c.IsContainer() {
			continue
		}
		for _, child := range c.Children {
			if child.ID == id {
				return c
			}
		}
		if found := GetParentOfID(c.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// IndexOf resolves id to its slot.
func IndexOf(t domain.Tree, id string) (domain.Location, bool) {
	for i, c := range t {
		if c.ID == id {
			return domain.Location{Index: i}, true
		}
	}
	parent := GetParentOfID(t, id)
	if parent == nil {
		return domain.Location{}, false
	}
	for i, c := range parent.Children {
		if c.ID == id {
			return domain.Location{ParentID: parent.ID, Index: i}, true
		}
	}
	return domain.Location{}, false
}

// Flatten lists every node in pre-order.
func Flatten(t domain.Tree) []*domain.Component {
	var out []*domain.Component
	var walk func(list []*domain.Component)
	walk = func(list []*domain.Component) {
		for _, c := range list {
			out = append(out, c)
			if c.IsContainer() {
				walk(c.Children)
			}
		}
	}
	walk(t)
	return out
}

// IDs returns the set of ids present in t.
func IDs(t domain.Tree) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, c := range Flatten(t) {
		ids[c.ID] = struct{}{}
	}
	return ids
}
