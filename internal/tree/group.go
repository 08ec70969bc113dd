package tree

import (
	"errors"
	"fmt"
	"sort"

	"pagebuilder/internal/domain"
)

var (
	// ErrMixedParents rejects grouping nodes that are not siblings.
	ErrMixedParents = errors.New("grouped components must share the same parent")
	// ErrInvalidContainer rejects grouping into a type that cannot hold children.
	ErrInvalidContainer = errors.New("not a container type")
)

type member struct {
	id  string
	loc domain.Location
}

// Group wraps the sibling nodes named by ids in a new container of
// containerType. The container takes the slot of the first matched node and
// receives the matched nodes in their original order. It returns the new
// tree and the container id.
//
// Ids missing from the tree are skipped; if none match, t is returned with
// an empty id. Ids under different parents are rejected with ErrMixedParents.
func Group(t domain.Tree, ids []string, containerType string, gen IDGenerator) (domain.Tree, string, error) {
	if !domain.IsContainerType(containerType) {
		return t, "", fmt.Errorf("group into %q: %w", containerType, ErrInvalidContainer)
	}

	seen := make(map[string]struct{}, len(ids))
	var members []member
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		loc, ok := IndexOf(t, id)
		if !ok {
			continue
		}
		members = append(members, member{id: id, loc: loc})
	}
	if len(members) == 0 {
		return t, "", nil
	}

	parentID := members[0].loc.ParentID
	for _, m := range members[1:] {
		if m.loc.ParentID != parentID {
			return t, "", fmt.Errorf("group %s and %s: %w (%s vs %s)",
				members[0].id, m.id, ErrMixedParents, parentLabel(parentID), parentLabel(m.loc.ParentID))
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].loc.Index < members[j].loc.Index })

	containerID := uniqueID(gen, IDs(t))
	wrap := func(siblings []*domain.Component) []*domain.Component {
		picked := make(map[int]struct{}, len(members))
		children := make([]*domain.Component, 0, len(members))
		for _, m := range members {
			picked[m.loc.Index] = struct{}{}
			children = append(children, siblings[m.loc.Index])
		}
		container := domain.NewContainer(containerID, containerType, nil, children...)

		out := make([]*domain.Component, 0, len(siblings)-len(members)+1)
		for i, s := range siblings {
			if _, ok := picked[i]; !ok {
				out = append(out, s)
				continue
			}
			if i == members[0].loc.Index {
				out = append(out, container)
			}
		}
		return out
	}

	if parentID == "" {
		return wrap(t), containerID, nil
	}
	out, ok := replaceNode(t, parentID, func(p *domain.Component) *domain.Component {
		return p.WithChildren(wrap(p.Children))
	})
	if !ok {
		return t, "", nil
	}
	return out, containerID, nil
}

func parentLabel(id string) string {
	if id == "" {
		return "root"
	}
	return id
}

// Ungroup replaces the container with its children, in order, at the
// container's position. Unknown ids and leaves are ignored.
func Ungroup(t domain.Tree, containerID string) domain.Tree {
	node := GetNodeByID(t, containerID)
	if !node.IsContainer() {
		return t
	}
	loc, ok := IndexOf(t, containerID)
	if !ok {
		return t
	}

	splice := func(list []*domain.Component) []*domain.Component {
		out := make([]*domain.Component, 0, len(list)-1+len(node.Children))
		out = append(out, list[:loc.Index]...)
		out = append(out, node.Children...)
		return append(out, list[loc.Index+1:]...)
	}

	if loc.ParentID == "" {
		return splice(t)
	}
	out, ok := replaceNode(t, loc.ParentID, func(p *domain.Component) *domain.Component {
		return p.WithChildren(splice(p.Children))
	})
	if !ok {
		return t
	}
	return out
}
