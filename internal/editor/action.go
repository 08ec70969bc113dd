// Package editor turns editor gestures into tree engine calls and keeps the
// undo/redo history of a page.
package editor

import (
	"errors"
	"fmt"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/tree"
)

type ActionType string

const (
	ActionAdd       ActionType = "add"
	ActionMove      ActionType = "move"
	ActionRemove    ActionType = "remove"
	ActionUpdate    ActionType = "update"
	ActionResize    ActionType = "resize"
	ActionDuplicate ActionType = "duplicate"
	ActionGroup     ActionType = "group"
	ActionUngroup   ActionType = "ungroup"
	ActionSet       ActionType = "set"
	ActionUndo      ActionType = "undo"
	ActionRedo      ActionType = "redo"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidAction = errors.New("invalid action")
)

// Action is one editor gesture. Only the fields its Type needs are read.
type Action struct {
	Type ActionType `json:"type"`

	// add
	Component *domain.Component `json:"component,omitempty"`
	ParentID  string            `json:"parentId,omitempty"`
	Index     *int              `json:"index,omitempty"`

	// move
	From *domain.Location `json:"from,omitempty"`
	To   *domain.Location `json:"to,omitempty"`

	// remove, update, resize, duplicate, ungroup
	ID     string            `json:"id,omitempty"`
	Patch  map[string]any    `json:"patch,omitempty"`
	Resize *tree.ResizePatch `json:"resize,omitempty"`

	// group
	IDs           []string `json:"ids,omitempty"`
	ContainerType string   `json:"containerType,omitempty"`

	// set
	Components domain.Tree `json:"components,omitempty"`
}

// Label is a short human description used for revision history.
func (a Action) Label() string {
	switch a.Type {
	case ActionAdd:
		if a.Component != nil {
			return fmt.Sprintf("add %s", a.Component.Type)
		}
	case ActionMove:
		return "move component"
	case ActionGroup:
		return fmt.Sprintf("group %d into %s", len(a.IDs), a.ContainerType)
	case ActionSet:
		return "replace page"
	}
	if a.ID != "" {
		return fmt.Sprintf("%s %s", a.Type, a.ID)
	}
	return string(a.Type)
}

// Outcome is the result of applying one structural action.
type Outcome struct {
	Tree domain.Tree
	// CreatedID is the id of the node the action introduced: the added
	// component, the duplicate, or the group container.
	CreatedID string
	// IDMap maps original ids to clone ids after a duplicate.
	IDMap map[string]string
}

// Apply runs a structural action against t. Undo and redo are history
// operations and are rejected here; see Reduce.
func Apply(t domain.Tree, a Action, gen tree.IDGenerator) (Outcome, error) {
	switch a.Type {
	case ActionAdd:
		if a.Component == nil {
			return Outcome{Tree: t}, fmt.Errorf("%w: add needs a component", ErrInvalidAction)
		}
		index := tree.End
		if a.Index != nil {
			index = *a.Index
		}
		c := tree.Adopt(t, a.Component, gen)
		out := tree.Add(t, a.ParentID, index, c)
		if sameTree(out, t) {
			return Outcome{Tree: t}, nil
		}
		return Outcome{Tree: out, CreatedID: c.ID}, nil

	case ActionMove:
		if a.From == nil || a.To == nil {
			return Outcome{Tree: t}, fmt.Errorf("%w: move needs from and to", ErrInvalidAction)
		}
		return Outcome{Tree: tree.Move(t, *a.From, *a.To)}, nil

	case ActionRemove:
		return Outcome{Tree: tree.Remove(t, a.ID)}, nil

	case ActionUpdate:
		return Outcome{Tree: tree.Update(t, a.ID, a.Patch)}, nil

	case ActionResize:
		if a.Resize == nil {
			return Outcome{Tree: t}, nil
		}
		return Outcome{Tree: tree.Resize(t, a.ID, *a.Resize)}, nil

	case ActionDuplicate:
		out, mapping := tree.DuplicateMapped(t, a.ID, gen)
		return Outcome{Tree: out, CreatedID: mapping[a.ID], IDMap: mapping}, nil

	case ActionGroup:
		out, containerID, err := tree.Group(t, a.IDs, a.ContainerType, gen)
		if err != nil {
			return Outcome{Tree: t}, err
		}
		return Outcome{Tree: out, CreatedID: containerID}, nil

	case ActionUngroup:
		return Outcome{Tree: tree.Ungroup(t, a.ID)}, nil

	case ActionSet:
		if a.Components == nil {
			return Outcome{Tree: domain.Tree{}}, nil
		}
		return Outcome{Tree: a.Components}, nil

	case ActionUndo, ActionRedo:
		return Outcome{Tree: t}, fmt.Errorf("%w: %s is a history action", ErrInvalidAction, a.Type)

	default:
		return Outcome{Tree: t}, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}

// sameTree reports whether a and b are the same tree value, which is how
// engine no-ops are recognised.
func sameTree(a, b domain.Tree) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
