package editor

import (
	"pagebuilder/internal/domain"
	"pagebuilder/internal/tree"
)

// DefaultHistoryLimit caps the undo stack.
const DefaultHistoryLimit = 40

// History is the undo/redo state of one page. Snapshots are tree values;
// structural sharing keeps each one close to the cost of a single edit.
type History struct {
	Past    []domain.Tree `json:"past"`
	Present domain.Tree   `json:"present"`
	Future  []domain.Tree `json:"future"`
}

func NewHistory(present domain.Tree) History {
	if present == nil {
		present = domain.Tree{}
	}
	return History{Present: present}
}

func (h History) CanUndo() bool { return len(h.Past) > 0 }
func (h History) CanRedo() bool { return len(h.Future) > 0 }

// Reduce applies a to h. Undo and redo walk the snapshot stacks; any other
// action goes through Apply and, when it changed the tree, pushes the old
// present onto Past (keeping at most limit entries) and clears Future.
// Actions that change nothing return h unchanged.
func Reduce(h History, a Action, gen tree.IDGenerator, limit int) (History, Outcome, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	switch a.Type {
	case ActionUndo:
		if !h.CanUndo() {
			return h, Outcome{Tree: h.Present}, nil
		}
		prev := h.Past[len(h.Past)-1]
		next := History{
			Past:    cloneStack(h.Past[:len(h.Past)-1]),
			Present: prev,
			Future:  append([]domain.Tree{h.Present}, h.Future...),
		}
		return next, Outcome{Tree: prev}, nil

	case ActionRedo:
		if !h.CanRedo() {
			return h, Outcome{Tree: h.Present}, nil
		}
		nextTree := h.Future[0]
		next := History{
			Past:    append(cloneStack(h.Past), h.Present),
			Present: nextTree,
			Future:  cloneStack(h.Future[1:]),
		}
		return next, Outcome{Tree: nextTree}, nil
	}

	out, err := Apply(h.Present, a, gen)
	if err != nil {
		return h, Outcome{Tree: h.Present}, err
	}
	if sameTree(out.Tree, h.Present) {
		return h, Outcome{Tree: h.Present}, nil
	}

	past := append(cloneStack(h.Past), h.Present)
	if len(past) > limit {
		past = past[len(past)-limit:]
	}
	return History{Past: past, Present: out.Tree, Future: nil}, out, nil
}

func cloneStack(s []domain.Tree) []domain.Tree {
	out := make([]domain.Tree, len(s))
	copy(out, s)
	return out
}
