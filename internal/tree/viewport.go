package tree

import (
	"encoding/json"
	"maps"
	"slices"

	"pagebuilder/internal/domain"
)

// IsHiddenForViewport resolves visibility of id on vp. An explicit hidden
// list in the overlay decides on its own; without one, defaultHidden does.
func IsHiddenForViewport(id string, overlay domain.Overlay, defaultHidden bool, vp domain.Viewport) bool {
	if flags, ok := overlay[id]; ok && flags.Hidden != nil {
		return slices.Contains(flags.Hidden, vp)
	}
	return defaultHidden
}

// Decorated is the render-time projection of a component for one viewport.
// It is a separate type so editor metadata can never leak into the
// canonical tree.
type Decorated struct {
	ID       string
	Type     string
	Kind     domain.NodeKind
	Props    map[string]any
	Hidden   bool
	Locked   bool
	ZIndex   *int
	Name     string
	Global   *domain.GlobalRef
	Children []Decorated
}

// DecorateForViewport projects t for vp, attaching hidden, locked, zIndex,
// name and global from the overlay. Neither t nor overlay is modified.
func DecorateForViewport(t domain.Tree, overlay domain.Overlay, vp domain.Viewport) []Decorated {
	out := make([]Decorated, 0, len(t))
	for _, c := range t {
		out = append(out, decorate(c, overlay, vp))
	}
	return out
}

func decorate(c *domain.Component, overlay domain.Overlay, vp domain.Viewport) Decorated {
	flags := overlay[c.ID]
	defaultHidden, _ := c.Props["hidden"].(bool)
	d := Decorated{
		ID:     c.ID,
		Type:   c.Type,
		Kind:   c.Kind,
		Props:  maps.Clone(c.Props),
		Hidden: IsHiddenForViewport(c.ID, overlay, defaultHidden, vp),
		Locked: flags.Locked,
		Name:   flags.Name,
	}
	if flags.ZIndex != nil {
		z := *flags.ZIndex
		d.ZIndex = &z
	}
	if flags.Global != nil {
		g := *flags.Global
		d.Global = &g
	}
	if c.IsContainer() {
		d.Children = make([]Decorated, 0, len(c.Children))
		for _, child := range c.Children {
			d.Children = append(d.Children, decorate(child, overlay, vp))
		}
	}
	return d
}

// VisibleChildren drops hidden nodes from list, the way the canvas does
// before laying children out. Nested lists are not filtered.
func VisibleChildren(list []Decorated) []Decorated {
	out := make([]Decorated, 0, len(list))
	for _, d := range list {
		if !d.Hidden {
			out = append(out, d)
		}
	}
	return out
}

func (d Decorated) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Props)+8)
	for k, v := range d.Props {
		out[k] = v
	}
	out["id"] = d.ID
	out["type"] = d.Type
	out["hidden"] = d.Hidden
	out["locked"] = d.Locked
	if d.ZIndex != nil {
		out["zIndex"] = *d.ZIndex
	}
	if d.Name != "" {
		out["name"] = d.Name
	}
	if d.Global != nil {
		out["global"] = d.Global
	}
	if d.Kind == domain.KindContainer {
		children := d.Children
		if children == nil {
			children = []Decorated{}
		}
		out["children"] = children
	}
	return json.Marshal(out)
}
