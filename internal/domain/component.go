package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeKind tells leaves from containers. It is fixed when a node is built
// and never inferred from the presence of a children field afterwards.
type NodeKind int

const (
	KindLeaf NodeKind = iota
	KindContainer
)

func (k NodeKind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindContainer:
		return "container"
	default:
		return "unknown"
	}
}

// containerTypes are the component types allowed to own children.
var containerTypes = map[string]struct{}{
	"Section":                {},
	"Canvas":                 {},
	"MultiColumn":            {},
	"StackFlex":              {},
	"Grid":                   {},
	"CarouselContainer":      {},
	"TabsAccordionContainer": {},
	"Tabs":                   {},
	"Dataset":                {},
	"Repeater":               {},
	"Bind":                   {},
}

// IsContainerType reports whether components of type t hold children.
func IsContainerType(t string) bool {
	_, ok := containerTypes[t]
	return ok
}

// Component is a node of the page-builder tree.
//
// Components are treated as immutable once built: tree operations allocate
// new nodes along the edited path and share every untouched subtree, so a
// *Component (and its Props map) must never be modified in place.
type Component struct {
	ID       string
	Type     string
	Kind     NodeKind
	Props    map[string]any
	Children []*Component // always non-nil for containers, nil for leaves
}

// NewLeaf builds a childless component.
func NewLeaf(id, typ string, props map[string]any) *Component {
	return &Component{ID: id, Type: typ, Kind: KindLeaf, Props: props}
}

// NewContainer builds a component that owns the given children.
func NewContainer(id, typ string, props map[string]any, children ...*Component) *Component {
	if children == nil {
		children = []*Component{}
	}
	return &Component{ID: id, Type: typ, Kind: KindContainer, Props: props, Children: children}
}

// IsContainer reports whether c may hold children.
func (c *Component) IsContainer() bool {
	return c != nil && c.Kind == KindContainer
}

// Prop returns a type-specific field.
func (c *Component) Prop(key string) (any, bool) {
	if c == nil || c.Props == nil {
		return nil, false
	}
	v, ok := c.Props[key]
	return v, ok
}

// WithChildren returns a shallow copy of c holding children.
// Props are shared; callers replace them rather than write into them.
func (c *Component) WithChildren(children []*Component) *Component {
	cp := *c
	if children == nil {
		children = []*Component{}
	}
	cp.Children = children
	return &cp
}

// WithProps returns a shallow copy of c holding props.
func (c *Component) WithProps(props map[string]any) *Component {
	cp := *c
	cp.Props = props
	return &cp
}

// reserved keys never live in Props.
var reservedKeys = map[string]struct{}{"id": {}, "type": {}, "children": {}}

// IsReservedKey reports whether key is a structural field rather than a prop.
func IsReservedKey(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// MarshalJSON flattens props next to id, type and children, which is the
// shape pages are stored in.
func (c *Component) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Props)+3)
	for k, v := range c.Props {
		if IsReservedKey(k) {
			continue
		}
		out[k] = v
	}
	out["id"] = c.ID
	out["type"] = c.Type
	if c.IsContainer() {
		children := c.Children
		if children == nil {
			children = []*Component{}
		}
		out["children"] = children
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flattened shape. A node becomes a container when
// it carries a children array or when its type is a known container type.
func (c *Component) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode component: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("decode component: null node")
	}

	var id, typ string
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &id); err != nil {
			return fmt.Errorf("decode component id: %w", err)
		}
	}
	if v, ok := raw["type"]; ok {
		if err := json.Unmarshal(v, &typ); err != nil {
			return fmt.Errorf("decode component %s type: %w", id, err)
		}
	}

	*c = Component{ID: id, Type: typ, Kind: KindLeaf}

	if v, ok := raw["children"]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		var children []*Component
		if err := json.Unmarshal(v, &children); err != nil {
			return fmt.Errorf("decode component %s children: %w", id, err)
		}
		for i, child := range children {
			if child == nil {
				return fmt.Errorf("decode component %s: null child at index %d", id, i)
			}
		}
		c.Kind = KindContainer
		c.Children = children
		if c.Children == nil {
			c.Children = []*Component{}
		}
	} else if IsContainerType(typ) {
		c.Kind = KindContainer
		c.Children = []*Component{}
	}

	for k, v := range raw {
		if IsReservedKey(k) {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("decode component %s field %s: %w", id, k, err)
		}
		if c.Props == nil {
			c.Props = make(map[string]any, len(raw))
		}
		c.Props[k] = val
	}
	return nil
}

// Tree is the ordered list of root-level components.
type Tree []*Component

// ParseTree decodes a stored tree. Anything other than a JSON array is a
// caller bug and is reported as an error.
func ParseTree(data []byte) (Tree, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("parse tree: expected a JSON array of components")
	}
	var t Tree
	if err := json.Unmarshal(trimmed, &t); err != nil {
		return nil, fmt.Errorf("parse tree: %w", err)
	}
	for i, c := range t {
		if c == nil {
			return nil, fmt.Errorf("parse tree: null component at index %d", i)
		}
	}
	if t == nil {
		t = Tree{}
	}
	return t, nil
}

// MarshalJSON keeps an empty tree as [] rather than null.
func (t Tree) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]*Component(t))
}

// Location addresses a slot: ParentID "" is the root list.
type Location struct {
	ParentID string `json:"parentId,omitempty"`
	Index    int    `json:"index"`
}
