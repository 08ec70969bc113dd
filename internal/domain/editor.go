package domain

// Viewport names a responsive breakpoint.
type Viewport string

const (
	ViewportDesktop Viewport = "desktop"
	ViewportTablet  Viewport = "tablet"
	ViewportMobile  Viewport = "mobile"
)

// Viewports lists the breakpoints the editor knows about.
var Viewports = []Viewport{ViewportDesktop, ViewportTablet, ViewportMobile}

// Valid reports whether v is a known breakpoint.
func (v Viewport) Valid() bool {
	for _, known := range Viewports {
		if v == known {
			return true
		}
	}
	return false
}

// GlobalRef links a component to a shared template record.
type GlobalRef struct {
	TemplateID string `json:"templateId"`
	Name       string `json:"name,omitempty"`
}

// EditorFlags is the editor-only metadata kept for one component id.
//
// Hidden == nil means "no override"; a non-nil slice, even an empty one, is
// an explicit per-viewport decision that beats the component default.
type EditorFlags struct {
	Name   string     `json:"name,omitempty"`
	Locked bool       `json:"locked,omitempty"`
	ZIndex *int       `json:"zIndex,omitempty"`
	Hidden []Viewport `json:"hidden"`
	Global *GlobalRef `json:"global,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with f.
func (f EditorFlags) Clone() EditorFlags {
	cp := f
	if f.ZIndex != nil {
		z := *f.ZIndex
		cp.ZIndex = &z
	}
	if f.Hidden != nil {
		cp.Hidden = append([]Viewport{}, f.Hidden...)
	}
	if f.Global != nil {
		g := *f.Global
		cp.Global = &g
	}
	return cp
}

// Overlay maps component ids to their editor flags. It is owned by the
// editor and only read by the tree engine.
type Overlay map[string]EditorFlags
