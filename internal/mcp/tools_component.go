package mcpserver

import (
	"context"
	"fmt"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/tree"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerComponentTools() {
	// ── add_component ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_component",
		mcp.WithDescription("Insert a component into the page tree. Ids that are missing or already used are replaced with fresh ones."),
		mcp.WithString("component",
			mcp.Description(`Component as a JSON object, e.g. {"id":"hero","type":"Section","children":[]}`),
			mcp.Required(),
		),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("parentId", mcp.Description("Container to insert into (optional, root when omitted)")),
		mcp.WithNumber("index", mcp.Description("Position among the siblings (optional, appends when omitted)")),
	), s.handleAddComponent)

	// ── move_component ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_component",
		mcp.WithDescription("Move the component at one slot to another slot. The target index is read after the component is removed from its old slot."),
		mcp.WithNumber("fromIndex", mcp.Description("Index of the component in its current parent"), mcp.Required()),
		mcp.WithNumber("toIndex", mcp.Description("Index in the new parent"), mcp.Required()),
		mcp.WithString("fromParentId", mcp.Description("Current parent (optional, root when omitted)")),
		mcp.WithString("toParentId", mcp.Description("New parent (optional, root when omitted)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleMoveComponent)

	// ── remove_component (destructive) ─────────────────
	s.mcp.AddTool(mcp.NewTool("remove_component",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a component and all of its descendants. Undo restores it."),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveComponent)

	// ── update_component ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_component",
		mcp.WithDescription("Merge fields into a component. Numeric fields given as strings are coerced; values that are not numbers remove the field. A null value removes a field."),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("patch", mcp.Description(`Fields as a JSON object, e.g. {"text":"Hello","maxItems":"6"}`), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUpdateComponent)

	// ── resize_component ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_component",
		mcp.WithDescription("Set CSS lengths on a component as the canvas resize handles do"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("width", mcp.Description("CSS width, e.g. 320px or 50% (optional)")),
		mcp.WithString("height", mcp.Description("CSS height (optional)")),
		mcp.WithString("left", mcp.Description("CSS left offset (optional)")),
		mcp.WithString("top", mcp.Description("CSS top offset (optional)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleResizeComponent)

	// ── duplicate_component ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_component",
		mcp.WithDescription("Deep-copy a component with fresh ids and insert the copy right after the original"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleDuplicateComponent)

	// ── group_components ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("group_components",
		mcp.WithDescription("Wrap sibling components in a new container placed where the first of them was"),
		mcp.WithString("componentIds", mcp.Description("Comma-separated component IDs sharing one parent"), mcp.Required()),
		mcp.WithString("containerType", mcp.Description("Container type, e.g. Section, StackFlex, Grid"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGroupComponents)

	// ── ungroup_container ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("ungroup_container",
		mcp.WithDescription("Replace a container with its children"),
		mcp.WithString("containerId", mcp.Description("Container ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUngroupContainer)

	// ── set_editor_flags ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_editor_flags",
		mcp.WithDescription("Set editor-only metadata of a component: display name, lock, z-index and per-viewport visibility. Omitted flags are cleared."),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Display name in the layers panel (optional)")),
		mcp.WithBoolean("locked", mcp.Description("Lock against canvas edits (optional)")),
		mcp.WithNumber("zIndex", mcp.Description("Stacking order (optional)")),
		mcp.WithString("hidden", mcp.Description(`Comma-separated viewports to hide on, e.g. "mobile,tablet". Pass "none" to show on every viewport regardless of the component default (optional)`)),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleSetEditorFlags)
}

// ── Handlers ───────────────────────────────────────────────

// apply resolves the page and runs a.
func (s *Server) apply(ctx context.Context, args map[string]any, a editor.Action) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	res, err := s.pages.Apply(ctx, pageID, a)
	if err != nil {
		return nil, err
	}
	return jsonResult(res)
}

func (s *Server) handleAddComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	c, err := componentArg(args, "component")
	if err != nil {
		return nil, err
	}
	a := editor.Action{Type: editor.ActionAdd, Component: c, ParentID: req.GetString("parentId", "")}
	if idx, ok := intArg(args, "index"); ok {
		a.Index = &idx
	}
	return s.apply(ctx, args, a)
}

func (s *Server) handleMoveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	from, ok := intArg(args, "fromIndex")
	if !ok {
		return nil, fmt.Errorf("fromIndex is required")
	}
	to, ok := intArg(args, "toIndex")
	if !ok {
		return nil, fmt.Errorf("toIndex is required")
	}
	return s.apply(ctx, args, editor.Action{
		Type: editor.ActionMove,
		From: &domain.Location{ParentID: req.GetString("fromParentId", ""), Index: from},
		To:   &domain.Location{ParentID: req.GetString("toParentId", ""), Index: to},
	})
}

func (s *Server) handleRemoveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := stringArg(args, "componentId")
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, args, editor.Action{Type: editor.ActionRemove, ID: id})
}

func (s *Server) handleUpdateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := stringArg(args, "componentId")
	if err != nil {
		return nil, err
	}
	raw, err := stringArg(args, "patch")
	if err != nil {
		return nil, err
	}
	var patch map[string]any
	if err := parseJSON(raw, &patch); err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}
	return s.apply(ctx, args, editor.Action{Type: editor.ActionUpdate, ID: id, Patch: patch})
}

func (s *Server) handleResizeComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := stringArg(args, "componentId")
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, args, editor.Action{Type: editor.ActionResize, ID: id, Resize: &tree.ResizePatch{
		Width:  req.GetString("width", ""),
		Height: req.GetString("height", ""),
		Left:   req.GetString("left", ""),
		Top:    req.GetString("top", ""),
	}})
}

func (s *Server) handleDuplicateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := stringArg(args, "componentId")
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, args, editor.Action{Type: editor.ActionDuplicate, ID: id})
}

func (s *Server) handleGroupComponents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	idsStr, err := stringArg(args, "componentIds")
	if err != nil {
		return nil, err
	}
	containerType, err := stringArg(args, "containerType")
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, args, editor.Action{Type: editor.ActionGroup, IDs: splitList(idsStr), ContainerType: containerType})
}

func (s *Server) handleUngroupContainer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := stringArg(args, "containerId")
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, args, editor.Action{Type: editor.ActionUngroup, ID: id})
}

func (s *Server) handleSetEditorFlags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	id, err := stringArg(args, "componentId")
	if err != nil {
		return nil, err
	}

	flags := domain.EditorFlags{Name: req.GetString("name", "")}
	flags.Locked, _ = args["locked"].(bool)
	if z, ok := intArg(args, "zIndex"); ok {
		flags.ZIndex = &z
	}
	switch hidden := req.GetString("hidden", ""); hidden {
	case "":
	case "none":
		flags.Hidden = []domain.Viewport{}
	default:
		for _, vp := range splitList(hidden) {
			flags.Hidden = append(flags.Hidden, domain.Viewport(vp))
		}
	}

	if err := s.pages.SetEditorFlags(ctx, pageID, id, flags); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Updated editor flags of %s", id)), nil
}
