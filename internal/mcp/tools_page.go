package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
	"pagebuilder/internal/tree"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPageTools() {
	// ── create_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new draft page. The new page becomes the active page."),
		mcp.WithString("id", mcp.Description("Page ID (optional, generated if omitted)")),
		mcp.WithString("shop", mcp.Description("Shop the page belongs to (optional)")),
		mcp.WithString("slug", mcp.Description("URL slug, e.g. /about (optional)")),
		mcp.WithString("components", mcp.Description("Initial component tree as a JSON array (optional)")),
	), s.handleCreatePage)

	// ── get_page ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Get a page with its component tree and editor overlay"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGetPage)

	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List pages, optionally only those of one shop"),
		mcp.WithString("shop", mcp.Description("Shop filter (optional)")),
	), s.handleListPages)

	// ── set_active_page ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_page",
		mcp.WithDescription("Set the active page for subsequent tool calls. Tools that accept pageId will default to this."),
		mcp.WithString("pageId",
			mcp.Description("ID of the page to make active"),
			mcp.Required(),
		),
	), s.handleSetActivePage)

	// ── render_viewport ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("render_viewport",
		mcp.WithDescription("Render the page tree for one viewport with hidden, locked, zIndex and name applied from the editor overlay"),
		mcp.WithString("viewport", mcp.Description("Viewport: desktop, tablet, mobile"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithBoolean("visibleOnly", mcp.Description("Drop components hidden on this viewport (default false)")),
	), s.handleRenderViewport)

	// ── validate_page ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("validate_page",
		mcp.WithDescription("Check the page tree against the structural and template rules"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleValidatePage)

	// ── publish_page ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("publish_page",
		mcp.WithDescription("Validate and publish the page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handlePublishPage)

	// ── delete_page (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_page",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a page and all of its revisions."),
		mcp.WithString("pageId", mcp.Description("Page ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeletePage)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	components, err := treeArg(args, "components")
	if err != nil {
		return nil, err
	}
	p, err := s.pages.CreatePage(ctx, service.PageInput{
		ID:         req.GetString("id", ""),
		Shop:       req.GetString("shop", ""),
		Slug:       req.GetString("slug", ""),
		Components: components,
	})
	if err != nil {
		return nil, err
	}
	s.setActivePage(p.ID)
	return jsonResult(p)
}

func (s *Server) handleGetPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return jsonResult(p)
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.pages.ListPages(ctx, req.GetString("shop", ""))
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	type pageSummary struct {
		ID         string `json:"id"`
		Shop       string `json:"shop,omitempty"`
		Slug       string `json:"slug,omitempty"`
		Status     string `json:"status"`
		Version    int64  `json:"version"`
		Components int    `json:"components"`
	}
	out := make([]pageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, pageSummary{
			ID:         p.ID,
			Shop:       p.Shop,
			Slug:       p.Slug,
			Status:     string(p.Status),
			Version:    p.Version,
			Components: len(tree.Flatten(p.Components)),
		})
	}
	return jsonResult(out)
}

func (s *Server) handleSetActivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	if _, err := s.pages.GetPage(ctx, pageID); err != nil {
		return nil, err
	}
	s.setActivePage(pageID)
	return textResult(fmt.Sprintf("Active page set to %s", pageID)), nil
}

func (s *Server) handleRenderViewport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	vp, err := stringArg(args, "viewport")
	if err != nil {
		return nil, err
	}
	out, err := s.pages.Render(ctx, pageID, domain.Viewport(vp))
	if err != nil {
		return nil, err
	}
	if visibleOnly, _ := args["visibleOnly"].(bool); visibleOnly {
		out = tree.VisibleChildren(out)
	}
	return jsonResult(out)
}

func (s *Server) handleValidatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if err := tree.Validate(p.Components); err != nil {
		var verr *tree.ValidationError
		if errors.As(err, &verr) {
			return jsonResult(map[string]any{"valid": false, "issues": verr.Issues})
		}
		return nil, err
	}
	return jsonResult(map[string]any{"valid": true})
}

func (s *Server) handlePublishPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	p, err := s.pages.Publish(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Published %s (version %d)", p.ID, p.Version)), nil
}

func (s *Server) handleDeletePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := stringArg(req.GetArguments(), "pageId")
	if err != nil {
		return nil, err
	}
	if err := s.pages.DeletePage(ctx, pageID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.activePageID == pageID {
		s.activePageID = ""
	}
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Deleted page %s", pageID)), nil
}
