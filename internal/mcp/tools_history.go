package mcpserver

import (
	"context"
	"fmt"

	"pagebuilder/internal/editor"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	// ── undo ───────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last edit of the page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUndo)

	// ── redo ───────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone edit of the page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleRedo)

	// ── list_revisions ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_revisions",
		mcp.WithDescription("List saved revisions of the page, newest first"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of revisions (default 20)")),
	), s.handleListRevisions)

	// ── restore_revision ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("restore_revision",
		mcp.WithDescription("Replace the page tree with a saved revision. The restore can be undone."),
		mcp.WithString("revisionId", mcp.Description("Revision ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleRestoreRevision)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.apply(ctx, req.GetArguments(), editor.Action{Type: editor.ActionUndo})
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.apply(ctx, req.GetArguments(), editor.Action{Type: editor.ActionRedo})
}

func (s *Server) handleListRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	limit, ok := intArg(args, "limit")
	if !ok || limit <= 0 {
		limit = 20
	}
	revs, err := s.pages.Revisions(ctx, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}

	type revisionSummary struct {
		ID      string `json:"id"`
		Label   string `json:"label"`
		Version int64  `json:"version"`
		At      string `json:"createdAt"`
	}
	out := make([]revisionSummary, 0, len(revs))
	for _, r := range revs {
		out = append(out, revisionSummary{ID: r.ID, Label: r.Label, Version: r.Version, At: r.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	return jsonResult(out)
}

func (s *Server) handleRestoreRevision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	revID, err := stringArg(args, "revisionId")
	if err != nil {
		return nil, err
	}
	res, err := s.pages.RestoreRevision(ctx, pageID, revID)
	if err != nil {
		return nil, err
	}
	return jsonResult(res)
}
