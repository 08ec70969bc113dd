package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const pageURIPrefix = "pagebuilder://page/"

func (s *Server) registerResources() {
	// ── pagebuilder://pages ────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"pagebuilder://pages",
		"All Pages",
		mcp.WithMIMEType("application/json"),
	), s.handlePagesResource)

	// ── pagebuilder://page/{pageId} ────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageURIPrefix+"{pageId}",
			"Page Component Tree",
		),
		s.handlePageResource,
	)
}

func (s *Server) handlePagesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pages, err := s.pages.ListPages(ctx, "")
	if err != nil {
		return nil, err
	}

	type pageSummary struct {
		ID     string `json:"id"`
		Shop   string `json:"shop,omitempty"`
		Slug   string `json:"slug,omitempty"`
		Status string `json:"status"`
	}

	summaries := make([]pageSummary, 0, len(pages))
	for _, p := range pages {
		summaries = append(summaries, pageSummary{ID: p.ID, Shop: p.Shop, Slug: p.Slug, Status: string(p.Status)})
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "pagebuilder://pages",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := extractPageIDFromURI(uri)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	data, _ := json.MarshalIndent(p, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// extractPageIDFromURI extracts the page ID from "pagebuilder://page/{id}".
func extractPageIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, pageURIPrefix)
	if !ok {
		return ""
	}
	if i := strings.IndexAny(id, "/?#"); i >= 0 {
		id = id[:i]
	}
	return id
}
