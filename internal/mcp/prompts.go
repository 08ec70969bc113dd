package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("build_landing_page",
		mcp.WithPromptDescription("Guide through building a landing page from sections"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the page is about"),
			mcp.RequiredArgument(),
		),
	), s.handleLandingPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("responsive_review",
		mcp.WithPromptDescription("Review a page on every viewport and fix what breaks"),
		mcp.WithArgument("pageId",
			mcp.ArgumentDescription("Page to review"),
			mcp.RequiredArgument(),
		),
	), s.handleResponsiveReviewPrompt)
}

func (s *Server) handleLandingPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a landing page for: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a landing page about "%s". Follow these steps:

1. Use create_page to start a draft page
2. Add a hero Section with add_component, then add a heading Text and a call-to-action Button inside it (parentId = the section id)
3. Add a Grid section with three feature cards; build one card, then use duplicate_component for the others
4. Use update_component to fill in copy for each card
5. Run validate_page, fix any issues it reports, then render_viewport for mobile to check the layout

Do not use absolute positioning on root sections and avoid 100vw/100vh sizes.`, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleResponsiveReviewPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	pageID := req.Params.Arguments["pageId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Responsive review of page %s", pageID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Review page %s on every viewport:

1. Call render_viewport with desktop, tablet and mobile
2. For components that crowd the mobile layout, use set_editor_flags with hidden="mobile"
3. Use resize_component to give wide components relative widths (e.g. 100%%) instead of fixed pixels
4. Run validate_page and publish_page once everything passes`, pageID),
				},
			},
		},
	}, nil
}
