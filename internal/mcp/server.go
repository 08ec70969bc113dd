// Package mcpserver exposes the page builder to AI agents over the Model
// Context Protocol.
package mcpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"pagebuilder/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the page builder.
// It exposes tools, resources, and prompts so agents can edit page trees.
type Server struct {
	mcp   *server.MCPServer
	pages *service.PageService

	// Active page context (set by set_active_page tool)
	mu           sync.Mutex
	activePageID string
}

// Deps holds the services passed from the app layer to the MCP server.
type Deps struct {
	Pages *service.PageService
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{pages: deps.Pages}

	s.mcp = server.NewMCPServer(
		"pagebuilder-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPageTools()
	s.registerComponentTools()
	s.registerHistoryTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

var errNoPage = errors.New("no pageId provided and no active page set (use set_active_page first)")

// resolvePageID returns the pageID from tool args or falls back to activePageID.
func (s *Server) resolvePageID(args map[string]any) (string, error) {
	if pid, ok := args["pageId"].(string); ok && pid != "" {
		return pid, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePageID != "" {
		return s.activePageID, nil
	}
	return "", errNoPage
}

func (s *Server) setActivePage(id string) {
	s.mu.Lock()
	s.activePageID = id
	s.mu.Unlock()
}

// ActivePage returns the page tools default to.
func (s *Server) ActivePage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePageID
}
