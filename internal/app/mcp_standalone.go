package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pagebuilder/internal/config"
	mcpserver "pagebuilder/internal/mcp"
)

// ServeMCP runs the page builder as a standalone MCP server on stdin/stdout.
// It initializes storage and services and runs the MCP server until
// interrupted.
func ServeMCP(cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, Options{Background: true})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	srv := mcpserver.New(mcpserver.Deps{Pages: a.Pages})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("[MCP] shutting down")
		return nil
	}
}
