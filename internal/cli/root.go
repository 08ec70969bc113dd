// Package cli holds the pagebuilder command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
	"pagebuilder/internal/config"
	"pagebuilder/internal/service"
)

type options struct {
	configPath string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "pagebuilder",
		Short:         "Edit page-builder component trees from the command line or over MCP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "pagebuilder.yaml", "Path to config file (optional)")

	root.AddCommand(
		newMCPCmd(opts),
		newCreateCmd(opts),
		newApplyCmd(opts),
		newRenderCmd(opts),
		newValidateCmd(opts),
		newHistoryCmd(opts),
		newPublishCmd(opts),
		newCompactCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) load() (config.Config, error) {
	return config.Load(o.configPath)
}

// withApp opens the app for one command and closes it afterwards.
func (o *options) withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, app.Options{Emitter: quietEmitter{}})
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(a)
}

// quietEmitter drops events; one-shot commands have no listeners.
type quietEmitter struct{}

func (quietEmitter) Emit(context.Context, string, any) {}

var _ service.EventEmitter = quietEmitter{}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
