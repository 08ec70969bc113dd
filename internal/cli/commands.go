package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
	"pagebuilder/internal/tree"
)

func newMCPCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return app.ServeMCP(cfg)
		},
	}
}

func newCreateCmd(opts *options) *cobra.Command {
	var shop, slug, from string
	cmd := &cobra.Command{
		Use:   "create [pageId]",
		Short: "Create a draft page, optionally from a component tree file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := service.PageInput{Shop: shop, Slug: slug}
			if len(args) == 1 {
				in.ID = args[0]
			}
			if from != "" {
				raw, err := readInput(cmd, from)
				if err != nil {
					return err
				}
				if in.Components, err = domain.ParseTree(raw); err != nil {
					return fmt.Errorf("parse %s: %w", from, err)
				}
			}
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				p, err := a.Pages.CreatePage(cmd.Context(), in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "", "Shop the page belongs to")
	cmd.Flags().StringVar(&slug, "slug", "", "URL slug")
	cmd.Flags().StringVarP(&from, "from", "f", "", "Component tree JSON file, - for stdin")
	return cmd
}

func newApplyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <pageId> <action.json|->",
		Short: "Apply one editor action (JSON) to a page",
		Long: `Apply one editor action to a page and print the resulting tree.

An action is a JSON object such as
  {"type":"add","parentId":"hero","component":{"id":"t1","type":"Text"}}
  {"type":"move","from":{"index":0},"to":{"parentId":"hero","index":2}}
  {"type":"group","ids":["a","b"],"containerType":"StackFlex"}`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			var a editor.Action
			if err := parseAction(raw, &a); err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(ap *app.App) error {
				res, err := ap.Pages.Apply(cmd.Context(), args[0], a)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newRenderCmd(opts *options) *cobra.Command {
	var viewport string
	var visibleOnly bool
	cmd := &cobra.Command{
		Use:   "render <pageId>",
		Short: "Print the page tree decorated for one viewport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				out, err := a.Pages.Render(cmd.Context(), args[0], domain.Viewport(viewport))
				if err != nil {
					return err
				}
				if visibleOnly {
					out = tree.VisibleChildren(out)
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVarP(&viewport, "viewport", "v", string(domain.ViewportDesktop), "desktop, tablet or mobile")
	cmd.Flags().BoolVar(&visibleOnly, "visible", false, "Drop root components hidden on the viewport")
	return cmd
}

func newValidateCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate [pageId]",
		Short: "Check a stored page, or a tree file given with --file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t domain.Tree
			switch {
			case file != "":
				raw, err := readInput(cmd, file)
				if err != nil {
					return err
				}
				if t, err = domain.ParseTree(raw); err != nil {
					return fmt.Errorf("parse %s: %w", file, err)
				}
			case len(args) == 1:
				err := opts.withApp(cmd.Context(), func(a *app.App) error {
					p, err := a.Pages.GetPage(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					t = p.Components
					return nil
				})
				if err != nil {
					return err
				}
			default:
				return errors.New("give a pageId or --file")
			}

			if err := tree.Validate(t); err != nil {
				var verr *tree.ValidationError
				if errors.As(err, &verr) {
					for _, issue := range verr.Issues {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", pathString(issue.Path), issue.Message)
					}
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d component(s)\n", len(tree.Flatten(t)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Component tree JSON file, - for stdin")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <pageId>",
		Short: "List stored revisions of a page, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				revs, err := a.Pages.Revisions(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, r := range revs {
					fmt.Fprintf(w, "v%-4d %s  %-36s %s\n", r.Version, r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.Label)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of revisions")
	return cmd
}

func newPublishCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <pageId>",
		Short: "Validate and publish a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				p, err := a.Pages.Publish(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published %s (version %d)\n", p.ID, p.Version)
				return nil
			})
		},
	}
}

func newCompactCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Prune revisions to the configured number per page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				n, err := a.Compact(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d revision(s)\n", n)
				return nil
			})
		},
	}
}
