package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/getlawrence/gawriter/internal/detector"
	"github.com/getlawrence/gawriter/internal/injector"
	"github.com/getlawrence/gawriter/internal/logger"
	"github.com/getlawrence/gawriter/internal/ui"
)

type injectSummary struct {
	Root     string             `json:"root" yaml:"root"`
	Mode     string             `json:"mode" yaml:"mode"`
	DryRun   bool               `json:"dry_run" yaml:"dry_run"`
	Modified int                `json:"modified" yaml:"modified"`
	Skipped  int                `json:"skipped" yaml:"skipped"`
	Results  []*injector.Result `json:"results" yaml:"results"`
}

func newInjectCmd() *cobra.Command {
	var (
		wf   writerFlags
		opts injector.Options
	)
	cmd := &cobra.Command{
		Use:   "inject [path]",
		Short: "Inject the tracking snippet into HTML pages",
		Long: `Inject discovers HTML pages under path (or the current directory) and inserts
the rendered snippet just before </head>, or right after <body> when a page has
no head. AMP mode also inserts the amp-analytics loader into <head>. Pages that
already carry a Google Analytics tag are skipped unless --force is given.

Example usage:
  gawriter inject site/ --mode gtag.js --dry-run
  gawriter inject site/index.html --intents page.yaml --backup`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			absPath, err := filepath.Abs(target)
			if err != nil {
				return fmt.Errorf("failed to resolve path: %w", err)
			}
			if _, err := os.Stat(absPath); os.IsNotExist(err) {
				return fmt.Errorf("path does not exist: %s", absPath)
			}

			app := appConfig(cmd)
			w, err := wf.buildWriter(cmd, app, app.Logger)
			if err != nil {
				return err
			}
			snippet, err := w.Render()
			if err != nil {
				return err
			}
			head, err := w.RenderHead()
			if err != nil {
				return err
			}

			pages, err := detector.DiscoverPages(absPath, app.Config.Scan)
			if err != nil {
				return fmt.Errorf("failed to discover pages: %w", err)
			}
			app.Debugf("Found %d page(s) under %s\n", len(pages), absPath)

			summary := &injectSummary{Root: absPath, Mode: w.Mode().String(), DryRun: opts.DryRun}
			run := func(ctx context.Context, log logger.Logger, progress chan<- string) error {
				inj := injector.New(opts, log)
				for _, page := range pages {
					if progress != nil {
						progress <- "Injecting " + page.RelPath
					}
					res, err := inj.Inject(ctx, page, snippet, head)
					if err != nil {
						return err
					}
					summary.Results = append(summary.Results, res)
					if res.Changed() {
						summary.Modified++
					} else {
						summary.Skipped++
					}
				}
				return nil
			}

			if useSpinner(app) {
				err = ui.RunSpinner(cmd.Context(), "Injecting snippets...", func(ctx context.Context, progress chan<- string) error {
					return run(ctx, logger.Discard, progress)
				}, spinnerOptions(cmd)...)
			} else {
				err = run(cmd.Context(), app.Logger, nil)
			}
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), app.Config.Output.Format, summary, func() string {
				verb := "Modified"
				if summary.DryRun {
					verb = "Would modify"
				}
				return fmt.Sprintf("%s %d page(s), skipped %d (%s)\n", verb, summary.Modified, summary.Skipped, summary.Mode)
			})
		},
	}
	wf.register(cmd)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would change without writing")
	cmd.Flags().BoolVar(&opts.Backup, "backup", false, "keep the original page as <page>.backup")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "inject even into pages that already carry analytics")
	return cmd
}

// useSpinner reports whether progress is shown with the interactive spinner.
func useSpinner(app *AppConfig) bool {
	if app.Logger == logger.Discard || app.Verbose {
		return false
	}
	format := app.Config.Output.Format
	return (format == "" || format == "text") && logger.IsInteractive()
}

func spinnerOptions(cmd *cobra.Command) []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithOutput(cmd.ErrOrStderr())}
}
