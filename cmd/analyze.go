package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getlawrence/gawriter/internal/detector"
	"github.com/getlawrence/gawriter/internal/detector/issues"
	"github.com/getlawrence/gawriter/internal/domain"
	"github.com/getlawrence/gawriter/internal/logger"
	"github.com/getlawrence/gawriter/internal/ui"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		detailed   bool
		categories []string
		account    string
	)
	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Audit HTML pages for Google Analytics tags",
		Long: `Analyze scans the specified directory (or current directory) to:
- Find HTML and AMP pages
- Detect existing ga.js, analytics.js, gtag.js and amp-analytics tags
- Identify pages without tracking or with misplaced or conflicting tags

Example usage:
  gawriter analyze                    # Analyze current directory
  gawriter analyze site/ --detailed   # Show per-page tags and issues
  gawriter analyze site/ -o json      # Output results as JSON`,
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
			app.Debugf("Analyzing pages at: %s\n", absPath)

			if account == "" {
				account = app.Config.Analytics.AccountID
			}
			manager := detector.NewManager(app.Config.Scan)
			for _, d := range issues.Defaults(account) {
				manager.RegisterDetector(d)
			}

			spin := logger.StartSpinner(app.Logger, "Analyzing pages...")
			analysis, err := manager.AnalyzePages(cmd.Context(), absPath)
			if err != nil {
				spin.Fail()
				return fmt.Errorf("analysis failed: %w", err)
			}
			spin.Stop()

			if len(categories) > 0 {
				filterCategories(analysis, categories)
			}

			return writeOutput(cmd.OutOrStdout(), app.Config.Output.Format, analysis, func() string {
				return ui.RenderAnalysis(analysis, detailed, app.Config.Output.Color)
			})
		},
	}
	cmd.Flags().BoolVarP(&detailed, "detailed", "d", false, "show per-page tags and issues")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "limit issues to categories (missing_analytics, configuration, placement, ...)")
	cmd.Flags().StringVarP(&account, "account", "a", "", "expected account id, overriding the configured one")
	return cmd
}

// filterCategories drops every issue outside categories.
func filterCategories(analysis *detector.Analysis, categories []string) {
	keep := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		keep[domain.Category(strings.TrimSpace(c))] = true
	}
	for _, page := range analysis.Pages {
		filtered := page.Issues[:0]
		for _, issue := range page.Issues {
			if keep[issue.Category] {
				filtered = append(filtered, issue)
			}
		}
		page.Issues = filtered
	}
}
