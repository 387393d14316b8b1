package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/getlawrence/gawriter/internal/config"
	"github.com/getlawrence/gawriter/internal/logger"
)

// NewRootCmd builds the gawriter command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gawriter",
		Short: "Google Analytics snippet writer",
		Long: `gawriter renders Google Analytics tracking snippets (ga.js, analytics.js,
gtag.js and AMP) from declarative page intents, injects them into HTML pages,
audits pages for existing tags and serves a live preview.

Configuration is read from .gawriter.yaml (current directory, then home),
overridden by GAWRITER_* environment variables and command flags.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadAppConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default .gawriter.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (text, json, yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newRenderCmd(),
		newInjectCmd(),
		newAnalyzeCmd(),
		newListCmd(),
		newServeCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command and reports errors on stderr.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// loadAppConfig loads the configuration and attaches it to the command
// context.
func loadAppConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("output") {
		cfg.Output.Format, _ = cmd.Flags().GetString("output")
	}
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		cfg.Output.Color = false
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	app := NewAppConfig(cfg, config.GetConfigPath(path), logger.New(cmd.ErrOrStderr(), quiet))
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		app.Verbose = true
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, configKey{}, app))
	return nil
}
