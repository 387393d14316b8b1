package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/getlawrence/gawriter/internal/config"
	"github.com/getlawrence/gawriter/internal/logger"
	"github.com/getlawrence/gawriter/internal/server"
)

type serveFlags struct {
	addr    string
	intents string
	root    string
	watch   bool
	debug   bool
}

// apply overrides the serve section of cfg with the command line.
func (f *serveFlags) apply(cfg *config.Config) {
	if f.addr != "" {
		cfg.Serve.Addr = f.addr
	}
	if f.intents != "" {
		cfg.Serve.Intents = f.intents
	}
	if f.root != "" {
		cfg.Serve.Root = f.root
	}
}

func newServeCmd() *cobra.Command {
	var sf serveFlags
	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Serve pages with the snippet injected on the fly",
		Long: `Serve starts a local preview server for a directory of pages. Every HTML
page is served with the configured snippet injected, the index lists the pages
and their existing tags, and ?mode= previews an alternate tracking library.

Example usage:
  gawriter serve site/
  gawriter serve site/ --addr :9000 --intents page.yaml --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				sf.root = args[0]
			}
			app := appConfig(cmd)
			cfg := *app.Config
			sf.apply(&cfg)

			zl, err := logger.NewZap(sf.debug || app.Verbose)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = zl.Sync() }()

			srv, err := server.New(&cfg, zl)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if sf.watch {
				watcher, err := config.NewWatcher(app.ConfigPath, func(next *config.Config, err error) {
					if err != nil {
						zl.Warn("config reload failed", zap.Error(err))
						return
					}
					sf.apply(next)
					if err := srv.Reload(next); err != nil {
						zl.Warn("config rejected", zap.Error(err))
					}
				})
				if err != nil {
					return err
				}
				if err := watcher.Start(ctx); err != nil {
					return err
				}
				defer watcher.Stop()
				zl.Info("watching config", zap.String("path", app.ConfigPath))
			}

			return srv.ListenAndServe(ctx, cfg.Serve.Addr)
		},
	}
	cmd.Flags().StringVar(&sf.addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().StringVarP(&sf.intents, "intents", "i", "", "YAML file of page tracking intents applied to every page")
	cmd.Flags().BoolVarP(&sf.watch, "watch", "w", false, "reload the config file when it changes")
	cmd.Flags().BoolVar(&sf.debug, "debug", false, "log at debug level")
	return cmd
}
