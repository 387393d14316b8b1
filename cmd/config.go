package cmd

import (
	"github.com/spf13/cobra"

	"github.com/getlawrence/gawriter/internal/config"
	"github.com/getlawrence/gawriter/internal/logger"
)

type configKey struct{}

// AppConfig holds all the shared configuration and dependencies
type AppConfig struct {
	Config     *config.Config
	ConfigPath string
	Logger     logger.Logger
	Verbose    bool
}

// NewAppConfig creates a new configuration instance
func NewAppConfig(cfg *config.Config, path string, log logger.Logger) *AppConfig {
	return &AppConfig{
		Config:     cfg,
		ConfigPath: path,
		Logger:     log,
	}
}

// appConfig returns the configuration loaded by the root command, or the
// defaults when the command runs outside the tree.
func appConfig(cmd *cobra.Command) *AppConfig {
	if ctx := cmd.Context(); ctx != nil {
		if app, ok := ctx.Value(configKey{}).(*AppConfig); ok {
			return app
		}
	}
	return NewAppConfig(config.DefaultConfig(), "", logger.Discard)
}

// Debugf logs only in verbose mode.
func (a *AppConfig) Debugf(format string, args ...interface{}) {
	if a.Verbose {
		a.Logger.Logf(format, args...)
	}
}
