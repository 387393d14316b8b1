package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getlawrence/gawriter/internal/detector/issues"
	"github.com/getlawrence/gawriter/pkg/analytics"
)

type modeInfo struct {
	Number      int    `json:"number" yaml:"number"`
	Name        string `json:"name" yaml:"name"`
	SinglePush  bool   `json:"single_push" yaml:"single_push"`
	Description string `json:"description" yaml:"description"`
	Default     bool   `json:"default,omitempty" yaml:"default,omitempty"`
}

var modeDescriptions = map[analytics.Mode]string{
	analytics.ModeGAJS:      "legacy _gaq.push command queue",
	analytics.ModeAnalytics: "Universal Analytics ga() commands",
	analytics.ModeGtag:      "global site tag gtag() commands",
	analytics.ModeAMP:       "<amp-analytics> JSON configuration",
}

type strategyInfo struct {
	Number      int    `json:"number" yaml:"number"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type detectorInfo struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracking modes, dimension strategies and issue detectors",
		Long: `List displays the values accepted by the mode and strategy settings
and the checks run by analyze.

Available subcommands:
  modes       List tracking libraries
  strategies  List gtag.js custom dimension strategies
  detectors   List all available issue detectors`,
	}
	cmd.AddCommand(newListModesCmd(), newListStrategiesCmd(), newListDetectorsCmd())
	return cmd
}

func newListModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List tracking libraries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var modes []modeInfo
			for _, m := range analytics.Modes() {
				modes = append(modes, modeInfo{
					Number:      int(m),
					Name:        m.String(),
					SinglePush:  m.SupportsSinglePush(),
					Description: modeDescriptions[m],
					Default:     m == analytics.DefaultMode,
				})
			}
			return writeOutput(cmd.OutOrStdout(), appConfig(cmd).Config.Output.Format, modes, func() string {
				var b strings.Builder
				b.WriteString("Tracking modes:\n")
				for _, m := range modes {
					name := m.Name
					if m.Default {
						name += " (default)"
					}
					fmt.Fprintf(&b, "  %d  %-24s %s\n", m.Number, name, m.Description)
				}
				return b.String()
			})
		},
	}
}

func newListStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List gtag.js custom dimension strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			strategies := []strategyInfo{
				{
					Number:      int(analytics.DimensionsSetConfig),
					Name:        analytics.DimensionsSetConfig.String(),
					Description: "set dimension values before config, the automatic pageview carries them",
				},
				{
					Number:      int(analytics.DimensionsConfigNoPageviewSetEvent),
					Name:        analytics.DimensionsConfigNoPageviewSetEvent.String(),
					Description: "config without a pageview, then send the pageview as an event after set",
				},
			}
			return writeOutput(cmd.OutOrStdout(), appConfig(cmd).Config.Output.Format, strategies, func() string {
				var b strings.Builder
				b.WriteString("gtag.js dimension strategies:\n")
				for _, s := range strategies {
					fmt.Fprintf(&b, "  %d  %s\n     %s\n", s.Number, s.Name, s.Description)
				}
				return b.String()
			})
		},
	}
}

func newListDetectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detectors",
		Short: "List all available issue detectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appConfig(cmd)
			// the account check is listed even when no account is configured
			account := app.Config.Analytics.AccountID
			if account == "" {
				account = "UA-XXXX-Y"
			}
			var detectors []detectorInfo
			for _, d := range issues.Defaults(account) {
				detectors = append(detectors, detectorInfo{
					ID:          d.ID(),
					Name:        d.Name(),
					Category:    string(d.Category()),
					Description: d.Description(),
				})
			}
			return writeOutput(cmd.OutOrStdout(), app.Config.Output.Format, detectors, func() string {
				var b strings.Builder
				b.WriteString("Issue detectors:\n")
				for _, d := range detectors {
					fmt.Fprintf(&b, "  %-20s %s [%s]\n     %s\n", d.ID, d.Name, d.Category, d.Description)
				}
				return b.String()
			})
		},
	}
}
