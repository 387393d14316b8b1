package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getlawrence/gawriter/internal/logger"
	"github.com/getlawrence/gawriter/pkg/analytics"
	"github.com/getlawrence/gawriter/pkg/analytics/intents"
)

type writerFlags struct {
	mode     string
	account  string
	intents  string
	comments bool
	encoder  string
}

func (f *writerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "tracking library (ga.js, analytics.js, gtag.js, amp or 1/2/4/5)")
	cmd.Flags().StringVarP(&f.account, "account", "a", "", "account id, overriding the configured one")
	cmd.Flags().StringVarP(&f.intents, "intents", "i", "", "YAML file of page tracking intents")
	cmd.Flags().BoolVar(&f.comments, "comments", true, "wrap snippets in HTML comments")
	cmd.Flags().StringVar(&f.encoder, "json-encoder", "", "JSON encoder for payloads (ascii, compact; default ascii)")
}

// buildWriter creates a writer from the configured settings, the command
// flags and the intents file, in that order.
func (f *writerFlags) buildWriter(cmd *cobra.Command, app *AppConfig, log logger.Logger) (*analytics.Writer, error) {
	settings := app.Config.Analytics
	if f.account != "" {
		settings.AccountID = f.account
	}
	if f.mode != "" {
		mode, err := analytics.ParseMode(f.mode)
		if err != nil {
			return nil, err
		}
		settings.Mode = mode
	}
	if f.encoder != "" {
		settings.JSONEncoder = f.encoder
	}
	if cmd.Flags().Changed("comments") {
		comments := f.comments
		settings.UseComments = &comments
	}

	w, err := settings.NewWriter(analytics.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if f.intents != "" {
		doc, err := intents.Load(f.intents)
		if err != nil {
			return nil, err
		}
		if err := doc.Apply(w); err != nil {
			return nil, fmt.Errorf("%s: %w", f.intents, err)
		}
	}
	return w, nil
}

type renderResult struct {
	Mode    string `json:"mode" yaml:"mode"`
	Head    string `json:"head,omitempty" yaml:"head,omitempty"`
	Snippet string `json:"snippet" yaml:"snippet"`
	// UserIDScript is the deferred script applying a user id to trackers
	// that were already rendered
	UserIDScript string `json:"user_id_script,omitempty" yaml:"user_id_script,omitempty"`
}

func newRenderCmd() *cobra.Command {
	var (
		wf        writerFlags
		head      bool
		setUserID string
		linkAttrs string
	)
	cmd := &cobra.Command{
		Use:   "render [intents.yaml]",
		Short: "Render the tracking snippet for a page",
		Long: `Render prints the analytics snippet for the configured account and mode.
Page intents (events, transactions, custom dimensions and metrics, cross-domain
linking, user id) are read from an optional YAML file.

Example usage:
  gawriter render --account UA-123123-1 --mode gtag.js
  gawriter render page.yaml --mode amp --head
  gawriter render page.yaml -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if wf.intents != "" {
					return fmt.Errorf("intents given both as argument and --intents")
				}
				wf.intents = args[0]
			}
			app := appConfig(cmd)
			w, err := wf.buildWriter(cmd, app, app.Logger)
			if err != nil {
				return err
			}
			app.Debugf("Rendering %s snippet for %s\n", w.Mode(), w.AccountID())

			if linkAttrs != "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), w.RenderCrossdomainLinkAttrs(linkAttrs))
				return err
			}

			res := renderResult{Mode: w.Mode().String()}
			if res.Snippet, err = w.Render(); err != nil {
				return err
			}
			if head {
				if res.Head, err = w.RenderHead(); err != nil {
					return err
				}
			}
			if setUserID != "" {
				res.UserIDScript = w.SetRenderUserID(setUserID)
			}
			return writeOutput(cmd.OutOrStdout(), app.Config.Output.Format, res, func() string {
				var parts []string
				for _, p := range []string{res.Head, res.Snippet, res.UserIDScript} {
					if p != "" {
						parts = append(parts, strings.TrimRight(p, "\n"))
					}
				}
				return strings.Join(parts, "\n") + "\n"
			})
		},
	}
	wf.register(cmd)
	cmd.Flags().BoolVar(&head, "head", false, "also print the <head> elements (AMP)")
	cmd.Flags().StringVar(&setUserID, "set-user-id", "", "also print the deferred script that applies this user id")
	cmd.Flags().StringVar(&linkAttrs, "link-attrs", "", "print only the cross-domain attributes for this link (ga.js)")
	return cmd
}
