// Package injector writes rendered analytics snippets into HTML pages.
package injector

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getlawrence/gawriter/internal/detector"
	"github.com/getlawrence/gawriter/internal/logger"
)

// Placement names where a snippet goes
type Placement string

const (
	BeforeHeadEnd  Placement = "before </head>"
	AfterBodyStart Placement = "after <body>"
)

// Modification is one insertion into a page
type Modification struct {
	Offset    int       `json:"offset" yaml:"offset"`
	Line      int       `json:"line" yaml:"line"`
	Placement Placement `json:"placement" yaml:"placement"`
	Content   string    `json:"content" yaml:"content"`
}

// Result describes what Inject did to a page
type Result struct {
	Path          string         `json:"path" yaml:"path"`
	Modifications []Modification `json:"modifications,omitempty" yaml:"modifications,omitempty"`
	// Skipped holds the reason the page was left alone
	Skipped string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Backup  string `json:"backup,omitempty" yaml:"backup,omitempty"`
	DryRun  bool   `json:"dry_run" yaml:"dry_run"`
}

// Changed reports whether the page was (or in a dry run, would be) modified.
func (r *Result) Changed() bool {
	return r.Skipped == "" && len(r.Modifications) > 0
}

// Options control an Injector
type Options struct {
	// DryRun computes modifications without writing
	DryRun bool
	// Backup keeps the original page as <path>.backup
	Backup bool
	// Force injects into pages that already carry analytics
	Force bool
}

// Injector inserts snippets at the insertion points found by the page audit
type Injector struct {
	opts Options
	log  logger.Logger
}

func New(opts Options, log logger.Logger) *Injector {
	if log == nil {
		log = logger.Discard
	}
	return &Injector{opts: opts, log: log}
}

// Inject injects snippet (and the AMP head snippet when non-empty) into the
// page at path.
func Inject(ctx context.Context, path, snippet, head string, dryRun bool) (*Result, error) {
	return New(Options{DryRun: dryRun}, nil).Inject(ctx, detector.Page{Path: path, RelPath: path}, snippet, head)
}

// Inject places snippet before </head>, falling back to just after <body>.
// When head is set it goes before </head> and the snippet after <body>, the
// layout AMP requires. Pages already carrying analytics are skipped unless
// Force is set.
func (i *Injector) Inject(ctx context.Context, page detector.Page, snippet, head string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := &Result{Path: page.Path, DryRun: i.opts.DryRun}

	content, err := os.ReadFile(page.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	mods, reason, err := i.planPage(ctx, page, content, snippet, head)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		result.Skipped = reason
		i.log.Logf("Skipping %s: %s\n", page.RelPath, reason)
		return result, nil
	}
	result.Modifications = mods

	if i.opts.DryRun {
		i.log.Logf("Would modify page: %s\n", page.RelPath)
		for _, mod := range mods {
			i.log.Logf("  Line %d (%s)\n", mod.Line, mod.Placement)
		}
		return result, nil
	}

	if i.opts.Backup {
		result.Backup = page.Path + ".backup"
		if err := os.WriteFile(result.Backup, content, 0644); err != nil {
			return nil, fmt.Errorf("failed to create backup: %w", err)
		}
	}
	if err := writeAtomic(page.Path, apply(content, mods)); err != nil {
		return nil, fmt.Errorf("failed to write modified page: %w", err)
	}
	i.log.Logf("Successfully modified: %s\n", page.RelPath)
	return result, nil
}

// Preview returns content with the snippets injected, leaving the page on
// disk alone. Pages that cannot or need not be injected come back unchanged
// with the reason in the result.
func (i *Injector) Preview(ctx context.Context, page detector.Page, content []byte, snippet, head string) ([]byte, *Result, error) {
	result := &Result{Path: page.Path, DryRun: true}
	mods, reason, err := i.planPage(ctx, page, content, snippet, head)
	if err != nil {
		return nil, nil, err
	}
	if reason != "" {
		result.Skipped = reason
		return content, result, nil
	}
	result.Modifications = mods
	return apply(content, mods), result, nil
}

func (i *Injector) planPage(ctx context.Context, page detector.Page, content []byte, snippet, head string) ([]Modification, string, error) {
	audit, err := detector.AuditContent(ctx, page, content)
	if err != nil {
		return nil, "", fmt.Errorf("failed to analyze page %s: %w", page.Path, err)
	}
	if audit.Tagged() && !i.opts.Force {
		names := make([]string, 0, len(audit.Modes()))
		for _, m := range audit.Modes() {
			names = append(names, m.String())
		}
		return nil, "already tagged (" + strings.Join(names, ", ") + ")", nil
	}
	mods, reason := plan(audit, content, snippet, head)
	return mods, reason, nil
}

// plan returns the modifications for a page, or the reason it cannot be
// injected.
func plan(audit *detector.PageAudit, content []byte, snippet, head string) ([]Modification, string) {
	snippet = strings.TrimRight(snippet, "\n")
	head = strings.TrimRight(head, "\n")
	if snippet == "" && head == "" {
		return nil, "nothing to inject"
	}

	var mods []Modification
	beforeHead := func(text string) {
		mods = append(mods, Modification{Offset: audit.HeadEnd, Placement: BeforeHeadEnd, Content: text + "\n"})
	}
	afterBody := func(text string) {
		mods = append(mods, Modification{Offset: audit.BodyStart, Placement: AfterBodyStart, Content: "\n" + text})
	}

	switch {
	case head != "":
		if audit.HeadEnd < 0 {
			return nil, "no </head> tag for the head snippet"
		}
		beforeHead(head)
		if snippet != "" {
			if audit.BodyStart < 0 {
				return nil, "no <body> tag"
			}
			afterBody(snippet)
		}
	case audit.HeadEnd >= 0:
		beforeHead(snippet)
	case audit.BodyStart >= 0:
		afterBody(snippet)
	default:
		return nil, "no </head> or <body> tag"
	}

	for j := range mods {
		mods[j].Line = bytes.Count(content[:mods[j].Offset], []byte("\n")) + 1
	}
	return mods, ""
}

// apply inserts modifications from the end of the page backwards so earlier
// offsets stay valid.
func apply(content []byte, mods []Modification) []byte {
	sorted := append([]Modification(nil), mods...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Offset > sorted[b].Offset })

	out := append([]byte(nil), content...)
	for _, mod := range sorted {
		var b bytes.Buffer
		b.Grow(len(out) + len(mod.Content))
		b.Write(out[:mod.Offset])
		b.WriteString(mod.Content)
		b.Write(out[mod.Offset:])
		out = b.Bytes()
	}
	return out
}

// writeAtomic replaces path through a temporary file in the same directory,
// keeping the original permissions.
func writeAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gawriter-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
