package detector

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/getlawrence/gawriter/internal/config"
	"github.com/getlawrence/gawriter/internal/domain"
	"github.com/getlawrence/gawriter/pkg/analytics"
)

// IssueDetector defines how to detect specific issues on an audited page
type IssueDetector interface {
	// ID returns a unique identifier for this detector
	ID() string
	// Name returns a human-readable name
	Name() string
	// Description returns what this detector looks for
	Description() string
	// Category returns the issue category
	Category() domain.Category
	// Languages returns which page languages this detector applies to (empty = all)
	Languages() []string
	// Detect finds issues on the given page
	Detect(ctx context.Context, page *PageAudit) ([]domain.Issue, error)
}

// Analysis contains the audit of every discovered page
type Analysis struct {
	RootPath string       `json:"root_path" yaml:"root_path"`
	Pages    []*PageAudit `json:"pages" yaml:"pages"`
}

// ModeCounts returns how many pages carry each tracking library.
func (a *Analysis) ModeCounts() map[string]int {
	counts := make(map[string]int)
	for _, p := range a.Pages {
		for _, m := range p.Modes() {
			counts[m.String()]++
		}
	}
	return counts
}

// Issues returns every issue, most severe first.
func (a *Analysis) Issues() []domain.Issue {
	var all []domain.Issue
	for _, p := range a.Pages {
		all = append(all, p.Issues...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Severity.Rank() < all[j].Severity.Rank()
	})
	return all
}

// Untagged returns the pages without any analytics tag.
func (a *Analysis) Untagged() []*PageAudit {
	var out []*PageAudit
	for _, p := range a.Pages {
		if !p.Tagged() {
			out = append(out, p)
		}
	}
	return out
}

// Manager coordinates page discovery, auditing and issue detection
type Manager struct {
	scan      config.ScanConfig
	detectors []IssueDetector
}

// NewManager creates a new detection manager
func NewManager(scan config.ScanConfig) *Manager {
	return &Manager{scan: scan}
}

// RegisterDetector adds an issue detector
func (m *Manager) RegisterDetector(detector IssueDetector) {
	m.detectors = append(m.detectors, detector)
}

// AnalyzePages discovers pages under rootPath, audits each one and runs the
// registered issue detectors. Pages are audited concurrently; the result
// keeps discovery order.
func (m *Manager) AnalyzePages(ctx context.Context, rootPath string) (*Analysis, error) {
	pages, err := DiscoverPages(rootPath, m.scan)
	if err != nil {
		return nil, fmt.Errorf("failed to discover pages: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audits := make([]*PageAudit, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			audit, err := m.analyzePage(gctx, page)
			if err != nil {
				return err
			}
			audits[i] = audit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Analysis{RootPath: rootPath, Pages: audits}, nil
}

func (m *Manager) analyzePage(ctx context.Context, page Page) (*PageAudit, error) {
	audit, err := AuditPage(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to audit %s: %w", page.RelPath, err)
	}
	for _, d := range m.detectors {
		if !detectorApplies(d, audit.Language) {
			continue
		}
		issues, err := d.Detect(ctx, audit)
		if err != nil {
			return nil, fmt.Errorf("detector %s: %w", d.ID(), err)
		}
		audit.Issues = append(audit.Issues, issues...)
	}
	return audit, nil
}

// detectorApplies checks if a detector should run for a page language
func detectorApplies(detector IssueDetector, language string) bool {
	langs := detector.Languages()
	if len(langs) == 0 {
		return true
	}
	for _, l := range langs {
		if l == language {
			return true
		}
	}
	return false
}

// modesOf maps tag mode names back to analytics modes, in numeric order.
func modesOf(tags []domain.Tag) []analytics.Mode {
	seen := make(map[analytics.Mode]bool)
	for _, t := range tags {
		if m, err := analytics.ParseMode(t.Mode); err == nil {
			seen[m] = true
		}
	}
	var out []analytics.Mode
	for _, m := range analytics.Modes() {
		if seen[m] {
			out = append(out, m)
		}
	}
	return out
}
