package issues

import (
	"context"
	"fmt"
	"strings"

	"github.com/getlawrence/gawriter/internal/detector"
	"github.com/getlawrence/gawriter/internal/domain"
	"github.com/getlawrence/gawriter/pkg/analytics"
)

const (
	refGtag      = "https://developers.google.com/analytics/devguides/collection/gtagjs"
	refMigrate   = "https://developers.google.com/analytics/devguides/collection/upgrade/reference/gajs-analyticsjs"
	refAMP       = "https://developers.google.com/analytics/devguides/collection/amp-analytics"
	refPlacement = "https://support.google.com/analytics/answer/1008080"
)

// Defaults returns the standard detectors. expectedAccount enables the
// account mismatch check when non-empty.
func Defaults(expectedAccount string) []detector.IssueDetector {
	dets := []detector.IssueDetector{
		NewMissingAnalyticsDetector(),
		NewNoInsertionPointDetector(),
		NewMixedModesDetector(),
		NewLegacyGAJSDetector(),
		NewAMPScriptDetector(),
		NewPlacementDetector(),
	}
	if expectedAccount != "" {
		dets = append(dets, NewAccountMismatchDetector(expectedAccount))
	}
	return dets
}

// MissingAnalyticsDetector reports pages without any analytics tag
type MissingAnalyticsDetector struct{}

func NewMissingAnalyticsDetector() *MissingAnalyticsDetector { return &MissingAnalyticsDetector{} }

func (m *MissingAnalyticsDetector) ID() string   { return "missing_analytics" }
func (m *MissingAnalyticsDetector) Name() string { return "Missing Analytics" }
func (m *MissingAnalyticsDetector) Description() string {
	return "Detects pages that carry no Google Analytics tag"
}
func (m *MissingAnalyticsDetector) Category() domain.Category {
	return domain.CategoryMissingAnalytics
}
func (m *MissingAnalyticsDetector) Languages() []string { return nil }

func (m *MissingAnalyticsDetector) Detect(ctx context.Context, page *detector.PageAudit) ([]domain.Issue, error) {
	if page.Tagged() {
		return nil, nil
	}
	return []domain.Issue{{
		ID:          m.ID(),
		Title:       "No analytics tag",
		Description: "No ga.js, analytics.js, gtag.js or amp-analytics tag was found on this page",
		Severity:    domain.SeverityInfo,
		Category:    m.Category(),
		File:        page.RelPath,
		Suggestion:  "Run `gawriter inject` to add the configured snippet",
	}}, nil
}

// NoInsertionPointDetector reports untagged pages that have neither a
// </head> nor a <body> tag to inject into
type NoInsertionPointDetector struct{}

func NewNoInsertionPointDetector() *NoInsertionPointDetector { return &NoInsertionPointDetector{} }

func (d *NoInsertionPointDetector) ID() string   { return "no_insertion_point" }
func (d *NoInsertionPointDetector) Name() string { return "No Insertion Point" }
func (d *NoInsertionPointDetector) Description() string {
	return "Detects untagged pages without a </head> or <body> tag"
}
func (d *NoInsertionPointDetector) Category() domain.Category { return domain.CategoryPlacement }
func (d *NoInsertionPointDetector) Languages() []string       { return nil }

func (d *NoInsertionPointDetector) Detect(ctx context.Context, page *detector.PageAudit) ([]domain.Issue, error) {
	if page.Tagged() || page.HeadEnd >= 0 || page.BodyStart >= 0 {
		return nil, nil
	}
	return []domain.Issue{{
		ID:          d.ID(),
		Title:       "Page cannot be injected",
		Description: "The page has neither a closing </head> tag nor a <body> tag, so there is nowhere to put the snippet",
		Severity:    domain.SeverityError,
		Category:    d.Category(),
		File:        page.RelPath,
		Suggestion:  "Render the snippet with `gawriter render` and add it to the page layout by hand",
	}}, nil
}

// MixedModesDetector reports pages loading more than one tracking library
type MixedModesDetector struct{}

func NewMixedModesDetector() *MixedModesDetector { return &MixedModesDetector{} }

func (d *MixedModesDetector) ID() string   { return "mixed_modes" }
func (d *MixedModesDetector) Name() string { return "Mixed Tracking Libraries" }
func (d *MixedModesDetector) Description() string {
	return "Detects pages that load more than one Google tracking library"
}
func (d *MixedModesDetector) Category() domain.Category { return domain.CategoryConfiguration }
func (d *MixedModesDetector) Languages() []string       { return nil }

func (d *MixedModesDetector) Detect(ctx context.Context, page *detector.PageAudit) ([]domain.Issue, error) {
	modes := page.Modes()
	if len(modes) < 2 {
		return nil, nil
	}
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return []domain.Issue{{
		ID:          d.ID(),
		Title:       "Multiple tracking libraries",
		Description: fmt.Sprintf("The page loads %s; page views may be counted more than once", strings.Join(names, ", ")),
		Severity:    domain.SeverityWarning,
		Category:    d.Category(),
		File:        page.RelPath,
		Suggestion:  "Keep a single mode and list the others under modes_support_alternate",
		References:  []string{refGtag},
	}}, nil
}

// LegacyGAJSDetector reports pages still on ga.js
type LegacyGAJSDetector struct{}

func NewLegacyGAJSDetector() *LegacyGAJSDetector { return &LegacyGAJSDetector{} }

func (d *LegacyGAJSDetector) ID() string   { return "legacy_gajs" }
func (d *LegacyGAJSDetector) Name() string { return "Legacy ga.js" }
func (d *LegacyGAJSDetector) Description() string {
	return "Detects pages using the deprecated ga.js library"
}
func (d *LegacyGAJSDetector) Category() domain.Category { return domain.CategoryDeprecated }
func (d *LegacyGAJSDetector) Languages() []string       { return nil }

func (d *LegacyGAJSDetector) Detect(ctx context.Context, page *detector.PageAudit) ([]domain.Issue, error) {
	for _, tag := range page.Tags {
		if tag.Mode != analytics.ModeGAJS.String() {
			continue
		}
		return []domain.Issue{{
			ID:          d.ID(),
			Title:       "ga.js is deprecated",
			Description: "The page uses the legacy _gaq command queue",
			Severity:    domain.SeverityWarning,
			Category:    d.Category(),
			File:        page.RelPath,
			Line:        tag.Line,
			Suggestion:  "Switch the mode to gtag.js or analytics.js",
			References:  []string{refMigrate},
		}}, nil
	}
	return nil, nil
}

// AMPScriptDetector reports script based tags on AMP documents
type AMPScriptDetector struct{}

func NewAMPScriptDetector() *AMPScriptDetector { return &AMPScriptDetector{} }

func (d *AMPScriptDetector) ID() string   { return "amp_script" }
func (d *AMPScriptDetector) Name() string { return "Script Tag On AMP Page" }
func (d *AMPScriptDetector) Description() string {
	return "Detects JavaScript analytics tags on AMP pages"
}
func (d *AMPScriptDetector) Category() domain.Category { return domain.CategoryConfiguration }
func (d *AMPScriptDetector) Languages() []string       { return nil }

func (d *AMPScriptDetector) Detect(ctx context.Context, page *detector.PageAudit) ([]domain.Issue, error) {
	if !page.IsAMP {
		return nil, nil
	}
	var out []domain.Issue
	for _, tag := range page.Tags {
		if tag.Mode == analytics.ModeAMP.String() {
			continue
		}
		out = append(out, domain.Issue{
			ID:          d.ID(),
			Title:       "JavaScript tag on AMP page",
			Description: fmt.Sprintf("AMP documents cannot run the %s snippet", tag.Mode),
			Severity:    domain.SeverityError,
			Category:    d.Category(),
			File:        page.RelPath,
			Line:        tag.Line,
			Suggestion:  "Render the page in amp mode instead",
			References:  []string{refAMP},
		})
	}
	return out, nil
}

// PlacementDetector reports script tags placed outside <head>
type PlacementDetector struct{}

func NewPlacementDetector() *PlacementDetector { return &PlacementDetector{} }

func (d *PlacementDetector) ID() string   { return "tag_placement" }
func (d *PlacementDetector) Name() string { return "Tag Placement" }
func (d *PlacementDetector) Description() string {
	return "Detects analytics scripts placed outside <head>"
}
func (d *PlacementDetector) Category() domain.Category { return domain.CategoryBestPractice }
func (d *PlacementDetector) Languages() []string       { return nil }

func (d *PlacementDetector) Detect(ctx context.Context, page *detector.PageAudit) ([]domain.Issue, error) {
	if !page.HasHead {
		return nil, nil
	}
	for _, tag := range page.Tags {
		if tag.InHead || tag.Mode == analytics.ModeAMP.String() {
			continue
		}
		return []domain.Issue{{
			ID:          d.ID(),
			Title:       "Analytics script outside <head>",
			Description: fmt.Sprintf("The %s tag on line %d is not inside <head>", tag.Mode, tag.Line),
			Severity:    domain.SeverityInfo,
			Category:    d.Category(),
			File:        page.RelPath,
			Line:        tag.Line,
			Suggestion:  "Move the snippet just before </head>",
			References:  []string{refPlacement},
		}}, nil
	}
	return nil, nil
}

// AccountMismatchDetector reports tagged pages that do not reference the
// configured account
type AccountMismatchDetector struct {
	expected string
}

func NewAccountMismatchDetector(expected string) *AccountMismatchDetector {
	return &AccountMismatchDetector{expected: expected}
}

func (d *AccountMismatchDetector) ID() string   { return "account_mismatch" }
func (d *AccountMismatchDetector) Name() string { return "Account Mismatch" }
func (d *AccountMismatchDetector) Description() string {
	return "Detects tagged pages that do not reference the configured account id"
}
func (d *AccountMismatchDetector) Category() domain.Category { return domain.CategoryConfiguration }
func (d *AccountMismatchDetector) Languages() []string       { return nil }

func (d *AccountMismatchDetector) Detect(ctx context.Context, page *detector.PageAudit) ([]domain.Issue, error) {
	if !page.Tagged() || len(page.AccountIDs) == 0 {
		return nil, nil
	}
	for _, id := range page.AccountIDs {
		if id == d.expected {
			return nil, nil
		}
	}
	return []domain.Issue{{
		ID:          d.ID(),
		Title:       "Unexpected account id",
		Description: fmt.Sprintf("The page reports to %s, not %s", strings.Join(page.AccountIDs, ", "), d.expected),
		Severity:    domain.SeverityWarning,
		Category:    d.Category(),
		File:        page.RelPath,
	}}, nil
}
