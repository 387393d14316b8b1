package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/getlawrence/gawriter/internal/detector"
	"github.com/getlawrence/gawriter/internal/domain"
)

// Styles used by the audit report. Plain copies are used when color is off.
type styles struct {
	title, heading, muted lipgloss.Style
	severity              map[domain.Severity]lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{title: plain, heading: plain, muted: plain, severity: map[domain.Severity]lipgloss.Style{}}
	}
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		heading: lipgloss.NewStyle().Bold(true).Underline(true),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		severity: map[domain.Severity]lipgloss.Style{
			domain.SeverityError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
			domain.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			domain.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		},
	}
}

func (s styles) sev(sev domain.Severity) string {
	if st, ok := s.severity[sev]; ok {
		return st.Render(string(sev))
	}
	return string(sev)
}

// RenderAnalysis returns the formatted audit report for an analysis.
func RenderAnalysis(analysis *detector.Analysis, detailed, color bool) string {
	if analysis == nil {
		return ""
	}
	st := newStyles(color)

	var b strings.Builder
	b.WriteString(st.title.Render("📊 Google Analytics Page Audit"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 30))
	b.WriteString("\n\n")

	counts := analysis.ModeCounts()
	modes := make([]string, 0, len(counts))
	for m := range counts {
		modes = append(modes, fmt.Sprintf("%s (%d)", m, counts[m]))
	}
	sort.Strings(modes)
	if len(modes) == 0 {
		modes = append(modes, "none")
	}

	issues := analysis.Issues()
	summary := []string{
		fmt.Sprintf("📂 Root: %s", analysis.RootPath),
		fmt.Sprintf("📄 Pages: %d", len(analysis.Pages)),
		fmt.Sprintf("🏷️  Tagged: %d", len(analysis.Pages)-len(analysis.Untagged())),
		fmt.Sprintf("📚 Libraries: %s", strings.Join(modes, ", ")),
		fmt.Sprintf("⚠️  Issues Found: %d", len(issues)),
	}
	b.WriteString(strings.Join(summary, "\n"))
	b.WriteString("\n\n")

	if len(analysis.Pages) > 0 {
		b.WriteString(st.heading.Render("📄 Pages"))
		b.WriteString("\n")
		for _, p := range analysis.Pages {
			b.WriteString(renderPage(p, detailed, st))
		}
		b.WriteString("\n")
	}

	if len(issues) == 0 {
		b.WriteString("✅ No issues found! Every page looks good.\n")
		return b.String()
	}

	b.WriteString(st.heading.Render("⚠️  Issues and Recommendations"))
	b.WriteString("\n")
	for _, issue := range issues {
		loc := issue.File
		if issue.Line > 0 {
			loc = fmt.Sprintf("%s:%d", issue.File, issue.Line)
		}
		fmt.Fprintf(&b, "  • [%s] %s %s\n", st.sev(issue.Severity), issue.Title, st.muted.Render("("+loc+")"))
		if issue.Description != "" {
			fmt.Fprintf(&b, "    📖 %s\n", issue.Description)
		}
		if issue.Suggestion != "" {
			fmt.Fprintf(&b, "    💡 %s\n", issue.Suggestion)
		}
		if detailed && len(issue.References) > 0 {
			fmt.Fprintf(&b, "    📚 References: %s\n", strings.Join(issue.References, ", "))
		}
	}
	fmt.Fprintf(&b, "\nTotal Issues Found: %d\n", len(issues))
	return b.String()
}

func renderPage(p *detector.PageAudit, detailed bool, st styles) string {
	var b strings.Builder
	status := "○"
	if p.Tagged() {
		status = "●"
	}
	var modes []string
	for _, m := range p.Modes() {
		modes = append(modes, m.String())
	}
	label := "untagged"
	if len(modes) > 0 {
		label = strings.Join(modes, ", ")
	}
	if p.IsAMP {
		label += ", AMP page"
	}
	fmt.Fprintf(&b, "  %s %s %s\n", status, p.RelPath, st.muted.Render("("+label+")"))
	if detailed {
		if len(p.AccountIDs) > 0 {
			fmt.Fprintf(&b, "    🔑 Accounts: %s\n", strings.Join(p.AccountIDs, ", "))
		}
		for _, tag := range p.Tags {
			where := "body"
			if tag.InHead {
				where = "head"
			}
			fmt.Fprintf(&b, "    🏷️  %s %s tag, line %d (%s)\n", tag.Mode, tag.Source, tag.Line, where)
		}
	}
	return b.String()
}
