package detector

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"

	"github.com/getlawrence/gawriter/internal/domain"
	"github.com/getlawrence/gawriter/pkg/analytics"
)

// PageAudit describes the analytics state and insertion points of a page
type PageAudit struct {
	Page `json:",inline" yaml:",inline"`

	// IsAMP is set for <html amp> and <html ⚡> documents
	IsAMP   bool `json:"is_amp" yaml:"is_amp"`
	HasHead bool `json:"has_head" yaml:"has_head"`
	HasBody bool `json:"has_body" yaml:"has_body"`

	// HeadEnd is the byte offset of the </head> tag, or -1
	HeadEnd int `json:"-" yaml:"-"`
	// BodyStart is the byte offset just past the <body> start tag, or -1
	BodyStart int `json:"-" yaml:"-"`

	Tags       []domain.Tag   `json:"tags,omitempty" yaml:"tags,omitempty"`
	AccountIDs []string       `json:"account_ids,omitempty" yaml:"account_ids,omitempty"`
	Issues     []domain.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// Modes returns the tracking libraries found on the page.
func (p *PageAudit) Modes() []analytics.Mode {
	return modesOf(p.Tags)
}

// Tagged reports whether the page already carries any analytics tag.
func (p *PageAudit) Tagged() bool {
	return len(p.Tags) > 0
}

var accountIDPattern = regexp.MustCompile(`\b(UA-\d{4,10}-\d{1,4}|G-[A-Z0-9]{6,12})\b`)

// loader URLs and inline markers per tracking library
var (
	srcMarkers = []struct {
		marker string
		mode   analytics.Mode
	}{
		{"google-analytics.com/ga.js", analytics.ModeGAJS},
		{"google-analytics.com/analytics.js", analytics.ModeAnalytics},
		{"googletagmanager.com/gtag/js", analytics.ModeGtag},
	}
	inlineMarkers = []struct {
		marker string
		mode   analytics.Mode
	}{
		{"_gaq", analytics.ModeGAJS},
		{"google-analytics.com/analytics.js", analytics.ModeAnalytics},
		{"ga('create'", analytics.ModeAnalytics},
		{`ga("create"`, analytics.ModeAnalytics},
		{"gtag(", analytics.ModeGtag},
	}
)

// AuditPage reads and audits a discovered page
func AuditPage(ctx context.Context, page Page) (*PageAudit, error) {
	content, err := os.ReadFile(page.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return AuditContent(ctx, page, content)
}

// AuditContent parses content with the tree-sitter HTML grammar and records
// analytics tags, account ids and the <head>/<body> insertion points.
func AuditContent(ctx context.Context, page Page, content []byte) (*PageAudit, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(html.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	defer tree.Close()

	a := &auditor{
		content: content,
		audit:   &PageAudit{Page: page, HeadEnd: -1, BodyStart: -1},
		ids:     make(map[string]bool),
	}
	a.walk(tree.RootNode())

	for id := range a.ids {
		a.audit.AccountIDs = append(a.audit.AccountIDs, id)
	}
	sort.Strings(a.audit.AccountIDs)
	return a.audit, nil
}

type auditor struct {
	content []byte
	audit   *PageAudit
	ids     map[string]bool

	// byte range of the head element once seen
	headStart, headEnd uint32
}

func (a *auditor) walk(n *sitter.Node) {
	switch n.Type() {
	case "element":
		a.element(n)
	case "script_element":
		a.script(n)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		a.walk(n.NamedChild(i))
	}
}

func (a *auditor) element(n *sitter.Node) {
	start := childOfType(n, "start_tag", "self_closing_tag")
	if start == nil {
		return
	}
	name := strings.ToLower(tagName(start, a.content))
	switch name {
	case "html":
		attrs := attributes(start, a.content)
		_, amp := attrs["amp"]
		_, bolt := attrs["⚡"]
		a.audit.IsAMP = amp || bolt
	case "head":
		if a.audit.HasHead {
			return
		}
		a.audit.HasHead = true
		a.headStart, a.headEnd = n.StartByte(), n.EndByte()
		if end := childOfType(n, "end_tag"); end != nil {
			a.audit.HeadEnd = int(end.StartByte())
		}
	case "body":
		if a.audit.HasBody {
			return
		}
		a.audit.HasBody = true
		a.audit.BodyStart = int(start.EndByte())
	case "amp-analytics":
		attrs := attributes(start, a.content)
		if strings.EqualFold(attrs["type"], "googleanalytics") || strings.EqualFold(attrs["type"], "gtag") {
			a.addTag(n, analytics.ModeAMP, "element")
			a.collectIDs(n.Content(a.content))
		}
	}
}

func (a *auditor) script(n *sitter.Node) {
	var src string
	if start := childOfType(n, "start_tag"); start != nil {
		src = attributes(start, a.content)["src"]
	}
	if src != "" {
		for _, m := range srcMarkers {
			if strings.Contains(src, m.marker) {
				a.addTag(n, m.mode, "src")
				a.collectIDs(src)
				break
			}
		}
	}

	raw := childOfType(n, "raw_text")
	if raw == nil {
		return
	}
	text := raw.Content(a.content)
	found := make(map[analytics.Mode]bool)
	for _, m := range inlineMarkers {
		if !found[m.mode] && strings.Contains(text, m.marker) {
			found[m.mode] = true
			a.addTag(n, m.mode, "inline")
		}
	}
	if len(found) > 0 {
		a.collectIDs(text)
	}
}

func (a *auditor) addTag(n *sitter.Node, mode analytics.Mode, source string) {
	a.audit.Tags = append(a.audit.Tags, domain.Tag{
		Mode:   mode.String(),
		Source: source,
		Line:   int(n.StartPoint().Row) + 1,
		InHead: a.audit.HasHead && n.StartByte() >= a.headStart && n.EndByte() <= a.headEnd,
	})
}

func (a *auditor) collectIDs(text string) {
	for _, id := range accountIDPattern.FindAllString(text, -1) {
		a.ids[id] = true
	}
}

func childOfType(n *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

func tagName(start *sitter.Node, content []byte) string {
	if n := childOfType(start, "tag_name"); n != nil {
		return n.Content(content)
	}
	return ""
}

// attributes returns the attributes of a start tag keyed by lower-cased
// name. Valueless attributes map to "".
func attributes(start *sitter.Node, content []byte) map[string]string {
	attrs := make(map[string]string)
	for i := 0; i < int(start.NamedChildCount()); i++ {
		attr := start.NamedChild(i)
		if attr.Type() != "attribute" {
			continue
		}
		name := childOfType(attr, "attribute_name")
		if name == nil {
			continue
		}
		var value string
		if v := childOfType(attr, "quoted_attribute_value"); v != nil {
			value = strings.Trim(v.Content(content), `"'`)
		} else if v := childOfType(attr, "attribute_value"); v != nil {
			value = v.Content(content)
		}
		attrs[strings.ToLower(name.Content(content))] = value
	}
	return attrs
}
