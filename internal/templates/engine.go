// Package templates renders the pages of the preview server.
package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	"github.com/getlawrence/gawriter/pkg/analytics"
	"github.com/getlawrence/gawriter/pkg/analytics/httpwriter"
)

//go:embed *.tmpl
var templateFS embed.FS

// PageLink is one discovered page in the index
type PageLink struct {
	Path   string   `json:"path"`
	Tagged bool     `json:"tagged"`
	Modes  []string `json:"modes,omitempty"`
}

// IndexData feeds index.html.tmpl
type IndexData struct {
	Root  string     `json:"root"`
	Pages []PageLink `json:"pages"`
}

// PreviewData feeds preview.html.tmpl. Modes lists the modes whose snippet
// source is shown.
type PreviewData struct {
	Title string   `json:"title"`
	Modes []string `json:"modes"`
	// Link is decorated with the cross-domain link attributes
	Link string `json:"link,omitempty"`
}

// TemplateEngine handles template loading and execution
type TemplateEngine struct {
	templates map[string]*template.Template
}

// NewTemplateEngine parses every embedded template
func NewTemplateEngine() (*TemplateEngine, error) {
	engine := &TemplateEngine{
		templates: make(map[string]*template.Template),
	}
	if err := engine.loadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return engine, nil
}

// funcs binds the analytics helpers to the writer carried by ctx.
func funcs(ctx context.Context) template.FuncMap {
	fm := httpwriter.FuncMap(ctx)
	fm["join"] = strings.Join
	fm["analyticsSource"] = func(mode string) (string, error) {
		w, ok := httpwriter.FromContext(ctx)
		if !ok {
			return "", httpwriter.ErrNoWriter
		}
		m, err := analytics.ParseMode(mode)
		if err != nil {
			return "", err
		}
		return w.RenderMode(m)
	}
	return fm
}

// Execute runs the named template with the analytics writer of ctx.
func (e *TemplateEngine) Execute(ctx context.Context, out io.Writer, name string, data any) error {
	tmpl, exists := e.templates[name]
	if !exists {
		return fmt.Errorf("template %s not found", name)
	}
	bound, err := tmpl.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone template %s: %w", name, err)
	}
	if err := bound.Funcs(funcs(ctx)).Execute(out, data); err != nil {
		return fmt.Errorf("template %s execution failed: %w", name, err)
	}
	return nil
}

func (e *TemplateEngine) loadTemplates() error {
	entries, err := templateFS.ReadDir(".")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := templateFS.ReadFile(entry.Name())
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(entry.Name(), ".tmpl")
		tmpl, err := template.New(key).Funcs(funcs(context.Background())).Parse(string(content))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		e.templates[key] = tmpl
	}
	return nil
}

// GetAvailableTemplates returns all available template keys
func (e *TemplateEngine) GetAvailableTemplates() []string {
	keys := make([]string, 0, len(e.templates))
	for key := range e.templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
