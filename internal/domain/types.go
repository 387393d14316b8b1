package domain

// Issue represents a detected problem or recommendation on a page
type Issue struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Category    Category `json:"category" yaml:"category"`
	File        string   `json:"file,omitempty" yaml:"file,omitempty"`
	Line        int      `json:"line,omitempty" yaml:"line,omitempty"`
	Suggestion  string   `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	References  []string `json:"references,omitempty" yaml:"references,omitempty"`
}

// Severity levels for issues
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank orders severities from most to least serious.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Category represents the type of issue
type Category string

const (
	CategoryMissingAnalytics Category = "missing_analytics"
	CategoryConfiguration    Category = "configuration"
	CategoryPlacement        Category = "placement"
	CategoryBestPractice     Category = "best_practice"
	CategoryDeprecated       Category = "deprecated"
)

// Tag is an analytics tag found on a page
type Tag struct {
	// Mode is the tracking library the tag belongs to
	Mode string `json:"mode" yaml:"mode"`
	// Source is "src" for a loader reference, "inline" for script text, or
	// "element" for <amp-analytics>
	Source string `json:"source" yaml:"source"`
	Line   int    `json:"line" yaml:"line"`
	// InHead reports whether the tag sits inside <head>
	InHead bool `json:"in_head" yaml:"in_head"`
}
