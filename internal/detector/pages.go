package detector

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/getlawrence/gawriter/internal/config"
)

// Page is an HTML document found during discovery
type Page struct {
	Path     string `json:"path" yaml:"path"`
	RelPath  string `json:"rel_path" yaml:"rel_path"`
	Language string `json:"language" yaml:"language"`
}

// DiscoverPages walks rootPath and returns every file go-enry classifies as
// HTML or an HTML template language (HTML+ERB, HTML+Django, ...), sorted by
// path. Vendored, hidden and excluded paths are skipped.
func DiscoverPages(rootPath string, scan config.ScanConfig) ([]Page, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		lang := DetectPageLanguage(rootPath)
		if lang == "" {
			return nil, nil
		}
		return []Page{{Path: rootPath, RelPath: filepath.Base(rootPath), Language: lang}}, nil
	}

	var pages []Page
	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(rootPath, path)
		if rel == "." {
			return nil
		}

		if shouldSkip(rel, d, scan) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if lang := DetectPageLanguage(path); lang != "" {
			pages = append(pages, Page{Path: path, RelPath: filepath.ToSlash(rel), Language: lang})
		}
		return nil
	})
	return pages, err
}

// shouldSkip determines if a file or directory is left out of discovery
func shouldSkip(rel string, d fs.DirEntry, scan config.ScanConfig) bool {
	slashed := filepath.ToSlash(rel)
	if d.IsDir() {
		if scan.MaxDepth > 0 && strings.Count(slashed, "/")+1 > scan.MaxDepth {
			return true
		}
		slashed += "/"
	}

	if !scan.IncludeHidden && enry.IsDotFile(slashed) {
		return true
	}
	if enry.IsVendor(slashed) {
		return true
	}

	base := d.Name()
	for _, pattern := range scan.ExcludePaths {
		if base == pattern || rel == pattern {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// DetectPageLanguage returns the enry language of path when it belongs to the
// HTML family, or "" otherwise.
func DetectPageLanguage(path string) string {
	lang, safe := enry.GetLanguageByExtension(path)
	if !safe || lang == "" {
		content, err := readHead(path)
		if err != nil || enry.IsBinary(content) {
			return ""
		}
		lang = enry.GetLanguage(filepath.Base(path), content)
	}
	if isPageLanguage(lang) {
		return lang
	}
	return ""
}

func isPageLanguage(lang string) bool {
	return lang == "HTML" || strings.HasPrefix(lang, "HTML+")
}

// readHead reads enough of a file for content-based classification.
func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, 16*1024)
	n, err := f.Read(buf)
	if n == 0 && err != nil {
		return nil, err
	}
	return buf[:n], nil
}
