package analytics

import (
	"fmt"
	"strings"
)

const (
	commentOpen      = "<!-- Google Analytics -->"
	commentOpenGtag  = "<!-- Global site tag (gtag.js) - Google Analytics -->"
	commentClose     = "<!-- End Google Analytics -->"
	ampElementScript = `<script async custom-element="amp-analytics" src="https://cdn.ampproject.org/v0/amp-analytics-0.1.js"></script>`
	ampClientIDMeta  = `<meta name="amp-google-client-id-api" content="googleanalytics">`
)

var attrEscaper = strings.NewReplacer(`&`, `&amp;`, `"`, `&quot;`)

// Render renders the accumulated intents in the writer's mode.
func (w *Writer) Render() (string, error) {
	return w.RenderMode(w.mode)
}

// RenderMode renders the accumulated intents for mode m. The same writer can
// be rendered in several modes; when alternate modes were configured only
// those and the primary mode are allowed.
func (w *Writer) RenderMode(m Mode) (string, error) {
	if err := w.checkMode(m); err != nil {
		return "", err
	}
	if w.orphanItems() {
		w.log.Logf("no transaction registered, but transaction_items added")
	}
	switch m {
	case ModeGAJS:
		return w.renderGAJS(), nil
	case ModeAnalytics:
		return w.renderAnalytics()
	case ModeGtag:
		return w.renderGtag()
	case ModeAMP:
		return w.renderAMP()
	}
	return "", fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
}

// RenderHead renders the elements that belong in <head> for the writer's mode.
func (w *Writer) RenderHead() (string, error) {
	return w.RenderHeadMode(w.mode)
}

// RenderHeadMode renders the <head> elements for mode m. Only AMP needs any.
func (w *Writer) RenderHeadMode(m Mode) (string, error) {
	if err := w.checkMode(m); err != nil {
		return "", err
	}
	if m != ModeAMP {
		return "", nil
	}
	if w.ampClientID {
		return ampClientIDMeta + "\n" + ampElementScript, nil
	}
	return ampElementScript, nil
}

func (w *Writer) checkMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	if m == w.mode || len(w.alternateModes) == 0 {
		return nil
	}
	for _, alt := range w.alternateModes {
		if alt == m {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrModeNotSupported, m)
}

// RenderCrossdomainLinkAttrs returns the attributes an outbound <a> needs for
// cross-domain tracking. Only ga.js needs them; the other libraries decorate
// links from their linker plugin.
func (w *Writer) RenderCrossdomainLinkAttrs(link string) string {
	if w.mode != ModeGAJS {
		return ""
	}
	return `onclick="` + attrEscaper.Replace("_gaq.push(['_link',"+jsString(link)+"]); return false;") + `"`
}

// SetRenderUserID records userID and returns the script that applies it to
// trackers that were already rendered. ga.js and AMP return "".
func (w *Writer) SetRenderUserID(userID string) string {
	w.userID = userID
	var lines []string
	switch w.mode {
	case ModeAnalytics:
		for i := -1; i < len(w.additionalAccounts); i++ {
			_, prefix := trackerName(i)
			lines = append(lines,
				fmt.Sprintf("ga('%sset','userId',%s);", prefix, jsString(userID)),
				fmt.Sprintf("ga('%ssend','event','authentication','user-id available');", prefix),
			)
		}
	case ModeGtag:
		for _, id := range append([]string{w.accountID}, w.additionalAccounts...) {
			lines = append(lines, fmt.Sprintf("gtag('config', %s, {'user_id': %s});", jsString(id), jsString(userID)))
		}
	}
	return strings.Join(lines, "\n")
}

// frame wraps body in the framing comments when enabled.
func (w *Writer) frame(open string, body []string) string {
	lines := make([]string, 0, len(body)+2)
	if w.useComments {
		lines = append(lines, open)
	}
	lines = append(lines, body...)
	if w.useComments {
		lines = append(lines, commentClose)
	}
	return strings.Join(lines, "\n")
}

// validEvent reports whether every listed field is set and non-empty.
func validEvent(ev Fields, fields ...Field) bool {
	for _, f := range fields {
		if !truthy(ev.get(f)) {
			return false
		}
	}
	return true
}
