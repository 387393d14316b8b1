package analytics

// ampConfig is the JSON configuration of an <amp-analytics> element.
type ampConfig struct {
	ExtraURLParams map[string]any        `json:"extraUrlParams,omitempty"`
	Triggers       map[string]ampTrigger `json:"triggers"`
	Vars           map[string]string     `json:"vars"`
}

type ampTrigger struct {
	On      string `json:"on"`
	Request string `json:"request"`
}

func (w *Writer) renderAMP() (string, error) {
	cfg := ampConfig{
		Triggers: map[string]ampTrigger{"trackPageview": {On: "visible", Request: "pageview"}},
		Vars:     map[string]string{"account": w.accountID},
	}
	extra := make(map[string]any)
	if w.userID != "" {
		extra["user_id"] = w.userID
	}
	for _, d := range w.sortedDimensions() {
		extra["cd"+d.Index] = d.Value
	}
	for _, m := range w.sortedMetrics() {
		extra["cm"+m.Index] = m.Value
	}
	if len(extra) > 0 {
		cfg.ExtraURLParams = extra
	}
	if len(w.events) > 0 || len(w.transactions) > 0 {
		w.log.Logf("amp: events and transactions are not rendered")
	}

	payload, err := w.json(cfg)
	if err != nil {
		return "", err
	}
	return w.frame(commentOpen, []string{
		`<amp-analytics type="googleanalytics">`,
		`<script type="application/json">`,
		payload,
		"</script>",
		"</amp-analytics>",
	}), nil
}
