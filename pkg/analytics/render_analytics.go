package analytics

import (
	"fmt"
	"strings"
)

const analyticsJSLoader = `(function(i,s,o,g,r,a,m){i['GoogleAnalyticsObject']=r;i[r]=i[r]||function(){
(i[r].q=i[r].q||[]).push(arguments)},i[r].l=1*new Date();a=s.createElement(o),
m=s.getElementsByTagName(o)[0];a.async=1;a.src=g;m.parentNode.insertBefore(a,m)
})(window,document,'script','https://www.google-analytics.com/analytics.js','ga');`

func (w *Writer) renderAnalytics() (string, error) {
	body := []string{`<script type="text/javascript">`, analyticsJSLoader}
	lines, err := w.analyticsTracker(w.accountID, -1)
	if err != nil {
		return "", err
	}
	body = append(body, lines...)
	for i, id := range w.additionalAccounts {
		lines, err := w.analyticsTracker(id, i)
		if err != nil {
			return "", err
		}
		body = append(body, lines...)
	}
	body = append(body, "</script>")
	return w.frame(commentOpen, body), nil
}

// analyticsCustomData collects dimensions and metrics under their
// "dimension<N>"/"metric<N>" keys.
func (w *Writer) analyticsCustomData() map[string]any {
	data := make(map[string]any)
	for _, d := range w.sortedDimensions() {
		data["dimension"+d.Index] = d.Value
	}
	for _, m := range w.sortedMetrics() {
		data["metric"+m.Index] = m.Value
	}
	return data
}

func (w *Writer) analyticsTracker(accountID string, n int) ([]string, error) {
	name, prefix := trackerName(n)
	var lines []string

	// ga('create', trackingId, cookieDomain, [name], [fieldsObject])
	createArgs := make(map[string]any)
	if w.linker != nil {
		createArgs["allowLinker"] = true
	}
	if w.userID != "" {
		createArgs["userId"] = w.userID
	}
	if w.ampClientID {
		createArgs["useAmpClientId"] = true
	}
	create := "ga('create'," + jsString(accountID) + ",'auto'"
	if name != "" {
		create += "," + jsString(name)
	}
	if len(createArgs) > 0 {
		payload, err := w.json(createArgs)
		if err != nil {
			return nil, err
		}
		create += "," + payload
	}
	lines = append(lines, create+");")

	if n < 0 {
		if w.linker != nil {
			domains := make([]string, len(w.linker.Domains))
			for i, d := range w.linker.Domains {
				domains[i] = jsString(d)
			}
			lines = append(lines, "ga('require','linker');")
			if w.linker.DecorateForms {
				lines = append(lines, fmt.Sprintf("ga('linker:autoLink',[%s],false,true);", strings.Join(domains, ",")))
			} else {
				lines = append(lines, fmt.Sprintf("ga('linker:autoLink',[%s]);", strings.Join(domains, ",")))
			}
		}
		if len(w.transactions) > 0 {
			lines = append(lines, "ga('require','ecommerce');")
		}
	}

	custom := w.analyticsCustomData()
	switch {
	case len(custom) == 0:
		lines = append(lines, fmt.Sprintf("ga('%ssend','pageview');", prefix))
	case w.globalCustomData:
		payload, err := w.json(custom)
		if err != nil {
			return nil, err
		}
		lines = append(lines,
			fmt.Sprintf("ga('%sset',%s);", prefix, payload),
			fmt.Sprintf("ga('%ssend','pageview');", prefix),
		)
	default:
		payload, err := w.json(custom)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("ga('%ssend','pageview',%s);", prefix, payload))
	}

	if len(w.transactions) > 0 {
		valid := false
		for _, id := range w.transactionOrder {
			txn := w.transactions[id]
			if !hasRequired(conceptTransaction, ModeAnalytics, txn) {
				lines = append(lines, "/* invalid transaction */")
				continue
			}
			payload, err := w.json(toAPI(conceptTransaction, ModeAnalytics, txn))
			if err != nil {
				return nil, err
			}
			lines = append(lines, fmt.Sprintf("ga('%secommerce:addTransaction',%s);", prefix, payload))
			valid = true

			for _, item := range w.items[id] {
				if !hasRequired(conceptTransactionItem, ModeAnalytics, item) {
					lines = append(lines, "/* invalid transaction item */")
					continue
				}
				payload, err := w.json(toAPI(conceptTransactionItem, ModeAnalytics, item))
				if err != nil {
					return nil, err
				}
				lines = append(lines, fmt.Sprintf("ga('%secommerce:addItem',%s);", prefix, payload))
			}
		}
		if valid {
			lines = append(lines, fmt.Sprintf("ga('%secommerce:send');", prefix))
		}
	}

	// ga('send', 'event', category, action, [label], [value], [fieldsObject])
	for _, ev := range w.events {
		if !validEvent(ev, FieldCategory, FieldAction) {
			lines = append(lines, fmt.Sprintf("/* ga('%ssend': incompatible event */", prefix))
			continue
		}
		args := []string{jsString(stringify(ev[FieldCategory])), jsString(stringify(ev[FieldAction]))}
		optional := orderedArgs(ev, []Field{FieldLabel, FieldValue})
		ni := ev.get(FieldNonInteraction)
		if ni == nil {
			// the fields object is positional too, so gaps are only trimmed without it
			optional = trimUndefined(optional)
		}
		args = append(args, optional...)
		if ni != nil {
			payload, err := w.json(map[string]any{"nonInteraction": ni})
			if err != nil {
				return nil, err
			}
			args = append(args, payload)
		}
		lines = append(lines, fmt.Sprintf("ga('%ssend','event',%s);", prefix, strings.Join(args, ",")))
	}
	return lines, nil
}
