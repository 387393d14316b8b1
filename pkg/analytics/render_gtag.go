package analytics

import (
	"fmt"
)

const gtagLoader = `<script async src="https://www.googletagmanager.com/gtag/js?id=%s"></script>
<script>
  window.dataLayer = window.dataLayer || [];
  function gtag(){dataLayer.push(arguments);}
  gtag('js', new Date());
`

// gtagEventFields maps native event fields into the gtag event parameters.
var gtagEventFields = []Field{FieldCategory, FieldLabel, FieldValue, FieldNonInteraction}

func (w *Writer) renderGtag() (string, error) {
	lines := []string{fmt.Sprintf(gtagLoader, attrEscaper.Replace(w.accountID))}

	// config arguments are shared by every account
	configArgs := make(map[string]any)
	if w.ampClientID {
		configArgs["use_amp_client_id"] = true
	}
	if w.linker != nil {
		linker := map[string]any{"domains": w.linker.Domains}
		if w.linker.AcceptIncoming {
			linker["accept_incoming"] = true
		}
		if w.linker.DecorateForms {
			linker["decorate_forms"] = true
		}
		configArgs["linker"] = linker
	}
	if w.userID != "" {
		configArgs["user_id"] = w.userID
	}

	// custom_map names each dimension/metric slot; the values are then set
	// or sent by name.
	customMap := make(map[string]string)
	customValues := make(map[string]any)
	for _, d := range w.sortedDimensions() {
		customMap["dimension"+d.Index] = d.Name
		customValues[d.Name] = d.Value
	}
	for _, m := range w.sortedMetrics() {
		if m.Name == "" {
			w.log.Logf("gtag.js: metric%s has no name and cannot be mapped", m.Index)
			continue
		}
		customMap["metric"+m.Index] = m.Name
		customValues[m.Name] = m.Value
	}

	var values string
	if len(customMap) > 0 {
		configArgs["custom_map"] = customMap
		payload, err := w.json(customValues)
		if err != nil {
			return "", err
		}
		values = payload
		switch w.dimensionsStrategy {
		case DimensionsSetConfig:
			if w.globalCustomData {
				lines = append(lines, fmt.Sprintf("gtag('set',%s);", values))
			}
		case DimensionsConfigNoPageviewSetEvent:
			configArgs["send_page_view"] = false
		}
	}

	accounts := append([]string{w.accountID}, w.additionalAccounts...)
	if len(configArgs) == 0 {
		for _, id := range accounts {
			lines = append(lines, fmt.Sprintf("gtag('config',%s);", jsString(id)))
		}
	} else {
		payload, err := w.json(configArgs)
		if err != nil {
			return "", err
		}
		for _, id := range accounts {
			lines = append(lines, fmt.Sprintf("gtag('config',%s,%s);", jsString(id), payload))
		}
	}

	if values != "" {
		switch {
		case w.dimensionsStrategy == DimensionsSetConfig && !w.globalCustomData:
			lines = append(lines, fmt.Sprintf("gtag('event','pageview',%s);", values))
		case w.dimensionsStrategy == DimensionsConfigNoPageviewSetEvent && w.globalCustomData:
			// the automatic pageview is disabled, so it is sent as an event
			lines = append(lines, fmt.Sprintf("gtag('set',%s);", values), "gtag('event','pageview');")
		case w.dimensionsStrategy == DimensionsConfigNoPageviewSetEvent:
			lines = append(lines, fmt.Sprintf("gtag('event','pageview',%s);", values))
		}
	}

	purchases, err := w.gtagPurchases()
	if err != nil {
		return "", err
	}
	lines = append(lines, purchases...)

	for _, ev := range w.events {
		if !validEvent(ev, FieldAction) {
			lines = append(lines, "/* gtag('event': incompatible event */")
			continue
		}
		action := jsString(stringify(ev[FieldAction]))
		params := toAPI(conceptEvent, ModeGtag, pick(ev, gtagEventFields))
		if len(params) == 0 {
			lines = append(lines, fmt.Sprintf("gtag('event',%s);", action))
			continue
		}
		payload, err := w.json(params)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("gtag('event',%s,%s);", action, payload))
	}

	lines = append(lines, "</script>")
	return w.frame(commentOpenGtag, lines), nil
}

// gtagPurchases renders one purchase event per valid transaction, with its
// items nested. Markers for invalid entries follow the purchases.
func (w *Writer) gtagPurchases() ([]string, error) {
	var lines, invalid []string
	for _, id := range w.transactionOrder {
		txn := w.transactions[id]
		if !hasRequired(conceptTransaction, ModeGtag, txn) {
			invalid = append(invalid, "/* invalid transaction */")
			continue
		}
		params := toAPI(conceptTransaction, ModeGtag, txn)
		items := make([]map[string]any, 0, len(w.items[id]))
		for _, item := range w.items[id] {
			if !hasRequired(conceptTransactionItem, ModeGtag, item) {
				invalid = append(invalid, "/* invalid transaction item */")
				continue
			}
			items = append(items, toAPI(conceptTransactionItem, ModeGtag, item))
		}
		params["items"] = items
		payload, err := w.json(params)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("gtag('event','purchase',%s);", payload))
	}
	return append(lines, invalid...), nil
}

// pick returns the subset of f holding the listed fields.
func pick(f Fields, fields []Field) Fields {
	out := make(Fields, len(fields))
	for _, field := range fields {
		if v, ok := f[field]; ok {
			out[field] = v
		}
	}
	return out
}
