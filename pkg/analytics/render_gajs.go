package analytics

import (
	"fmt"
	"strconv"
	"strings"
)

const gaJSLoader = `(function() {
var ga = document.createElement('script'); ga.type = 'text/javascript'; ga.async = true;
ga.src = ('https:' == document.location.protocol ? 'https://ssl': 'http://www') + '.google-analytics.com/ga.js';
var s = document.getElementsByTagName('script')[0]; s.parentNode.insertBefore(ga, s);
})();`

// gaqQueue collects `_gaq` commands either as individual pushes or as the
// entries of one single push.
type gaqQueue struct {
	single  bool
	lines   []string
	entries []string
}

// push adds a command array such as "['_trackPageview']".
func (q *gaqQueue) push(cmd string) {
	if q.single {
		q.entries = append(q.entries, cmd)
		return
	}
	q.lines = append(q.lines, "_gaq.push("+cmd+");")
}

// comment adds a marker for an intent that could not be rendered. Outside
// single push the marker is a bare comment line and is never wrapped in an
// empty _gaq.push() call.
func (q *gaqQueue) comment(text string) {
	if q.single {
		q.entries = append(q.entries, text)
		return
	}
	q.lines = append(q.lines, text)
}

func (q *gaqQueue) script() []string {
	if !q.single {
		return q.lines
	}
	return []string{"_gaq.push(", strings.Join(q.entries, ",\n"), ");"}
}

func (w *Writer) renderGAJS() string {
	q := &gaqQueue{single: w.singlePush}
	w.gajsTracker(q, w.accountID, -1)
	for i, id := range w.additionalAccounts {
		w.gajsTracker(q, id, i)
	}

	body := []string{`<script type="text/javascript">`, "var _gaq = _gaq || [];"}
	body = append(body, q.script()...)
	body = append(body, gaJSLoader, "</script>")
	return w.frame(commentOpen, body)
}

// gajsTracker queues the commands for one tracker in the order the library
// expects: account, domain, custom vars, pageview, ecommerce, events.
func (w *Writer) gajsTracker(q *gaqQueue, accountID string, n int) {
	_, prefix := trackerName(n)
	if n < 0 && w.forceSSL {
		q.push("['_gat._forceSSL']")
	}
	q.push(fmt.Sprintf("['%s_setAccount',%s]", prefix, jsString(accountID)))

	if w.linker != nil && len(w.linker.Domains) > 0 {
		q.push(fmt.Sprintf("['%s_setDomainName',%s]", prefix, jsString(w.linker.Domains[0])))
		q.push(fmt.Sprintf("['%s_setAllowLinker',true]", prefix))
	}

	for _, d := range w.sortedDimensions() {
		slot := d.Index
		if _, err := strconv.Atoi(slot); err != nil {
			slot = jsString(slot)
		}
		cmd := fmt.Sprintf("['%s_setCustomVar',%s,%s,%s", prefix, slot, jsString(d.Name), jsString(d.Value))
		if d.Scope != 0 {
			cmd += fmt.Sprintf(",%d", d.Scope)
		}
		q.push(cmd + "]")
	}

	q.push(fmt.Sprintf("['%s_trackPageview']", prefix))

	if len(w.transactions) > 0 {
		txnReq := requirements[conceptTransaction][ModeGAJS]
		itemReq := requirements[conceptTransactionItem][ModeGAJS]
		valid := false
		for _, id := range w.transactionOrder {
			txn := w.transactions[id]
			if !hasRequired(conceptTransaction, ModeGAJS, txn) {
				w.log.Logf("ga.js: transaction %q is missing required fields", id)
				q.comment("/* invalid transaction */")
				continue
			}
			q.push(fmt.Sprintf("['%s_addTrans',%s]", prefix, strings.Join(trimUndefined(orderedArgs(txn, txnReq.order)), ",")))
			valid = true

			for _, item := range w.items[id] {
				if !hasRequired(conceptTransactionItem, ModeGAJS, item) {
					q.comment("/* invalid transaction item */")
					continue
				}
				q.push(fmt.Sprintf("['%s_addItem',%s]", prefix, strings.Join(trimUndefined(orderedArgs(item, itemReq.order)), ",")))
			}
		}
		if valid {
			q.push(fmt.Sprintf("['%s_trackTrans']", prefix))
		}
	}

	// _trackEvent(category, action, opt_label, opt_value, opt_noninteraction)
	for _, ev := range w.events {
		if !validEvent(ev, FieldCategory, FieldAction) {
			q.comment("/* _trackEvent: incompatible event */")
			continue
		}
		args := []string{jsString(stringify(ev[FieldCategory])), jsString(stringify(ev[FieldAction]))}
		args = append(args, trimUndefined(orderedArgs(ev, []Field{FieldLabel, FieldValue, FieldNonInteraction}))...)
		q.push(fmt.Sprintf("['%s_trackEvent',%s]", prefix, strings.Join(args, ",")))
	}
}
