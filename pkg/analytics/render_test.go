package analytics

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	accountA = "UA-123123-1"
	accountB = "UA-123123-2"
)

func lines(ls ...string) string { return strings.Join(ls, "\n") }

func mustWriter(t *testing.T, opts ...Option) *Writer {
	t.Helper()
	w, err := New(accountA, opts...)
	require.NoError(t, err)
	return w
}

func mustRender(t *testing.T, w *Writer) string {
	t.Helper()
	out, err := w.Render()
	require.NoError(t, err)
	return out
}

func assertSnippet(t *testing.T, want, got string) {
	t.Helper()
	if diff := cmp.Diff(strings.Split(want, "\n"), strings.Split(got, "\n")); diff != "" {
		t.Fatalf("snippet mismatch (-want +got):\n%s", diff)
	}
}

// shop records the same page in every test: a purchase, one item and an event.
func shop(t *testing.T, w *Writer, affiliation string) {
	t.Helper()
	require.NoError(t, w.AddTransaction(Fields{
		FieldID:          "1234",
		FieldAffiliation: affiliation,
		FieldTotal:       "100.00",
		FieldRevenue:     "115.00",
		FieldTax:         "10.00",
		FieldShipping:    "5.00",
		FieldCity:        "brooklyn",
		FieldState:       "new york",
		FieldCountry:     "usa",
	}))
	require.NoError(t, w.AddTransactionItem(Fields{
		FieldTransactionID: "1234",
		FieldSKU:           "DD44",
		FieldName:          "T-Shirt",
		FieldCategory:      "Greeñ Medium",
		FieldPrice:         "100.00",
		FieldQuantity:      "1",
	}))
	w.TrackEvent(Fields{
		FieldCategory:       "Videos",
		FieldAction:         "Play",
		FieldLabel:          "action",
		FieldValue:          47,
		FieldNonInteraction: true,
	})
}

func TestRender_GAJS_Minimal(t *testing.T) {
	w := mustWriter(t, WithMode(ModeGAJS))
	assertSnippet(t, lines(
		"<!-- Google Analytics -->",
		`<script type="text/javascript">`,
		"var _gaq = _gaq || [];",
		"_gaq.push(['_setAccount','UA-123123-1']);",
		"_gaq.push(['_trackPageview']);",
		gaJSLoader,
		"</script>",
		"<!-- End Google Analytics -->",
	), mustRender(t, w))
}

func TestRender_GAJS_Full(t *testing.T) {
	w := mustWriter(t, WithMode(ModeGAJS), WithForceSSL(true))
	w.AddAdditionalAccount(accountB)
	w.SetCrossdomainTracking(Linker{Domains: []string{"firstdomain", "seconddomain"}})
	w.SetCustomVariable(6, "author", "jonathan", 1)
	shop(t, w, "ga.js")
	w.TrackEvent(Fields{FieldCategory: "category"})

	tracker := func(prefix string) []string {
		return []string{
			fmt.Sprintf("_gaq.push(['%s_setDomainName','firstdomain']);", prefix),
			fmt.Sprintf("_gaq.push(['%s_setAllowLinker',true]);", prefix),
			fmt.Sprintf("_gaq.push(['%s_setCustomVar',6,'author','jonathan',1]);", prefix),
			fmt.Sprintf("_gaq.push(['%s_trackPageview']);", prefix),
			fmt.Sprintf("_gaq.push(['%s_addTrans','1234','ga.js','100.00','10.00','5.00','brooklyn','new york','usa']);", prefix),
			fmt.Sprintf("_gaq.push(['%s_addItem','1234','DD44','T-Shirt','Greeñ Medium','100.00','1']);", prefix),
			fmt.Sprintf("_gaq.push(['%s_trackTrans']);", prefix),
			fmt.Sprintf("_gaq.push(['%s_trackEvent','Videos','Play','action',47,true]);", prefix),
			"/* _trackEvent: incompatible event */",
		}
	}
	want := []string{
		"<!-- Google Analytics -->",
		`<script type="text/javascript">`,
		"var _gaq = _gaq || [];",
		"_gaq.push(['_gat._forceSSL']);",
		"_gaq.push(['_setAccount','UA-123123-1']);",
	}
	want = append(want, tracker("")...)
	want = append(want, "_gaq.push(['trkr0._setAccount','UA-123123-2']);")
	want = append(want, tracker("trkr0.")...)
	want = append(want, gaJSLoader, "</script>", "<!-- End Google Analytics -->")

	assertSnippet(t, lines(want...), mustRender(t, w))
}

func TestRender_GAJS_SinglePush(t *testing.T) {
	w := mustWriter(t, WithMode(ModeGAJS), WithSinglePush(true), WithComments(false))
	w.TrackEvent(Fields{FieldCategory: "Videos", FieldAction: "Play"})
	require.NoError(t, w.AddTransaction(Fields{FieldID: 99}))

	assertSnippet(t, lines(
		`<script type="text/javascript">`,
		"var _gaq = _gaq || [];",
		"_gaq.push(",
		"['_setAccount','UA-123123-1'],",
		"['_trackPageview'],",
		"/* invalid transaction */,",
		"['_trackEvent','Videos','Play']",
		");",
		gaJSLoader,
		"</script>",
	), mustRender(t, w))
}

func TestRender_GAJS_EventArguments(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		event Fields
		want  string
	}{
		{"required only", Fields{FieldCategory: "category", FieldAction: "action"}, "_gaq.push(['_trackEvent','category','action']);"},
		{"gap before value", Fields{FieldCategory: "c", FieldAction: "a", FieldValue: 47}, "_gaq.push(['_trackEvent','c','a',undefined,47]);"},
		{"nil non interaction", Fields{FieldCategory: "c", FieldAction: "a", FieldLabel: "l", FieldValue: 47, FieldNonInteraction: nil}, "_gaq.push(['_trackEvent','c','a','l',47]);"},
		{"false non interaction", Fields{FieldCategory: "c", FieldAction: "a", FieldLabel: "l", FieldValue: 47, FieldNonInteraction: false}, "_gaq.push(['_trackEvent','c','a','l',47,false]);"},
		{"escaped", Fields{FieldCategory: "it's", FieldAction: "</script>"}, `_gaq.push(['_trackEvent','it\'s','\x3C/script\x3E']);`},
		{"missing action", Fields{FieldCategory: "c"}, "/* _trackEvent: incompatible event */"},
		{"empty category", Fields{FieldCategory: "", FieldAction: "a"}, "/* _trackEvent: incompatible event */"},
		{"int64 zero category", Fields{FieldCategory: int64(0), FieldAction: "a"}, "/* _trackEvent: incompatible event */"},
		{"float32 zero action", Fields{FieldCategory: "c", FieldAction: float32(0)}, "/* _trackEvent: incompatible event */"},
		{"uint8 zero category", Fields{FieldCategory: uint8(0), FieldAction: "a"}, "/* _trackEvent: incompatible event */"},
		{"int64 category", Fields{FieldCategory: int64(7), FieldAction: "a"}, "_gaq.push(['_trackEvent','7','a']);"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := mustWriter(t, WithMode(ModeGAJS))
			w.TrackEvent(tc.event)
			out := mustRender(t, w)
			require.Contains(t, out, "\n"+tc.want+"\n")
		})
	}
}

func TestRender_GAJS_InvalidEcommerce(t *testing.T) {
	w := mustWriter(t, WithMode(ModeGAJS), WithComments(false))
	// ga.js needs a total
	require.NoError(t, w.AddTransaction(Fields{FieldID: "1", FieldRevenue: "10.00"}))
	require.NoError(t, w.AddTransactionItem(Fields{FieldTransactionID: "1", FieldSKU: "A"}))

	out := mustRender(t, w)
	require.Contains(t, out, "\n/* invalid transaction */\n")
	require.NotContains(t, out, "_trackTrans")
	require.NotContains(t, out, "invalid transaction item")
	require.NotContains(t, out, "_gaq.push(/*")
}

func TestRender_Analytics_Full(t *testing.T) {
	w := mustWriter(t)
	w.AddAdditionalAccount(accountB)
	w.SetCrossdomainTracking(Linker{Domains: []string{"foo.example.com", "bar.example.com"}})
	w.SetUserID("cecil")
	w.SetCustomDimension("dimension9", "author", "jonathan", 0)
	shop(t, w, "analytics.js")

	txn := `{"affiliation":"analytics.js","city":"brooklyn","country":"usa","id":"1234","revenue":"115.00","shipping":"5.00","state":"new york","tax":"10.00"}`
	item := `{"category":"Gree\u00f1 Medium","id":"1234","name":"T-Shirt","price":"100.00","quantity":"1","sku":"DD44"}`
	assertSnippet(t, lines(
		"<!-- Google Analytics -->",
		`<script type="text/javascript">`,
		analyticsJSLoader,
		`ga('create','UA-123123-1','auto',{"allowLinker":true,"userId":"cecil"});`,
		"ga('require','linker');",
		"ga('linker:autoLink',['foo.example.com','bar.example.com']);",
		"ga('require','ecommerce');",
		`ga('set',{"dimension9":"jonathan"});`,
		"ga('send','pageview');",
		"ga('ecommerce:addTransaction',"+txn+");",
		"ga('ecommerce:addItem',"+item+");",
		"ga('ecommerce:send');",
		`ga('send','event','Videos','Play','action',47,{"nonInteraction":true});`,
		`ga('create','UA-123123-2','auto','trkr0',{"allowLinker":true,"userId":"cecil"});`,
		`ga('trkr0.set',{"dimension9":"jonathan"});`,
		"ga('trkr0.send','pageview');",
		"ga('trkr0.ecommerce:addTransaction',"+txn+");",
		"ga('trkr0.ecommerce:addItem',"+item+");",
		"ga('trkr0.ecommerce:send');",
		`ga('trkr0.send','event','Videos','Play','action',47,{"nonInteraction":true});`,
		"</script>",
		"<!-- End Google Analytics -->",
	), mustRender(t, w))
}

func TestRender_Analytics_CustomDataOnPageview(t *testing.T) {
	w := mustWriter(t, WithGlobalCustomData(false), WithComments(false))
	w.SetCustomDimension("9", "author", "jonathan", 0)
	w.SetCustomMetric("metric2", "score", 10)
	w.TrackEvent(Fields{FieldCategory: "c", FieldAction: "a", FieldNonInteraction: true})
	w.TrackEvent(Fields{FieldAction: "a"})

	assertSnippet(t, lines(
		`<script type="text/javascript">`,
		analyticsJSLoader,
		"ga('create','UA-123123-1','auto');",
		`ga('send','pageview',{"dimension9":"jonathan","metric2":10});`,
		`ga('send','event','c','a',undefined,undefined,{"nonInteraction":true});`,
		"/* ga('send': incompatible event */",
		"</script>",
	), mustRender(t, w))
}

func TestRender_Analytics_DecorateFormsAndAMPClientID(t *testing.T) {
	w := mustWriter(t, WithAMPClientID(true))
	w.SetCrossdomainTracking(Linker{Domains: []string{"foo.example.com"}, DecorateForms: true})
	out := mustRender(t, w)
	require.Contains(t, out, `ga('create','UA-123123-1','auto',{"allowLinker":true,"useAmpClientId":true});`)
	require.Contains(t, out, "ga('linker:autoLink',['foo.example.com'],false,true);")
}

func TestRender_Gtag_Full(t *testing.T) {
	w := mustWriter(t, WithMode(ModeGtag))
	w.AddAdditionalAccount(accountB)
	w.SetCrossdomainTracking(Linker{Domains: []string{"foo.example.com"}, AcceptIncoming: true})
	w.SetUserID("cecil")
	w.SetCustomDimension("9", "author", "jonathan", 0)
	shop(t, w, "gtag.js")
	w.TrackEvent(Fields{FieldAction: "action"})
	w.TrackEvent(Fields{FieldCategory: "no action"})

	config := `{"custom_map":{"dimension9":"author"},"linker":{"accept_incoming":true,"domains":["foo.example.com"]},"user_id":"cecil"}`
	assertSnippet(t, lines(
		"<!-- Global site tag (gtag.js) - Google Analytics -->",
		`<script async src="https://www.googletagmanager.com/gtag/js?id=UA-123123-1"></script>`,
		"<script>",
		"  window.dataLayer = window.dataLayer || [];",
		"  function gtag(){dataLayer.push(arguments);}",
		"  gtag('js', new Date());",
		"",
		`gtag('set',{"author":"jonathan"});`,
		"gtag('config','UA-123123-1',"+config+");",
		"gtag('config','UA-123123-2',"+config+");",
		`gtag('event','purchase',{"affiliation":"gtag.js","items":[{"category":"Gree\u00f1 Medium","id":"DD44","name":"T-Shirt","price":"100.00","quantity":"1"}],"shipping":"5.00","tax":"10.00","transaction_id":"1234","value":"115.00"});`,
		`gtag('event','Play',{"event_category":"Videos","event_label":"action","non_interaction":true,"value":47});`,
		"gtag('event','action');",
		"/* gtag('event': incompatible event */",
		"</script>",
		"<!-- End Google Analytics -->",
	), mustRender(t, w))
}

func TestRender_Gtag_DimensionsStrategies(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		strategy DimensionsStrategy
		global   bool
		want     []string
	}{
		{
			name: "set config global", strategy: DimensionsSetConfig, global: true,
			want: []string{
				`gtag('set',{"author":"jonathan"});`,
				`gtag('config','UA-123123-1',{"custom_map":{"dimension9":"author"}});`,
			},
		},
		{
			name: "set config pageview", strategy: DimensionsSetConfig, global: false,
			want: []string{
				`gtag('config','UA-123123-1',{"custom_map":{"dimension9":"author"}});`,
				`gtag('event','pageview',{"author":"jonathan"});`,
			},
		},
		{
			name: "no pageview global", strategy: DimensionsConfigNoPageviewSetEvent, global: true,
			want: []string{
				`gtag('config','UA-123123-1',{"custom_map":{"dimension9":"author"},"send_page_view":false});`,
				`gtag('set',{"author":"jonathan"});`,
				"gtag('event','pageview');",
			},
		},
		{
			name: "no pageview event", strategy: DimensionsConfigNoPageviewSetEvent, global: false,
			want: []string{
				`gtag('config','UA-123123-1',{"custom_map":{"dimension9":"author"},"send_page_view":false});`,
				`gtag('event','pageview',{"author":"jonathan"});`,
			},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := mustWriter(t, WithMode(ModeGtag), WithComments(false),
				WithDimensionsStrategy(tc.strategy), WithGlobalCustomData(tc.global))
			w.SetCustomDimension("dimension9", "author", "jonathan", 0)
			out := mustRender(t, w)
			body := strings.Split(out, "\n")
			// loader header (5 lines and a blank one) first, closing tag last
			if diff := cmp.Diff(tc.want, body[6:len(body)-1]); diff != "" {
				t.Fatalf("commands mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRender_Gtag_NoConfigArgs(t *testing.T) {
	w := mustWriter(t, WithMode(ModeGtag))
	w.AddAdditionalAccount(accountB)
	out := mustRender(t, w)
	require.Contains(t, out, "\ngtag('config','UA-123123-1');\ngtag('config','UA-123123-2');\n")
}

func TestRender_Gtag_LinkerWithoutDomains(t *testing.T) {
	w := mustWriter(t, WithMode(ModeGtag))
	w.SetCrossdomainTracking(Linker{AcceptIncoming: true})
	out := mustRender(t, w)
	require.Contains(t, out, `gtag('config','UA-123123-1',{"linker":{"accept_incoming":true,"domains":[]}});`)
	require.NotContains(t, out, "null")
}

func TestRender_DefaultJSONEncoderEscapesNonASCII(t *testing.T) {
	w := mustWriter(t)
	w.SetUserID("José<")
	require.Contains(t, mustRender(t, w), `ga('create','UA-123123-1','auto',{"userId":"Jos\u00e9\u003c"});`)

	utf8 := mustWriter(t, WithJSONEncoder(CompactJSON))
	utf8.SetUserID("José<")
	require.Contains(t, mustRender(t, utf8), `ga('create','UA-123123-1','auto',{"userId":"José\u003c"});`)
}

func TestRender_Gtag_MetricsNeedNames(t *testing.T) {
	log := &recordingLogger{}
	w := mustWriter(t, WithMode(ModeGtag), WithLogger(log))
	w.SetCustomMetric("1", "score", 3)
	w.SetCustomMetric("2", "", 4)
	out := mustRender(t, w)
	require.Contains(t, out, `"custom_map":{"metric1":"score"}`)
	require.Contains(t, out, `gtag('set',{"score":3});`)
	require.Len(t, log.lines, 1)
}

func TestRender_AMP(t *testing.T) {
	w := mustWriter(t, WithMode(ModeAMP))
	w.SetUserID("cecil")
	w.SetCustomDimension("9", "author", "jonathan", 0)
	w.SetCustomMetric("3", "score", 1.5)
	assertSnippet(t, lines(
		"<!-- Google Analytics -->",
		`<amp-analytics type="googleanalytics">`,
		`<script type="application/json">`,
		`{"extraUrlParams":{"cd9":"jonathan","cm3":1.5,"user_id":"cecil"},"triggers":{"trackPageview":{"on":"visible","request":"pageview"}},"vars":{"account":"UA-123123-1"}}`,
		"</script>",
		"</amp-analytics>",
		"<!-- End Google Analytics -->",
	), mustRender(t, w))
}

func TestRender_AMP_Minimal(t *testing.T) {
	w := mustWriter(t, WithMode(ModeAMP), WithComments(false))
	out := mustRender(t, w)
	require.Equal(t, lines(
		`<amp-analytics type="googleanalytics">`,
		`<script type="application/json">`,
		`{"triggers":{"trackPageview":{"on":"visible","request":"pageview"}},"vars":{"account":"UA-123123-1"}}`,
		"</script>",
		"</amp-analytics>",
	), out)
}

func TestRenderHead(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		opts []Option
		want string
	}{
		{"amp", []Option{WithMode(ModeAMP)}, ampElementScript},
		{"amp client id", []Option{WithMode(ModeAMP), WithAMPClientID(true)}, ampClientIDMeta + "\n" + ampElementScript},
		{"gtag", []Option{WithMode(ModeGtag)}, ""},
		{"analytics", nil, ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := mustWriter(t, tc.opts...)
			got, err := w.RenderHead()
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRenderMode_Restrictions(t *testing.T) {
	open := mustWriter(t)
	for _, m := range Modes() {
		_, err := open.RenderMode(m)
		require.NoError(t, err, "mode %s", m)
	}
	_, err := open.RenderMode(Mode(3))
	require.ErrorIs(t, err, ErrInvalidMode)

	restricted := mustWriter(t, WithMode(ModeGtag), WithAlternateModes(ModeAMP))
	_, err = restricted.RenderMode(ModeAMP)
	require.NoError(t, err)
	_, err = restricted.RenderMode(ModeGtag)
	require.NoError(t, err)
	_, err = restricted.RenderMode(ModeGAJS)
	require.ErrorIs(t, err, ErrModeNotSupported)
	_, err = restricted.RenderHeadMode(ModeAnalytics)
	require.ErrorIs(t, err, ErrModeNotSupported)
}

func TestRenderCrossdomainLinkAttrs(t *testing.T) {
	ga := mustWriter(t, WithMode(ModeGAJS))
	require.Equal(t,
		`onclick="_gaq.push(['_link','https://example.com/foo.html']); return false;"`,
		ga.RenderCrossdomainLinkAttrs("https://example.com/foo.html"))
	require.Equal(t,
		`onclick="_gaq.push(['_link','https://example.com/?a=1&amp;b=&quot;2&quot;']); return false;"`,
		ga.RenderCrossdomainLinkAttrs(`https://example.com/?a=1&b="2"`))

	for _, m := range []Mode{ModeAnalytics, ModeGtag, ModeAMP} {
		w := mustWriter(t, WithMode(m))
		require.Empty(t, w.RenderCrossdomainLinkAttrs("https://example.com/"))
	}
}

func TestSetRenderUserID(t *testing.T) {
	analytics := mustWriter(t)
	analytics.AddAdditionalAccount(accountB)
	require.Equal(t, lines(
		"ga('set','userId','cecil');",
		"ga('send','event','authentication','user-id available');",
		"ga('trkr0.set','userId','cecil');",
		"ga('trkr0.send','event','authentication','user-id available');",
	), analytics.SetRenderUserID("cecil"))
	require.Equal(t, "cecil", analytics.UserID())

	gtag := mustWriter(t, WithMode(ModeGtag))
	gtag.AddAdditionalAccount(accountB)
	require.Equal(t, lines(
		"gtag('config', 'UA-123123-1', {'user_id': 'cecil'});",
		"gtag('config', 'UA-123123-2', {'user_id': 'cecil'});",
	), gtag.SetRenderUserID("cecil"))

	ga := mustWriter(t, WithMode(ModeGAJS))
	require.Empty(t, ga.SetRenderUserID("cecil"))
}

func TestRender_OrphanItemsAreLogged(t *testing.T) {
	log := &recordingLogger{}
	w := mustWriter(t, WithLogger(log))
	require.NoError(t, w.AddTransactionItem(Fields{FieldTransactionID: "1", FieldSKU: "A", FieldName: "B"}))
	out := mustRender(t, w)
	require.NotContains(t, out, "ecommerce")
	require.Equal(t, []string{"no transaction registered, but transaction_items added"}, log.lines)
}

func TestRender_JSONEncoderErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	w := mustWriter(t, WithJSONEncoder(func(any) ([]byte, error) { return nil, boom }))
	w.SetCustomDimension("1", "a", "b", 0)
	_, err := w.Render()
	require.ErrorIs(t, err, boom)

	// ga.js never encodes JSON
	_, err = w.RenderMode(ModeGAJS)
	require.NoError(t, err)
}

type recordingLogger struct{ lines []string }

func (l *recordingLogger) Logf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}
