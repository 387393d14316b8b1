package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Logger receives diagnostics about intents that cannot be rendered.
type Logger interface {
	Logf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Logf(string, ...interface{}) {}

// Dimension is a custom dimension (custom variable on ga.js).
type Dimension struct {
	Index string
	Name  string
	Value string
	// Scope is the ga.js custom variable scope; zero means unset.
	Scope int
}

// Metric is a custom metric. ga.js has no equivalent.
type Metric struct {
	Index string
	Name  string
	Value any
}

// Linker configures cross-domain tracking.
type Linker struct {
	Domains []string
	// DecorateForms also decorates forms pointing at the linked domains
	// (analytics.js, gtag.js).
	DecorateForms bool
	// AcceptIncoming makes the destination accept linker parameters (gtag.js).
	AcceptIncoming bool
}

// Writer accumulates the tracking intents of one page and renders them in
// one of the supported modes. A Writer is meant to live for a single request
// and is not safe for concurrent use.
type Writer struct {
	mode               Mode
	alternateModes     []Mode
	useComments        bool
	singlePush         bool
	forceSSL           bool
	globalCustomData   bool
	dimensionsStrategy DimensionsStrategy
	ampClientID        bool
	encodeJSON         JSONEncoder
	log                Logger

	accountID          string
	additionalAccounts []string
	events             []Fields
	dimensions         map[string]Dimension
	metrics            map[string]Metric
	transactionOrder   []string
	transactions       map[string]Fields
	items              map[string][]Fields
	linker             *Linker
	userID             string
}

// Option configures a Writer.
type Option func(*Writer)

// WithMode sets the default render mode. It cannot be changed afterwards.
func WithMode(m Mode) Option {
	return func(w *Writer) { w.mode = m }
}

// WithAlternateModes restricts RenderMode to the primary mode plus modes.
// Without it every valid mode may be rendered.
func WithAlternateModes(modes ...Mode) Option {
	return func(w *Writer) { w.alternateModes = append([]Mode(nil), modes...) }
}

// WithComments toggles the HTML comments framing the snippet.
func WithComments(enabled bool) Option {
	return func(w *Writer) { w.useComments = enabled }
}

// WithSinglePush emits all ga.js commands in a single `_gaq.push` call.
func WithSinglePush(enabled bool) Option {
	return func(w *Writer) { w.singlePush = enabled }
}

// WithForceSSL makes ga.js send hits over SSL from http pages.
func WithForceSSL(enabled bool) Option {
	return func(w *Writer) { w.forceSSL = enabled }
}

// WithGlobalCustomData registers custom dimensions/metrics on the tracker
// (true) instead of sending them only with the pageview (false).
func WithGlobalCustomData(enabled bool) Option {
	return func(w *Writer) { w.globalCustomData = enabled }
}

// WithDimensionsStrategy selects how gtag.js receives custom dimensions.
func WithDimensionsStrategy(s DimensionsStrategy) Option {
	return func(w *Writer) { w.dimensionsStrategy = s }
}

// WithAMPClientID enables AMP client id integration.
// See https://support.google.com/analytics/answer/7486764
func WithAMPClientID(enabled bool) Option {
	return func(w *Writer) { w.ampClientID = enabled }
}

// WithJSONEncoder overrides the encoder used for JSON payloads.
func WithJSONEncoder(enc JSONEncoder) Option {
	return func(w *Writer) {
		if enc != nil {
			w.encodeJSON = enc
		}
	}
}

// WithLogger routes diagnostics to l.
func WithLogger(l Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// New creates a Writer for accountID (for example "UA-123123-1").
func New(accountID string, opts ...Option) (*Writer, error) {
	w := &Writer{
		mode:               DefaultMode,
		useComments:        true,
		globalCustomData:   true,
		dimensionsStrategy: DimensionsSetConfig,
		encodeJSON:         ASCIIJSON,
		log:                nopLogger{},
		accountID:          accountID,
		dimensions:         make(map[string]Dimension),
		metrics:            make(map[string]Metric),
		transactions:       make(map[string]Fields),
		items:              make(map[string][]Fields),
	}
	for _, opt := range opts {
		opt(w)
	}
	if !w.mode.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(w.mode))
	}
	for _, m := range w.alternateModes {
		if !m.Valid() {
			return nil, fmt.Errorf("alternate mode: %w: %d", ErrInvalidMode, int(m))
		}
	}
	if !w.dimensionsStrategy.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimensionsStrategy, int(w.dimensionsStrategy))
	}
	return w, nil
}

// Mode returns the snippet flavor the writer renders.
func (w *Writer) Mode() Mode { return w.mode }

// AccountID returns the primary property id.
func (w *Writer) AccountID() string { return w.accountID }

// UseComments reports whether rendered snippets are framed by HTML comments.
func (w *Writer) UseComments() bool { return w.useComments }

// SinglePush reports whether ga.js commands are batched into one _gaq.push call.
func (w *Writer) SinglePush() bool { return w.singlePush }

// ForceSSL reports whether ga.js sends hits over SSL from http pages.
func (w *Writer) ForceSSL() bool { return w.forceSSL }

// AMPClientID reports whether AMP client id integration is enabled.
func (w *Writer) AMPClientID() bool { return w.ampClientID }

// GlobalCustomData reports whether gtag custom data is set globally rather
// than per config call.
func (w *Writer) GlobalCustomData() bool { return w.globalCustomData }

// DimensionsStrategy returns how gtag custom dimensions are emitted.
func (w *Writer) DimensionsStrategy() DimensionsStrategy { return w.dimensionsStrategy }

// UserID returns the user id last set, or "".
func (w *Writer) UserID() string { return w.userID }

// SetGlobalCustomData changes where custom data is registered. See
// WithGlobalCustomData.
func (w *Writer) SetGlobalCustomData(enabled bool) { w.globalCustomData = enabled }

// SetDimensionsStrategy changes the gtag.js dimensions strategy.
func (w *Writer) SetDimensionsStrategy(s DimensionsStrategy) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDimensionsStrategy, int(s))
	}
	w.dimensionsStrategy = s
	return nil
}

// SetAccount replaces the primary account id. Prefer passing it to New.
func (w *Writer) SetAccount(accountID string) { w.accountID = accountID }

// AdditionalAccounts returns the secondary accounts in tracker order.
func (w *Writer) AdditionalAccounts() []string {
	return append([]string(nil), w.additionalAccounts...)
}

// AddAdditionalAccount sends the page data to another account as well.
// Adding an account twice is a no-op.
func (w *Writer) AddAdditionalAccount(accountID string) {
	for _, id := range w.additionalAccounts {
		if id == accountID {
			return
		}
	}
	w.additionalAccounts = append(w.additionalAccounts, accountID)
}

// RemoveAdditionalAccount removes a secondary account.
func (w *Writer) RemoveAdditionalAccount(accountID string) {
	kept := w.additionalAccounts[:0]
	for _, id := range w.additionalAccounts {
		if id != accountID {
			kept = append(kept, id)
		}
	}
	w.additionalAccounts = kept
}

// TrackEvent records an event. ga.js and analytics.js need FieldCategory and
// FieldAction; gtag.js only needs FieldAction. Events missing them render as
// comments instead of commands.
//
//	native          | ga.js              | analytics.js    | gtag.js
//	----------------+--------------------+-----------------+----------------
//	action          | action             | eventAction     | event name
//	category        | category           | eventCategory   | {event_category
//	label           | opt_label          | eventLabel      | {event_label
//	value           | opt_value          | eventValue      | {value
//	non_interaction | opt_noninteraction | {nonInteraction | {non_interaction
func (w *Writer) TrackEvent(event Fields) {
	w.events = append(w.events, event.clone())
}

// SetCustomVariable is the ga.js name for SetCustomDimension.
func (w *Writer) SetCustomVariable(slot int, name, value string, scope int) {
	w.SetCustomDimension(strconv.Itoa(slot), name, value, scope)
}

// SetCustomDimension sets a custom dimension. index may carry the
// "dimension" prefix ("dimension9" and "9" address the same slot). The value
// is required; the name is only used by gtag.js custom maps.
func (w *Writer) SetCustomDimension(index, name, value string, scope int) {
	index = strings.TrimPrefix(strings.TrimSpace(index), "dimension")
	w.dimensions[index] = Dimension{Index: index, Name: name, Value: value, Scope: scope}
}

// SetCustomMetric sets a custom metric. index may carry the "metric" prefix.
func (w *Writer) SetCustomMetric(index, name string, value any) {
	index = strings.TrimPrefix(strings.TrimSpace(index), "metric")
	w.metrics[index] = Metric{Index: index, Name: name, Value: value}
}

// SetCrossdomainTracking enables cross-domain tracking. ga.js only uses the
// first domain, to scope its cookie.
func (w *Writer) SetCrossdomainTracking(l Linker) {
	// never nil, so payloads carry "domains":[] rather than null
	l.Domains = append([]string{}, l.Domains...)
	w.linker = &l
}

// SetUserID sets the user id sent with the tracker configuration. The
// feature must be enabled in the analytics admin dashboard.
func (w *Writer) SetUserID(userID string) { w.userID = userID }

// AddTransaction records an ecommerce transaction keyed by FieldID. Adding a
// transaction with an id already present replaces it in place.
//
//	native          | ga.js         | analytics.js | gtag.js
//	----------------+---------------+--------------+----------------
//	id              | transactionId | id           | transaction_id
//	affiliation     | affiliation   | affiliation  | affiliation
//	total           | total         |              |
//	revenue         |               | revenue      | value
//	tax             | tax           | tax          | tax
//	shipping        | shipping      | shipping     | shipping
//	city            | city          |              |
//	state           | state         |              |
//	country         | country       |              |
//	coupon          |               | coupon       | coupon
//	list_name       |               | list         | list_name
//	checkout_step   |               | step         | checkout_step
//	checkout_option |               | option       | checkout_option
//
// total excludes tax and shipping; revenue includes them.
func (w *Writer) AddTransaction(txn Fields) error {
	id := stringify(txn.get(FieldID))
	if id == "" {
		return ErrMissingTransactionID
	}
	txn = txn.clone()
	txn[FieldID] = id
	if _, exists := w.transactions[id]; !exists {
		w.transactionOrder = append(w.transactionOrder, id)
	}
	w.transactions[id] = txn
	return nil
}

// AddTransactionItem records an item of the transaction named by
// FieldTransactionID. The id is required even where the vendor treats it as
// optional.
func (w *Writer) AddTransactionItem(item Fields) error {
	id := stringify(item.get(FieldTransactionID))
	if id == "" {
		return ErrMissingItemTransactionID
	}
	item = item.clone()
	item[FieldTransactionID] = id
	w.items[id] = append(w.items[id], item)
	return nil
}

// sortedDimensions returns dimensions ordered by slot, numerically when the
// slots are numbers.
func (w *Writer) sortedDimensions() []Dimension {
	out := make([]Dimension, 0, len(w.dimensions))
	for _, d := range w.dimensions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return lessIndex(out[i].Index, out[j].Index) })
	return out
}

func (w *Writer) sortedMetrics() []Metric {
	out := make([]Metric, 0, len(w.metrics))
	for _, m := range w.metrics {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return lessIndex(out[i].Index, out[j].Index) })
	return out
}

func lessIndex(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// orphanItems reports whether items were added without any transaction.
func (w *Writer) orphanItems() bool {
	return len(w.transactions) == 0 && len(w.items) > 0
}

func (w *Writer) json(v any) (string, error) {
	b, err := w.encodeJSON(v)
	if err != nil {
		return "", fmt.Errorf("encode analytics payload: %w", err)
	}
	return string(b), nil
}
