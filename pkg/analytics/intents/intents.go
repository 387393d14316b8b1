// Package intents loads the tracking intents of a page from YAML and applies
// them to an analytics.Writer.
//
//	additional_accounts: [UA-123123-2]
//	user_id: cecil
//	crossdomain:
//	  domains: [foo.example.com, bar.example.com]
//	dimensions:
//	  - {index: 9, name: author, value: jonathan}
//	events:
//	  - {category: Videos, action: Play, label: action, value: 47}
//	transactions:
//	  - id: "1234"
//	    revenue: "115.00"
//	    items:
//	      - {sku: DD44, name: T-Shirt, price: "100.00", quantity: "1"}
package intents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/getlawrence/gawriter/pkg/analytics"
)

// Document describes everything tracked on one page.
type Document struct {
	AccountID          string           `yaml:"account_id,omitempty"`
	AdditionalAccounts []string         `yaml:"additional_accounts,omitempty"`
	UserID             string           `yaml:"user_id,omitempty"`
	Crossdomain        *Crossdomain     `yaml:"crossdomain,omitempty"`
	Dimensions         []Dimension      `yaml:"dimensions,omitempty"`
	Metrics            []Metric         `yaml:"metrics,omitempty"`
	Events             []map[string]any `yaml:"events,omitempty"`
	Transactions       []Transaction    `yaml:"transactions,omitempty"`
}

// Crossdomain configures the linker for sharing sessions across domains.
type Crossdomain struct {
	Domains        []string `yaml:"domains"`
	DecorateForms  bool     `yaml:"decorate_forms,omitempty"`
	AcceptIncoming bool     `yaml:"accept_incoming,omitempty"`
}

// Dimension is a custom dimension. Index is its slot number.
type Dimension struct {
	Index string `yaml:"index"`
	Name  string `yaml:"name,omitempty"`
	Value string `yaml:"value"`
	Scope int    `yaml:"scope,omitempty"`
}

// Metric is a custom metric. Value is usually numeric.
type Metric struct {
	Index string `yaml:"index"`
	Name  string `yaml:"name,omitempty"`
	Value any    `yaml:"value"`
}

// Transaction holds the native transaction fields plus its items. Items
// without a transaction_id inherit the transaction's id.
type Transaction struct {
	Fields map[string]any   `yaml:",inline"`
	Items  []map[string]any `yaml:"items,omitempty"`
}

// Load reads a Document from a YAML file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intents file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a Document. Unknown top-level keys are rejected.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse intents: %w", err)
	}
	return doc, nil
}

// Apply records the document on w. It stops at the first intent the writer
// rejects.
func (d *Document) Apply(w *analytics.Writer) error {
	if d.AccountID != "" {
		w.SetAccount(d.AccountID)
	}
	for _, id := range d.AdditionalAccounts {
		w.AddAdditionalAccount(id)
	}
	if d.UserID != "" {
		w.SetUserID(d.UserID)
	}
	if d.Crossdomain != nil {
		w.SetCrossdomainTracking(analytics.Linker{
			Domains:        d.Crossdomain.Domains,
			DecorateForms:  d.Crossdomain.DecorateForms,
			AcceptIncoming: d.Crossdomain.AcceptIncoming,
		})
	}
	for _, dim := range d.Dimensions {
		w.SetCustomDimension(dim.Index, dim.Name, dim.Value, dim.Scope)
	}
	for _, m := range d.Metrics {
		w.SetCustomMetric(m.Index, m.Name, m.Value)
	}
	for _, ev := range d.Events {
		w.TrackEvent(toFields(ev))
	}
	for i, txn := range d.Transactions {
		fields := toFields(txn.Fields)
		if err := w.AddTransaction(fields); err != nil {
			return fmt.Errorf("transactions[%d]: %w", i, err)
		}
		for j, item := range txn.Items {
			itemFields := toFields(item)
			if _, ok := itemFields[analytics.FieldTransactionID]; !ok {
				itemFields[analytics.FieldTransactionID] = fields[analytics.FieldID]
			}
			if err := w.AddTransactionItem(itemFields); err != nil {
				return fmt.Errorf("transactions[%d].items[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

func toFields(m map[string]any) analytics.Fields {
	out := make(analytics.Fields, len(m))
	for k, v := range m {
		out[analytics.Field(k)] = v
	}
	return out
}
