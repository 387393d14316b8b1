package analytics

import "sort"

// Field names a native tracking field. Renderers translate native fields into
// the vendor keys or positional arguments each mode expects; fields a mode
// has no mapping for are left out of that mode's output.
type Field string

// Fields holds the values of one tracking intent. Values may be strings,
// integers, floats, booleans or nil; nil is treated as "not set".
type Fields map[Field]any

// Event fields.
const (
	FieldAction         Field = "action"
	FieldCategory       Field = "category"
	FieldLabel          Field = "label"
	FieldValue          Field = "value"
	FieldNonInteraction Field = "non_interaction"
)

// Transaction fields. FieldCategory is shared with transaction items.
const (
	FieldID             Field = "id"
	FieldAffiliation    Field = "affiliation"
	FieldTotal          Field = "total"
	FieldRevenue        Field = "revenue"
	FieldTax            Field = "tax"
	FieldShipping       Field = "shipping"
	FieldCity           Field = "city"
	FieldState          Field = "state"
	FieldCountry        Field = "country"
	FieldCoupon         Field = "coupon"
	FieldListName       Field = "list_name"
	FieldCheckoutStep   Field = "checkout_step"
	FieldCheckoutOption Field = "checkout_option"
)

// Transaction item fields.
const (
	FieldTransactionID Field = "transaction_id"
	FieldSKU           Field = "sku"
	FieldName          Field = "name"
	FieldPrice         Field = "price"
	FieldQuantity      Field = "quantity"
	FieldBrand         Field = "brand"
	FieldVariant       Field = "variant"
	FieldListPosition  Field = "list_position"
)

// get returns the value for f, treating a missing key like nil.
func (f Fields) get(field Field) any {
	if f == nil {
		return nil
	}
	return f[field]
}

func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

type concept int

const (
	conceptEvent concept = iota
	conceptTransaction
	conceptTransactionItem
)

// dropKey marks a field that exists for a mode but must not be emitted.
const dropKey = "-"

// translations maps concept -> native field -> mode -> vendor key.
var translations = map[concept]map[Field]map[Mode]string{
	conceptEvent: {
		FieldAction:         {ModeAnalytics: "eventAction"},
		FieldCategory:       {ModeAnalytics: "eventCategory", ModeGtag: "event_category"},
		FieldLabel:          {ModeAnalytics: "eventLabel", ModeGtag: "event_label"},
		FieldValue:          {ModeAnalytics: "eventValue", ModeGtag: "value"},
		FieldNonInteraction: {ModeAnalytics: "nonInteraction", ModeGtag: "non_interaction"},
	},
	conceptTransaction: {
		FieldID:             {ModeGAJS: "transactionId", ModeAnalytics: "id", ModeGtag: "transaction_id"},
		FieldAffiliation:    {ModeGAJS: "affiliation", ModeAnalytics: "affiliation", ModeGtag: "affiliation"},
		FieldTotal:          {ModeGAJS: "total"},
		FieldRevenue:        {ModeAnalytics: "revenue", ModeGtag: "value"},
		FieldTax:            {ModeGAJS: "tax", ModeAnalytics: "tax", ModeGtag: "tax"},
		FieldShipping:       {ModeGAJS: "shipping", ModeAnalytics: "shipping", ModeGtag: "shipping"},
		FieldCity:           {ModeAnalytics: "city"},
		FieldState:          {ModeAnalytics: "state"},
		FieldCountry:        {ModeAnalytics: "country"},
		FieldCoupon:         {ModeAnalytics: "coupon", ModeGtag: "coupon"},
		FieldListName:       {ModeAnalytics: "list", ModeGtag: "list_name"},
		FieldCheckoutStep:   {ModeAnalytics: "step", ModeGtag: "checkout_step"},
		FieldCheckoutOption: {ModeAnalytics: "option", ModeGtag: "checkout_option"},
	},
	conceptTransactionItem: {
		FieldTransactionID: {ModeGAJS: "transactionId", ModeAnalytics: "id", ModeGtag: dropKey},
		FieldSKU:           {ModeGAJS: "sku", ModeAnalytics: "sku", ModeGtag: "id"},
		FieldName:          {ModeGAJS: "name", ModeAnalytics: "name", ModeGtag: "name"},
		FieldCategory:      {ModeGAJS: "category", ModeAnalytics: "category", ModeGtag: "category"},
		FieldPrice:         {ModeGAJS: "price", ModeAnalytics: "price", ModeGtag: "price"},
		FieldQuantity:      {ModeGAJS: "quantity", ModeAnalytics: "quantity", ModeGtag: "quantity"},
		FieldBrand:         {ModeGtag: "brand"},
		FieldVariant:       {ModeGtag: "variant"},
		FieldCoupon:        {ModeGtag: "coupon"},
		FieldListPosition:  {ModeGtag: "list_position"},
	},
}

// requirement describes which fields a mode needs and, for positional
// calling conventions, the argument order.
type requirement struct {
	required []Field
	optional []Field
	order    []Field
}

var requirements = map[concept]map[Mode]requirement{
	conceptTransaction: {
		ModeGAJS: {
			required: []Field{FieldID, FieldTotal},
			optional: []Field{FieldAffiliation, FieldTax, FieldShipping, FieldCity, FieldState, FieldCountry},
			order:    []Field{FieldID, FieldAffiliation, FieldTotal, FieldTax, FieldShipping, FieldCity, FieldState, FieldCountry},
		},
		ModeAnalytics: {
			required: []Field{FieldID},
			optional: []Field{FieldAffiliation, FieldRevenue, FieldTax, FieldShipping, FieldCoupon, FieldListName, FieldCheckoutStep, FieldCheckoutOption},
		},
		ModeGtag: {
			required: []Field{FieldID},
			optional: []Field{FieldAffiliation, FieldRevenue, FieldTax, FieldShipping, FieldCoupon, FieldListName, FieldCheckoutStep, FieldCheckoutOption},
		},
	},
	conceptTransactionItem: {
		ModeGAJS: {
			required: []Field{FieldTransactionID, FieldSKU, FieldName, FieldPrice, FieldQuantity},
			optional: []Field{FieldCategory},
			order:    []Field{FieldTransactionID, FieldSKU, FieldName, FieldCategory, FieldPrice, FieldQuantity},
		},
		ModeAnalytics: {
			required: []Field{FieldTransactionID, FieldSKU, FieldName},
			optional: []Field{FieldCategory, FieldPrice, FieldQuantity},
		},
		ModeGtag: {
			required: []Field{FieldTransactionID, FieldSKU, FieldName},
			optional: []Field{FieldCategory, FieldPrice, FieldQuantity, FieldBrand, FieldVariant, FieldCoupon, FieldListPosition},
		},
	},
}

// hasRequired reports whether every required field of c for mode m is set.
func hasRequired(c concept, m Mode, f Fields) bool {
	for _, field := range requirements[c][m].required {
		if f.get(field) == nil {
			return false
		}
	}
	return true
}

// unknownFields lists the fields of f that mode m neither requires nor accepts.
func unknownFields(c concept, m Mode, f Fields) []Field {
	req := requirements[c][m]
	var out []Field
	for field := range f {
		if !containsField(req.required, field) && !containsField(req.optional, field) {
			out = append(out, field)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func containsField(fields []Field, f Field) bool {
	for _, field := range fields {
		if field == f {
			return true
		}
	}
	return false
}

// toAPI translates f into the vendor keys of mode m. Unknown fields and
// fields dropped for the mode are skipped.
func toAPI(c concept, m Mode, f Fields) map[string]any {
	out := make(map[string]any, len(f))
	for field, value := range f {
		key, ok := translations[c][field][m]
		if !ok || key == dropKey || value == nil {
			continue
		}
		out[key] = value
	}
	return out
}
