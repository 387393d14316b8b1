package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// jsUndefined is the JavaScript keyword used for positional gaps.
const jsUndefined = "undefined"

// JSONEncoder serializes field objects and configuration payloads. The
// returned bytes are embedded verbatim into the rendered snippet.
type JSONEncoder func(v any) ([]byte, error)

// CompactJSON is a JSONEncoder with compact separators, map keys in sorted
// order, and HTML-sensitive characters escaped so payloads are safe inside
// <script> elements. Non-ASCII text is emitted as UTF-8.
func CompactJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ASCIIJSON is the default JSONEncoder. It is like CompactJSON but escapes
// every non-ASCII character as a \uXXXX sequence, so payloads survive pages
// served without a UTF-8 charset.
func ASCIIJSON(v any) ([]byte, error) {
	b, err := CompactJSON(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, r := range string(b) {
		switch {
		case r < utf8.RuneSelf:
			buf.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&buf, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&buf, `\u%04x`, r)
		}
	}
	return buf.Bytes(), nil
}

// JSONEncoderByName resolves the encoder names accepted in settings:
// "ascii" (or "") and "compact".
func JSONEncoderByName(name string) (JSONEncoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ascii":
		return ASCIIJSON, nil
	case "compact":
		return CompactJSON, nil
	}
	return nil, fmt.Errorf("unknown json encoder %q", name)
}

// jsEscaper escapes text for a single-quoted JavaScript string literal that
// lives inside an HTML <script> element.
var jsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"<", `\x3C`,
	">", `\x3E`,
)

// jsString quotes s as a single-quoted JavaScript string literal.
func jsString(s string) string {
	return "'" + jsEscaper.Replace(s) + "'"
}

// formatArg renders one positional argument: nil becomes undefined, numbers
// and booleans are emitted bare, anything else is quoted as a string.
func formatArg(v any) string {
	switch val := v.(type) {
	case nil:
		return jsUndefined
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case string:
		return jsString(val)
	case fmt.Stringer:
		return jsString(val.String())
	default:
		return jsString(fmt.Sprint(val))
	}
}

// orderedArgs builds positional arguments from f following order.
func orderedArgs(f Fields, order []Field) []string {
	args := make([]string, 0, len(order))
	for _, field := range order {
		args = append(args, formatArg(f.get(field)))
	}
	return args
}

// trimUndefined drops trailing undefined arguments. A list made only of
// undefined values becomes empty.
func trimUndefined(args []string) []string {
	last := -1
	for i, arg := range args {
		if arg != jsUndefined {
			last = i
		}
	}
	return args[:last+1]
}

// stringify normalizes an identifier value (transaction ids) to a string.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// truthy mirrors the "is set and non-empty" checks used for required event
// fields.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case int:
		return val != 0
	case int8:
		return val != 0
	case int16:
		return val != 0
	case int32:
		return val != 0
	case int64:
		return val != 0
	case uint:
		return val != 0
	case uint8:
		return val != 0
	case uint16:
		return val != 0
	case uint32:
		return val != 0
	case uint64:
		return val != 0
	case float32:
		return val != 0
	case float64:
		return val != 0
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// trackerName returns the tracker name and command prefix for the n-th
// additional account. The primary account (n < 0) has neither.
func trackerName(n int) (name, prefix string) {
	if n < 0 {
		return "", ""
	}
	name = "trkr" + strconv.Itoa(n)
	return name, name + "."
}
