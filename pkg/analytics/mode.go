package analytics

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Mode selects the Google tracking library a Writer renders for.
type Mode int

const (
	// ModeGAJS renders the legacy ga.js `_gaq.push` command queue.
	ModeGAJS Mode = 1
	// ModeAnalytics renders analytics.js `ga(...)` commands.
	ModeAnalytics Mode = 2
	// 3 is reserved for a synchronous analytics.js variant.

	// ModeGtag renders gtag.js `gtag(...)` commands.
	ModeGtag Mode = 4
	// ModeAMP renders an <amp-analytics> JSON configuration tag.
	ModeAMP Mode = 5
)

// DefaultMode is used when no mode is configured.
const DefaultMode = ModeAnalytics

var modeNames = map[Mode]string{
	ModeGAJS:      "ga.js",
	ModeAnalytics: "analytics.js",
	ModeGtag:      "gtag.js",
	ModeAMP:       "amp",
}

// Modes lists every valid mode in numeric order.
func Modes() []Mode {
	return []Mode{ModeGAJS, ModeAnalytics, ModeGtag, ModeAMP}
}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// SupportsSinglePush reports whether the mode can emit all commands in one push.
func (m Mode) SupportsSinglePush() bool {
	return m == ModeGAJS
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts either the numeric form ("4") or a library name
// ("gtag.js", "gtag", "analytics", "ga", "amp").
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		m := Mode(n)
		if !m.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidMode, n)
		}
		return m, nil
	}
	switch strings.TrimSuffix(s, ".js") {
	case "ga", "gajs", "ga_js":
		return ModeGAJS, nil
	case "analytics":
		return ModeAnalytics, nil
	case "gtag":
		return ModeGtag, nil
	case "amp":
		return ModeAMP, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// MarshalText implements encoding.TextMarshaler. The zero Mode (unset)
// marshals as an empty string.
func (m Mode) MarshalText() ([]byte, error) {
	if m == 0 {
		return []byte{}, nil
	}
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	if len(bytes.TrimSpace(text)) == 0 {
		*m = 0
		return nil
	}
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// UnmarshalJSON accepts both the numeric and the string form.
func (m *Mode) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	return m.UnmarshalText(bytes.Trim(data, `"`))
}

// DimensionsStrategy controls how gtag.js receives custom dimensions.
//
// With DimensionsSetConfig the values are `set` before `config`, so the
// automatic pageview carries them. With DimensionsConfigNoPageviewSetEvent the
// automatic pageview is disabled and a manual `pageview` event is sent after
// the values are set.
type DimensionsStrategy int

const (
	DimensionsSetConfig                DimensionsStrategy = 1
	DimensionsConfigNoPageviewSetEvent DimensionsStrategy = 2
)

// Valid reports whether s is a known strategy.
func (s DimensionsStrategy) Valid() bool {
	return s == DimensionsSetConfig || s == DimensionsConfigNoPageviewSetEvent
}

func (s DimensionsStrategy) String() string {
	switch s {
	case DimensionsSetConfig:
		return "set_config"
	case DimensionsConfigNoPageviewSetEvent:
		return "confignopageview_set_event"
	}
	return fmt.Sprintf("DimensionsStrategy(%d)", int(s))
}

// ParseDimensionsStrategy accepts the numeric or named form.
func ParseDimensionsStrategy(s string) (DimensionsStrategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		ds := DimensionsStrategy(n)
		if !ds.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidDimensionsStrategy, n)
		}
		return ds, nil
	}
	switch s {
	case "set_config":
		return DimensionsSetConfig, nil
	case "confignopageview_set_event":
		return DimensionsConfigNoPageviewSetEvent, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDimensionsStrategy, s)
}

// MarshalText implements encoding.TextMarshaler.
func (s DimensionsStrategy) MarshalText() ([]byte, error) {
	if s == 0 {
		return []byte{}, nil
	}
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimensionsStrategy, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DimensionsStrategy) UnmarshalText(text []byte) error {
	if len(bytes.TrimSpace(text)) == 0 {
		*s = 0
		return nil
	}
	parsed, err := ParseDimensionsStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalJSON accepts both the numeric and the string form.
func (s *DimensionsStrategy) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	return s.UnmarshalText(bytes.Trim(data, `"`))
}
