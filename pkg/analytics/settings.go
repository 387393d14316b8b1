package analytics

import (
	"fmt"
	"strings"
	"unicode"
)

// SettingsPrefix is the key prefix of the flat settings form.
const SettingsPrefix = "g_analytics_writer."

// Settings is the deployment configuration of a Writer, in the same keys as
// the flat form read by ParseSettings. Nil booleans and zero values keep the
// writer defaults.
type Settings struct {
	AccountID          string             `yaml:"account_id" json:"account_id"`
	Mode               Mode               `yaml:"mode,omitempty" json:"mode,omitempty"`
	AlternateModes     []Mode             `yaml:"modes_support_alternate,omitempty" json:"modes_support_alternate,omitempty"`
	UseComments        *bool              `yaml:"use_comments,omitempty" json:"use_comments,omitempty"`
	SinglePush         *bool              `yaml:"single_push,omitempty" json:"single_push,omitempty"`
	ForceSSL           *bool              `yaml:"force_ssl,omitempty" json:"force_ssl,omitempty"`
	GlobalCustomData   *bool              `yaml:"global_custom_data,omitempty" json:"global_custom_data,omitempty"`
	DimensionsStrategy DimensionsStrategy `yaml:"gtag_dimensions_strategy,omitempty" json:"gtag_dimensions_strategy,omitempty"`
	AMPClientID        *bool              `yaml:"amp_clientid_integration,omitempty" json:"amp_clientid_integration,omitempty"`
	JSONEncoder        string             `yaml:"json_encoder,omitempty" json:"json_encoder,omitempty"`
}

// ParseSettings reads settings from a flat key/value map such as an INI
// section ("g_analytics_writer.mode = 4"). An empty prefix means
// SettingsPrefix. Unknown keys are ignored.
func ParseSettings(values map[string]string, prefix string) (Settings, error) {
	if prefix == "" {
		prefix = SettingsPrefix
	}
	var s Settings
	for key, raw := range values {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		raw = strings.TrimSpace(raw)
		var err error
		switch name := strings.TrimPrefix(key, prefix); name {
		case "account_id":
			s.AccountID = raw
		case "mode":
			s.Mode, err = ParseMode(raw)
		case "modes_support_alternate":
			s.AlternateModes, err = parseModeList(raw)
		case "use_comments":
			s.UseComments, err = parseBool(raw)
		case "single_push":
			s.SinglePush, err = parseBool(raw)
		case "force_ssl":
			s.ForceSSL, err = parseBool(raw)
		case "global_custom_data":
			s.GlobalCustomData, err = parseBool(raw)
		case "gtag_dimensions_strategy":
			s.DimensionsStrategy, err = ParseDimensionsStrategy(raw)
		case "amp_clientid_integration":
			s.AMPClientID, err = parseBool(raw)
		case "json_encoder", "json_dumps_callable":
			s.JSONEncoder = raw
		default:
			continue
		}
		if err != nil {
			return Settings{}, fmt.Errorf("%s%s: %w", prefix, strings.TrimPrefix(key, prefix), err)
		}
	}
	return s, nil
}

func parseModeList(raw string) ([]Mode, error) {
	var modes []Mode
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	for _, part := range parts {
		m, err := ParseMode(part)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// parseBool accepts the usual truthy spellings: true/false, yes/no, on/off,
// y/n, t/f and 1/0.
func parseBool(raw string) (*bool, error) {
	var v bool
	switch strings.ToLower(raw) {
	case "true", "yes", "on", "y", "t", "1":
		v = true
	case "false", "no", "off", "n", "f", "0":
		v = false
	default:
		return nil, fmt.Errorf("invalid boolean %q", raw)
	}
	return &v, nil
}

// Validate reports the first configuration error.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.AccountID) == "" {
		return ErrMissingAccountID
	}
	if s.Mode != 0 && !s.Mode.Valid() {
		return fmt.Errorf("mode: %w: %d", ErrInvalidMode, int(s.Mode))
	}
	for _, m := range s.AlternateModes {
		if !m.Valid() {
			return fmt.Errorf("modes_support_alternate: %w: %d", ErrInvalidMode, int(m))
		}
	}
	if s.DimensionsStrategy != 0 && !s.DimensionsStrategy.Valid() {
		return fmt.Errorf("gtag_dimensions_strategy: %w: %d", ErrInvalidDimensionsStrategy, int(s.DimensionsStrategy))
	}
	if _, err := JSONEncoderByName(s.JSONEncoder); err != nil {
		return fmt.Errorf("json_encoder: %w", err)
	}
	return nil
}

// EffectiveMode is the configured mode, or DefaultMode when unset.
func (s Settings) EffectiveMode() Mode {
	if s.Mode == 0 {
		return DefaultMode
	}
	return s.Mode
}

// Options converts the settings into writer options. single_push is dropped
// for modes that cannot use it.
func (s Settings) Options() ([]Option, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	mode := s.EffectiveMode()
	enc, _ := JSONEncoderByName(s.JSONEncoder)
	opts := []Option{WithMode(mode), WithJSONEncoder(enc)}
	if len(s.AlternateModes) > 0 {
		opts = append(opts, WithAlternateModes(s.AlternateModes...))
	}
	if s.UseComments != nil {
		opts = append(opts, WithComments(*s.UseComments))
	}
	if s.SinglePush != nil && mode.SupportsSinglePush() {
		opts = append(opts, WithSinglePush(*s.SinglePush))
	}
	if s.ForceSSL != nil {
		opts = append(opts, WithForceSSL(*s.ForceSSL))
	}
	if s.GlobalCustomData != nil {
		opts = append(opts, WithGlobalCustomData(*s.GlobalCustomData))
	}
	if s.DimensionsStrategy != 0 {
		opts = append(opts, WithDimensionsStrategy(s.DimensionsStrategy))
	}
	if s.AMPClientID != nil {
		opts = append(opts, WithAMPClientID(*s.AMPClientID))
	}
	return opts, nil
}

// NewWriter creates a writer from the settings; extra options are applied
// after the settings.
func (s Settings) NewWriter(extra ...Option) (*Writer, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}
	return New(s.AccountID, append(opts, extra...)...)
}
