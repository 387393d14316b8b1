package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func boolPtr(b bool) *bool { return &b }

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings(map[string]string{
		"g_analytics_writer.account_id":               "UA-123123-1",
		"g_analytics_writer.mode":                     "1",
		"g_analytics_writer.modes_support_alternate":  "4, amp",
		"g_analytics_writer.use_comments":             "off",
		"g_analytics_writer.single_push":              "yes",
		"g_analytics_writer.force_ssl":                "0",
		"g_analytics_writer.global_custom_data":       "True",
		"g_analytics_writer.gtag_dimensions_strategy": "2",
		"g_analytics_writer.amp_clientid_integration": "1",
		"g_analytics_writer.json_dumps_callable":      "ascii",
		"g_analytics_writer.unknown":                  "ignored",
		"other.mode":                                  "999",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, Settings{
		AccountID:          "UA-123123-1",
		Mode:               ModeGAJS,
		AlternateModes:     []Mode{ModeGtag, ModeAMP},
		UseComments:        boolPtr(false),
		SinglePush:         boolPtr(true),
		ForceSSL:           boolPtr(false),
		GlobalCustomData:   boolPtr(true),
		DimensionsStrategy: DimensionsConfigNoPageviewSetEvent,
		AMPClientID:        boolPtr(true),
		JSONEncoder:        "ascii",
	}, s)
}

func TestParseSettings_AlternateModeSeparators(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"space":   "4 5",
		"comma":   "4,5",
		"mixed":   " gtag.js,\tamp ",
		"newline": "4\n5",
		"doubled": "4,, 5",
	}
	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s, err := ParseSettings(map[string]string{"g_analytics_writer.modes_support_alternate": raw}, "")
			require.NoError(t, err)
			assert.Equal(t, []Mode{ModeGtag, ModeAMP}, s.AlternateModes)
		})
	}
}

func TestParseSettings_Errors(t *testing.T) {
	t.Parallel()
	cases := map[string]map[string]string{
		"mode":      {"ga.mode": "3"},
		"alternate": {"ga.modes_support_alternate": "2,x"},
		"bool":      {"ga.use_comments": "maybe"},
		"strategy":  {"ga.gtag_dimensions_strategy": "9"},
	}
	for name, values := range cases {
		values := values
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSettings(values, "ga.")
			require.Error(t, err)
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		s    Settings
		want error
	}{
		{"missing account", Settings{}, ErrMissingAccountID},
		{"bad mode", Settings{AccountID: "UA-1", Mode: 3}, ErrInvalidMode},
		{"bad alternate", Settings{AccountID: "UA-1", AlternateModes: []Mode{0}}, ErrInvalidMode},
		{"bad strategy", Settings{AccountID: "UA-1", DimensionsStrategy: 5}, ErrInvalidDimensionsStrategy},
		{"ok", Settings{AccountID: "UA-1"}, nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.s.Validate()
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
	require.Error(t, Settings{AccountID: "UA-1", JSONEncoder: "xml"}.Validate())
}

func TestSettings_NewWriter(t *testing.T) {
	s := Settings{
		AccountID:   "UA-1",
		Mode:        ModeGtag,
		SinglePush:  boolPtr(true),
		UseComments: boolPtr(false),
		AMPClientID: boolPtr(true),
	}
	w, err := s.NewWriter(WithForceSSL(true))
	require.NoError(t, err)
	assert.Equal(t, ModeGtag, w.Mode())
	// gtag.js cannot single push
	assert.False(t, w.SinglePush())
	assert.False(t, w.UseComments())
	assert.True(t, w.AMPClientID())
	assert.True(t, w.ForceSSL())
	assert.True(t, w.GlobalCustomData())

	w, err = Settings{AccountID: "UA-1", SinglePush: boolPtr(true), Mode: ModeGAJS}.NewWriter()
	require.NoError(t, err)
	assert.True(t, w.SinglePush())

	w, err = Settings{AccountID: "UA-1"}.NewWriter()
	require.NoError(t, err)
	assert.Equal(t, DefaultMode, w.Mode())
}

func TestSettings_YAML(t *testing.T) {
	var s Settings
	err := yaml.Unmarshal([]byte(`
account_id: UA-123123-1
mode: gtag.js
modes_support_alternate: [5, analytics.js]
use_comments: false
gtag_dimensions_strategy: confignopageview_set_event
`), &s)
	require.NoError(t, err)
	assert.Equal(t, ModeGtag, s.Mode)
	assert.Equal(t, []Mode{ModeAMP, ModeAnalytics}, s.AlternateModes)
	assert.Equal(t, boolPtr(false), s.UseComments)
	assert.Nil(t, s.SinglePush)
	assert.Equal(t, DimensionsConfigNoPageviewSetEvent, s.DimensionsStrategy)

	out, err := yaml.Marshal(Settings{AccountID: "UA-1", Mode: ModeAMP})
	require.NoError(t, err)
	assert.Equal(t, "account_id: UA-1\nmode: amp\n", string(out))
}
