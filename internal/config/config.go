package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/getlawrence/gawriter/pkg/analytics"
)

// EnvPrefix prefixes every environment override, e.g. GAWRITER_ANALYTICS_MODE.
const EnvPrefix = "GAWRITER_"

// Config represents the gawriter configuration
type Config struct {
	// Writer settings shared by render, inject and serve
	Analytics analytics.Settings `json:"analytics" yaml:"analytics"`

	// Page discovery settings
	Scan ScanConfig `json:"scan" yaml:"scan"`

	// Preview server settings
	Serve ServeConfig `json:"serve" yaml:"serve"`

	// Output settings
	Output OutputConfig `json:"output" yaml:"output"`
}

// ScanConfig controls which files are treated as pages
type ScanConfig struct {
	// Paths to exclude from discovery (directory or file base names, or globs)
	ExcludePaths []string `json:"exclude_paths" yaml:"exclude_paths" env:"EXCLUDE_PATHS" envSeparator:","`

	// Maximum depth for directory traversal
	MaxDepth int `json:"max_depth" yaml:"max_depth" env:"MAX_DEPTH"`

	// Whether hidden files and directories are scanned
	IncludeHidden bool `json:"include_hidden" yaml:"include_hidden" env:"INCLUDE_HIDDEN"`
}

// ServeConfig contains preview server settings
type ServeConfig struct {
	// Listen address
	Addr string `json:"addr" yaml:"addr" env:"ADDR"`

	// Directory of pages served by the preview server
	Root string `json:"root" yaml:"root" env:"ROOT"`

	// Intents file applied to every previewed page
	Intents string `json:"intents" yaml:"intents" env:"INTENTS"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	// Default output format (text, json, yaml)
	Format string `json:"format" yaml:"format" env:"FORMAT"`

	// Whether to colorize output
	Color bool `json:"color" yaml:"color" env:"COLOR"`
}

// analyticsEnv mirrors analytics.Settings as plain strings so unset
// variables can be told apart from false/zero values.
type analyticsEnv struct {
	AccountID              string `env:"ACCOUNT_ID"`
	Mode                   string `env:"MODE"`
	ModesSupportAlternate  string `env:"MODES_SUPPORT_ALTERNATE"`
	UseComments            string `env:"USE_COMMENTS"`
	SinglePush             string `env:"SINGLE_PUSH"`
	ForceSSL               string `env:"FORCE_SSL"`
	GlobalCustomData       string `env:"GLOBAL_CUSTOM_DATA"`
	GtagDimensionsStrategy string `env:"GTAG_DIMENSIONS_STRATEGY"`
	AMPClientIDIntegration string `env:"AMP_CLIENTID_INTEGRATION"`
	JSONEncoder            string `env:"JSON_ENCODER"`
}

func (a analyticsEnv) values() map[string]string {
	out := make(map[string]string)
	add := func(key, v string) {
		if v != "" {
			out[analytics.SettingsPrefix+key] = v
		}
	}
	add("account_id", a.AccountID)
	add("mode", a.Mode)
	add("modes_support_alternate", a.ModesSupportAlternate)
	add("use_comments", a.UseComments)
	add("single_push", a.SinglePush)
	add("force_ssl", a.ForceSSL)
	add("global_custom_data", a.GlobalCustomData)
	add("gtag_dimensions_strategy", a.GtagDimensionsStrategy)
	add("amp_clientid_integration", a.AMPClientIDIntegration)
	add("json_encoder", a.JSONEncoder)
	return out
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Analytics: analytics.Settings{
			Mode: analytics.DefaultMode,
		},
		Scan: ScanConfig{
			ExcludePaths: []string{
				".git",
				"node_modules",
				"vendor",
				"bower_components",
				"build",
				"dist",
				"target",
			},
			MaxDepth: 10,
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:8080",
			Root: ".",
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// LoadConfig loads configuration from a file, then applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := unmarshal(configPath, data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

func unmarshal(path string, data []byte, config *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, config)
	}
	return yaml.Unmarshal(data, config)
}

// ApplyEnv overrides config with GAWRITER_* environment variables.
func ApplyEnv(config *Config) error {
	sections := []struct {
		prefix string
		target any
	}{
		{EnvPrefix + "SCAN_", &config.Scan},
		{EnvPrefix + "SERVE_", &config.Serve},
		{EnvPrefix + "OUTPUT_", &config.Output},
	}
	for _, s := range sections {
		if err := env.ParseWithOptions(s.target, env.Options{Prefix: s.prefix}); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}

	var raw analyticsEnv
	if err := env.ParseWithOptions(&raw, env.Options{Prefix: EnvPrefix + "ANALYTICS_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	override, err := analytics.ParseSettings(raw.values(), "")
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	config.Analytics = mergeSettings(config.Analytics, override)
	return nil
}

// mergeSettings returns base with every field set in override replaced.
func mergeSettings(base, override analytics.Settings) analytics.Settings {
	if override.AccountID != "" {
		base.AccountID = override.AccountID
	}
	if override.Mode != 0 {
		base.Mode = override.Mode
	}
	if override.AlternateModes != nil {
		base.AlternateModes = override.AlternateModes
	}
	if override.UseComments != nil {
		base.UseComments = override.UseComments
	}
	if override.SinglePush != nil {
		base.SinglePush = override.SinglePush
	}
	if override.ForceSSL != nil {
		base.ForceSSL = override.ForceSSL
	}
	if override.GlobalCustomData != nil {
		base.GlobalCustomData = override.GlobalCustomData
	}
	if override.DimensionsStrategy != 0 {
		base.DimensionsStrategy = override.DimensionsStrategy
	}
	if override.AMPClientID != nil {
		base.AMPClientID = override.AMPClientID
	}
	if override.JSONEncoder != "" {
		base.JSONEncoder = override.JSONEncoder
	}
	return base
}

// SaveConfig saves configuration to a file, as JSON when the path ends in
// .json and YAML otherwise.
func SaveConfig(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(configPath), ".json") {
		data, err = json.MarshalIndent(config, "", "  ")
	} else {
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var configNames = []string{".gawriter.yaml", ".gawriter.yml", ".gawriter.json"}

// findConfigFile looks for config files in common locations
func findConfigFile() string {
	for _, candidate := range configNames {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		for _, name := range configNames {
			candidate := filepath.Join(homeDir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}

	return ""
}

// GetConfigPath returns the config file path to use
func GetConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if found := findConfigFile(); found != "" {
		return found
	}

	return configNames[0]
}
