package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Platform types understood by the CLI.
const (
	PlatformTwitch = "twitch"
	PlatformHTTP   = "http"
)

// Config holds CLI configuration for golive.
type Config struct {
	StatusDir   string
	LogLevel    string
	MetricsAddr string
	HTTPTimeout time.Duration

	// Yes confirms the prepopulated settings without prompting.
	Yes bool

	// Watch reloads the [stream] section while awaiting confirmation.
	Watch bool

	Stream    StreamConfig
	OBS       OBSConfig
	Platforms []PlatformConfig
}

// StreamConfig is the base stream settings.
type StreamConfig struct {
	Title      string
	Category   string
	Resolution string
	MaxViewers int
	Secret     bool
	Password   string
	AdultOnly  bool
	MinRank    int
}

// OBSConfig configures the obs-websocket transmitter.
type OBSConfig struct {
	URL      string
	Password string
	Timeout  time.Duration
}

// FieldConfig declares one platform specific field of an http platform.
type FieldConfig struct {
	Kind     string   `toml:"kind"`
	Required bool     `toml:"required"`
	Options  []string `toml:"options"`
	Min      int      `toml:"min"`
	Max      int      `toml:"max"`
}

// PlatformConfig describes one streaming destination.
type PlatformConfig struct {
	Type string `toml:"type"`
	ID   string `toml:"id"`

	// Enabled defaults to true when omitted.
	Enabled  *bool `toml:"enabled"`
	Required bool  `toml:"required"`

	// CustomFields lets Fields replace the shared title, category,
	// resolution and max viewers.
	CustomFields bool           `toml:"custom_fields"`
	Fields       map[string]any `toml:"fields"`

	// http platforms.
	BaseURL    string                 `toml:"base_url"`
	Token      string                 `toml:"token"`
	MaxRetries int                    `toml:"max_retries"`
	Schema     map[string]FieldConfig `toml:"schema"`

	// twitch.
	ClientID      string `toml:"client_id"`
	BroadcasterID string `toml:"broadcaster_id"`
	APIBaseURL    string `toml:"api_base_url"`
}

// IsEnabled reports whether the platform takes part in go-live.
func (p PlatformConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel:    "info",
		HTTPTimeout: 15 * time.Second,
		OBS: OBSConfig{
			URL:     "ws://127.0.0.1:4455",
			Timeout: 10 * time.Second,
		},
		StatusDir: "", // Derived during Validate
	}
}

// DefaultStatusDir returns ~/.golive, or the working directory when the home
// directory is not accessible.
func DefaultStatusDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".golive")
	}
	return "."
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.StatusDir == "" {
		c.StatusDir = DefaultStatusDir()
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if len(c.Platforms) == 0 {
		return fmt.Errorf("at least one [[platforms]] entry is required")
	}

	seen := make(map[string]bool, len(c.Platforms))
	for i := range c.Platforms {
		p := &c.Platforms[i]
		if p.ID == "" {
			p.ID = p.Type
		}
		if seen[p.ID] {
			return fmt.Errorf("platform %q configured twice", p.ID)
		}
		seen[p.ID] = true

		switch p.Type {
		case PlatformTwitch:
			if p.ClientID == "" || p.BroadcasterID == "" {
				return fmt.Errorf("platform %s: client_id and broadcaster_id are required", p.ID)
			}
		case PlatformHTTP:
			if p.BaseURL == "" {
				return fmt.Errorf("platform %s: base_url is required", p.ID)
			}
			p.BaseURL = strings.TrimRight(p.BaseURL, "/")
			for name, f := range p.Schema {
				if _, err := parseKind(f.Kind); err != nil {
					return fmt.Errorf("platform %s: field %s: %w", p.ID, name, err)
				}
			}
		default:
			return fmt.Errorf("platform %s: unknown type %q (want %s or %s)", p.ID, p.Type, PlatformTwitch, PlatformHTTP)
		}
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
