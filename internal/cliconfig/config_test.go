package cliconfig

import (
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/golive/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v, want 15s", cfg.HTTPTimeout)
	}
	if cfg.OBS.URL != "ws://127.0.0.1:4455" {
		t.Errorf("OBS.URL = %v, want ws://127.0.0.1:4455", cfg.OBS.URL)
	}
	if cfg.Yes {
		t.Error("Yes should default to false")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "valid twitch and http platforms",
			config: Config{
				HTTPTimeout: time.Second,
				Platforms: []PlatformConfig{
					{Type: PlatformTwitch, ClientID: "abc", BroadcasterID: "1"},
					{Type: PlatformHTTP, ID: "flextv", BaseURL: "https://api.flextv.example/"},
				},
			},
		},
		{
			name:    "no platforms",
			config:  Config{HTTPTimeout: time.Second},
			wantErr: "at least one",
		},
		{
			name: "twitch without broadcaster",
			config: Config{
				HTTPTimeout: time.Second,
				Platforms:   []PlatformConfig{{Type: PlatformTwitch, ClientID: "abc"}},
			},
			wantErr: "broadcaster_id",
		},
		{
			name: "http without base url",
			config: Config{
				HTTPTimeout: time.Second,
				Platforms:   []PlatformConfig{{Type: PlatformHTTP, ID: "flextv"}},
			},
			wantErr: "base_url",
		},
		{
			name: "unknown type",
			config: Config{
				HTTPTimeout: time.Second,
				Platforms:   []PlatformConfig{{Type: "rtmp", ID: "x"}},
			},
			wantErr: "unknown type",
		},
		{
			name: "duplicate ids",
			config: Config{
				HTTPTimeout: time.Second,
				Platforms: []PlatformConfig{
					{Type: PlatformHTTP, ID: "a", BaseURL: "http://a"},
					{Type: PlatformHTTP, ID: "a", BaseURL: "http://b"},
				},
			},
			wantErr: "configured twice",
		},
		{
			name: "bad field kind",
			config: Config{
				HTTPTimeout: time.Second,
				Platforms: []PlatformConfig{{
					Type:    PlatformHTTP,
					ID:      "flextv",
					BaseURL: "http://a",
					Schema:  map[string]FieldConfig{"minAge": {Kind: "float"}},
				}},
			},
			wantErr: "unknown field kind",
		},
		{
			name: "non-positive timeout",
			config: Config{
				Platforms: []PlatformConfig{{Type: PlatformHTTP, ID: "a", BaseURL: "http://a"}},
			},
			wantErr: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDerivesDefaults(t *testing.T) {
	cfg := Config{
		HTTPTimeout: time.Second,
		Platforms: []PlatformConfig{
			{Type: PlatformTwitch, ClientID: "abc", BroadcasterID: "1"},
			{Type: PlatformHTTP, ID: "flextv", BaseURL: "https://api.flextv.example/"},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	if cfg.StatusDir == "" {
		t.Error("StatusDir should be derived")
	}
	if cfg.Platforms[0].ID != PlatformTwitch {
		t.Errorf("twitch ID = %v, want twitch", cfg.Platforms[0].ID)
	}
	if cfg.Platforms[1].BaseURL != "https://api.flextv.example" {
		t.Errorf("BaseURL = %v, want trailing slash removed", cfg.Platforms[1].BaseURL)
	}
}

func TestConfig_StreamSettings(t *testing.T) {
	disabled := false
	cfg := Config{
		Stream: StreamConfig{
			Title:     "Friday night",
			Category:  "talk",
			Secret:    true,
			Password:  "pw",
			AdultOnly: true,
			MinRank:   2,
		},
		Platforms: []PlatformConfig{
			{Type: PlatformTwitch, ID: "twitch", Required: true, Fields: map[string]any{"language": "de"}},
			{Type: PlatformHTTP, ID: "flextv", Enabled: &disabled, CustomFields: true, Fields: map[string]any{"title": "Own title"}},
		},
	}

	s := cfg.StreamSettings()

	if s.Title != "Friday night" || s.Category != "talk" {
		t.Errorf("base = %q/%q", s.Title, s.Category)
	}
	if s.Visibility != (domain.Visibility{Secret: true, Password: "pw"}) {
		t.Errorf("Visibility = %+v", s.Visibility)
	}
	if s.Audience != (domain.Audience{AdultOnly: true, MinRank: 2}) {
		t.Errorf("Audience = %+v", s.Audience)
	}

	tw := s.Overrides["twitch"]
	if !tw.Enabled || !tw.Required || tw.Fields["language"] != "de" {
		t.Errorf("twitch override = %+v", tw)
	}
	flex := s.Overrides["flextv"]
	if flex.Enabled || !flex.UseCustomFields || flex.Fields["title"] != "Own title" {
		t.Errorf("flextv override = %+v", flex)
	}

	// The override must not alias the config's map.
	flex.Fields["title"] = "changed"
	if cfg.Platforms[1].Fields["title"] != "Own title" {
		t.Error("StreamSettings aliases the configured fields")
	}
}

func TestPlatformConfig_FieldSchema(t *testing.T) {
	p := PlatformConfig{Schema: map[string]FieldConfig{
		"minAge":  {Kind: "int", Min: 0, Max: 19},
		"quality": {Kind: "enum", Options: []string{"720p", "1080p"}, Required: true},
		"note":    {},
	}}

	schema, err := p.FieldSchema()
	if err != nil {
		t.Fatalf("FieldSchema() unexpected error: %v", err)
	}
	if schema["minAge"].Kind != domain.KindInt || schema["minAge"].Max != 19 {
		t.Errorf("minAge = %+v", schema["minAge"])
	}
	if schema["quality"].Kind != domain.KindEnum || !schema["quality"].Required || len(schema["quality"].Options) != 2 {
		t.Errorf("quality = %+v", schema["quality"])
	}
	if schema["note"].Kind != domain.KindString {
		t.Errorf("note kind = %v, want string", schema["note"].Kind)
	}
}
