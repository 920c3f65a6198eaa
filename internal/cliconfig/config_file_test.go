package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		check      func(t *testing.T, cfg Config)
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				StatusDir:   "/var/lib/golive",
				LogLevel:    "debug",
				HTTPTimeout: "30s",
				Yes:         &trueVal,
				Stream: StreamFileConfig{
					Title:     "Friday night",
					Category:  "talk",
					Secret:    &trueVal,
					Password:  "pw",
					MinRank:   3,
					AdultOnly: &trueVal,
				},
				OBS: OBSFileConfig{URL: "ws://obs:4455", Timeout: "5s"},
			},
			changed: map[string]bool{},
			check: func(t *testing.T, cfg Config) {
				if cfg.StatusDir != "/var/lib/golive" {
					t.Errorf("StatusDir = %v, want /var/lib/golive", cfg.StatusDir)
				}
				if cfg.LogLevel != "debug" {
					t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
				}
				if cfg.HTTPTimeout != 30*time.Second {
					t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
				}
				if !cfg.Yes {
					t.Error("Yes = false, want true")
				}
				want := StreamConfig{Title: "Friday night", Category: "talk", Secret: true, Password: "pw", MinRank: 3, AdultOnly: true}
				if cfg.Stream != want {
					t.Errorf("Stream = %+v, want %+v", cfg.Stream, want)
				}
				if cfg.OBS.URL != "ws://obs:4455" || cfg.OBS.Timeout != 5*time.Second {
					t.Errorf("OBS = %+v", cfg.OBS)
				}
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				LogLevel: "debug",
				Stream:   StreamFileConfig{Title: "from file", Category: "music"},
			},
			changed: map[string]bool{"title": true, "log-level": true},
			initial: Config{LogLevel: "warn", Stream: StreamConfig{Title: "from flag"}},
			check: func(t *testing.T, cfg Config) {
				if cfg.Stream.Title != "from flag" {
					t.Errorf("Title = %v, want from flag", cfg.Stream.Title)
				}
				if cfg.LogLevel != "warn" {
					t.Errorf("LogLevel = %v, want warn", cfg.LogLevel)
				}
				if cfg.Stream.Category != "music" {
					t.Errorf("Category = %v, want music", cfg.Stream.Category)
				}
			},
		},
		{
			name:       "keeps platforms when file has none",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    Config{Platforms: []PlatformConfig{{Type: PlatformTwitch}}},
			check: func(t *testing.T, cfg Config) {
				if len(cfg.Platforms) != 1 {
					t.Errorf("len(Platforms) = %d, want 1", len(cfg.Platforms))
				}
			},
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{HTTPTimeout: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name:       "returns error for invalid obs timeout",
			fileConfig: FileConfig{OBS: OBSFileConfig{Timeout: "later"}},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
status_dir = "/tmp/golive"
metrics_addr = ":9090"

[stream]
title = "Late show"
category = "Just Chatting"
adult_only = true
min_rank = 2

[obs]
url = "ws://localhost:4455"
password = "obs-secret"

[[platforms]]
type = "twitch"
client_id = "abc"
broadcaster_id = "1234"
required = true

[platforms.fields]
language = "de"

[[platforms]]
type = "http"
id = "flextv"
base_url = "https://api.flextv.example/"
enabled = false

[platforms.schema.minAge]
kind = "int"
max = 19
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig failed: %v", err)
	}

	if fc.StatusDir != "/tmp/golive" {
		t.Errorf("StatusDir = %v, want /tmp/golive", fc.StatusDir)
	}
	if fc.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %v, want :9090", fc.MetricsAddr)
	}
	if fc.Stream.Title != "Late show" {
		t.Errorf("Stream.Title = %v, want Late show", fc.Stream.Title)
	}
	if fc.Stream.AdultOnly == nil || !*fc.Stream.AdultOnly {
		t.Errorf("Stream.AdultOnly = %v, want true", fc.Stream.AdultOnly)
	}
	if fc.OBS.Password != "obs-secret" {
		t.Errorf("OBS.Password = %v, want obs-secret", fc.OBS.Password)
	}
	if len(fc.Platforms) != 2 {
		t.Fatalf("len(Platforms) = %d, want 2", len(fc.Platforms))
	}

	tw := fc.Platforms[0]
	if tw.Type != PlatformTwitch || !tw.Required || !tw.IsEnabled() {
		t.Errorf("twitch platform = %+v", tw)
	}
	if tw.Fields["language"] != "de" {
		t.Errorf("twitch language = %v, want de", tw.Fields["language"])
	}

	flex := fc.Platforms[1]
	if flex.IsEnabled() {
		t.Error("flextv should be disabled")
	}
	if flex.Schema["minAge"].Kind != "int" || flex.Schema["minAge"].Max != 19 {
		t.Errorf("flextv schema = %+v", flex.Schema)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig should fail for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
[stream
title = "broken"
`
	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig should fail for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if path == "" {
		t.Skip("home directory not accessible")
	}
	if !strings.HasSuffix(path, filepath.Join(".golive", "config.toml")) {
		t.Errorf("DefaultConfigPath() = %v, want suffix .golive/config.toml", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists should return true for existing file")
	}
	if FileExists(filepath.Join(tmpDir, "missing.txt")) {
		t.Error("FileExists should return false for missing file")
	}
}
