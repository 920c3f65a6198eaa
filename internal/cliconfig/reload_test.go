package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReloadStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[stream]
title = "new title"
category = "Music"
secret = true

[obs]
url = "ws://elsewhere:4455"

[[platforms]]
type = "http"
id = "flextv"
enabled = false
fields = { minAge = 19 }

[[platforms]]
type = "http"
id = "unknown"
base_url = "http://unknown"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("GOLIVE_CATEGORY", "env category")

	cfg := Config{
		OBS:    OBSConfig{URL: "ws://127.0.0.1:4455"},
		Stream: StreamConfig{Title: "old title", Password: "flag pw"},
		Platforms: []PlatformConfig{
			{Type: PlatformHTTP, ID: "flextv", BaseURL: "http://flextv", Required: true},
		},
	}
	changed := map[string]bool{"password": true}

	got, err := ReloadStream(cfg, path, changed)
	if err != nil {
		t.Fatalf("ReloadStream() error: %v", err)
	}

	if got.Stream.Title != "new title" {
		t.Errorf("Title = %q, want new title", got.Stream.Title)
	}
	if got.Stream.Category != "env category" {
		t.Errorf("Category = %q, want env to keep precedence", got.Stream.Category)
	}
	if !got.Stream.Secret || got.Stream.Password != "flag pw" {
		t.Errorf("visibility = %v/%q", got.Stream.Secret, got.Stream.Password)
	}
	if got.OBS.URL != "ws://127.0.0.1:4455" {
		t.Errorf("OBS.URL = %q, connection settings must not reload", got.OBS.URL)
	}
	if len(got.Platforms) != 1 {
		t.Fatalf("Platforms = %d, new platforms must not be added", len(got.Platforms))
	}
	p := got.Platforms[0]
	if p.IsEnabled() || p.Required || p.BaseURL != "http://flextv" {
		t.Errorf("flextv = %+v", p)
	}
	if p.Fields["minAge"] != int64(19) {
		t.Errorf("flextv fields = %v", p.Fields)
	}

	// The input config is left untouched.
	if cfg.Stream.Title != "old title" || !cfg.Platforms[0].IsEnabled() {
		t.Error("ReloadStream modified its input")
	}
}

func TestReloadStream_MissingFile(t *testing.T) {
	cfg := Config{Stream: StreamConfig{Title: "kept"}}
	got, err := ReloadStream(cfg, filepath.Join(t.TempDir(), "missing.toml"), nil)
	if err == nil {
		t.Fatal("ReloadStream() should fail for a missing file")
	}
	if got.Stream.Title != "kept" {
		t.Errorf("Title = %q, want the previous config back", got.Stream.Title)
	}
}
