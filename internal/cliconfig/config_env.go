package cliconfig

import (
	"os"
	"strings"
)

// ApplyEnvConfig applies configuration from environment variables (GOLIVE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
//
// Platform credentials can be kept out of the config file:
// GOLIVE_<ID>_TOKEN sets the token of the platform with that ID
// (upper-cased, dashes as underscores).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("status-dir", os.Getenv("GOLIVE_STATUS_DIR"), &cfg.StatusDir)
	s.setString("log-level", os.Getenv("GOLIVE_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("metrics-addr", os.Getenv("GOLIVE_METRICS_ADDR"), &cfg.MetricsAddr)
	if err := s.setDuration("timeout", os.Getenv("GOLIVE_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	s.setBoolFromString("yes", os.Getenv("GOLIVE_YES"), &cfg.Yes)
	s.setBoolFromString("watch", os.Getenv("GOLIVE_WATCH"), &cfg.Watch)

	s.setString("title", os.Getenv("GOLIVE_TITLE"), &cfg.Stream.Title)
	s.setString("category", os.Getenv("GOLIVE_CATEGORY"), &cfg.Stream.Category)
	s.setString("password", os.Getenv("GOLIVE_PASSWORD"), &cfg.Stream.Password)
	if err := s.setIntFromString("max-viewers", os.Getenv("GOLIVE_MAX_VIEWERS"), &cfg.Stream.MaxViewers); err != nil {
		return err
	}

	s.setString("obs-url", os.Getenv("GOLIVE_OBS_URL"), &cfg.OBS.URL)
	s.setString("obs-password", os.Getenv("GOLIVE_OBS_PASSWORD"), &cfg.OBS.Password)
	if err := s.setDuration("obs-timeout", os.Getenv("GOLIVE_OBS_TIMEOUT"), &cfg.OBS.Timeout); err != nil {
		return err
	}

	for i := range cfg.Platforms {
		p := &cfg.Platforms[i]
		id := p.ID
		if id == "" {
			id = p.Type
		}
		if tok := os.Getenv(tokenEnv(id)); tok != "" {
			p.Token = tok
		}
	}
	return nil
}

func tokenEnv(id string) string {
	return "GOLIVE_" + strings.ToUpper(strings.ReplaceAll(id, "-", "_")) + "_TOKEN"
}
