package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StatusDir   string `toml:"status_dir"`
	LogLevel    string `toml:"log_level"`
	MetricsAddr string `toml:"metrics_addr"`
	HTTPTimeout string `toml:"http_timeout"`
	Yes         *bool  `toml:"yes"`
	Watch       *bool  `toml:"watch"`

	Stream    StreamFileConfig `toml:"stream"`
	OBS       OBSFileConfig    `toml:"obs"`
	Platforms []PlatformConfig `toml:"platforms"`
}

// StreamFileConfig is the [stream] section.
type StreamFileConfig struct {
	Title      string `toml:"title"`
	Category   string `toml:"category"`
	Resolution string `toml:"resolution"`
	MaxViewers int    `toml:"max_viewers"`
	Secret     *bool  `toml:"secret"`
	Password   string `toml:"password"`
	AdultOnly  *bool  `toml:"adult_only"`
	MinRank    int    `toml:"min_rank"`
}

// OBSFileConfig is the [obs] section.
type OBSFileConfig struct {
	URL      string `toml:"url"`
	Password string `toml:"password"`
	Timeout  string `toml:"timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.golive/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".golive", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("status-dir", fc.StatusDir, &cfg.StatusDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	s.setBool("yes", fc.Yes, &cfg.Yes)
	s.setBool("watch", fc.Watch, &cfg.Watch)

	ApplyStreamFileConfig(&cfg.Stream, fc.Stream, changed)

	s.setString("obs-url", fc.OBS.URL, &cfg.OBS.URL)
	s.setString("obs-password", fc.OBS.Password, &cfg.OBS.Password)
	if err := s.setDuration("obs-timeout", fc.OBS.Timeout, &cfg.OBS.Timeout); err != nil {
		return err
	}

	if len(fc.Platforms) > 0 {
		cfg.Platforms = fc.Platforms
	}
	return nil
}

// ApplyStreamFileConfig applies the [stream] section.
func ApplyStreamFileConfig(dst *StreamConfig, sc StreamFileConfig, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("title", sc.Title, &dst.Title)
	s.setString("category", sc.Category, &dst.Category)
	s.setString("resolution", sc.Resolution, &dst.Resolution)
	s.setInt("max-viewers", sc.MaxViewers, &dst.MaxViewers)
	s.setBool("secret", sc.Secret, &dst.Secret)
	s.setString("password", sc.Password, &dst.Password)
	s.setBool("adult-only", sc.AdultOnly, &dst.AdultOnly)
	s.setInt("min-rank", sc.MinRank, &dst.MinRank)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
