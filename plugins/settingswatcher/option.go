package settingswatcher

import "github.com/bft-labs/golive/pkg/golive"

// WithSettingsWatcher returns a golive Option that reloads settings from
// cfg.Path whenever the file changes while the session awaits confirmation.
//
// Usage:
//
//	s, err := golive.New(platforms, tx,
//	    settingswatcher.WithSettingsWatcher(settingswatcher.Config{
//	        Path:     "/home/me/.golive/config.toml",
//	        Load:     loadSettings,
//	        OnChange: func(s golive.StreamSettings) { draft = s },
//	    }),
//	)
func WithSettingsWatcher(cfg Config) golive.Option {
	return golive.WithPlugin(New(cfg))
}
