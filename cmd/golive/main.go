package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/golive/internal/cliconfig"
	"github.com/bft-labs/golive/pkg/log"
)

const helpDescription = `
Go live on every configured platform with one confirmation.

golive reads the current channel settings from each platform, lets you
confirm or edit a single set of stream settings, applies them everywhere,
starts the encoder through obs-websocket and rolls back the platforms it
touched when something fails on the way.

Configuration is read from $HOME/.golive/config.toml, GOLIVE_* environment
variables and flags, in increasing order of precedence.
`

var exampleUsage = strings.TrimSpace(`
  golive --title "Friday night" --category "Just Chatting"
  golive --config ./shows/friday.toml --watch
  golive --yes --metrics-addr :9464
  golive status
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// loadConfig layers the config file, environment and explicitly set flags
// onto cfg. It returns the config file path that was used ("" when none).
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (string, map[string]bool, error) {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	switch {
	case cfgFile != "" && cliconfig.FileExists(cfgFile):
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", nil, fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", nil, err
		}
	case cfgPath != "":
		return "", nil, fmt.Errorf("config file %s not found", cfgPath)
	default:
		cfgFile = ""
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", nil, err
	}
	return cfgFile, changed, nil
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	return log.NewConsoleLogger(os.Stderr, lvl), nil
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "golive",
		Short:         "Go live on several streaming platforms at once",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, changed, err := loadConfig(cmd, &cfg, cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			zl, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}

			// Log configuration (masking secrets)
			zl.Debug().Interface("config", maskedConfig(cfg)).Msg("configuration")

			r := &runner{
				cfg:     cfg,
				cfgFile: cfgFile,
				changed: changed,
				zl:      zl,
				logger:  log.NewZerologAdapterWithLogger(zl),
				in:      cmd.InOrStdin(),
				out:     cmd.OutOrStdout(),
			}
			return r.run(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.golive/config.toml)")
	root.PersistentFlags().StringVar(&cfg.StatusDir, "status-dir", cfg.StatusDir, "directory for status.json (default: $HOME/.golive)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.Flags().StringVar(&cfg.Stream.Title, "title", cfg.Stream.Title, "stream title")
	root.Flags().StringVar(&cfg.Stream.Category, "category", cfg.Stream.Category, "stream category")
	root.Flags().StringVar(&cfg.Stream.Resolution, "resolution", cfg.Stream.Resolution, "stream resolution, e.g. 1080p")
	root.Flags().IntVar(&cfg.Stream.MaxViewers, "max-viewers", cfg.Stream.MaxViewers, "viewer limit (0 = platform default)")
	root.Flags().BoolVar(&cfg.Stream.Secret, "secret", cfg.Stream.Secret, "password protect the stream")
	root.Flags().StringVar(&cfg.Stream.Password, "password", cfg.Stream.Password, "stream password (requires --secret)")
	root.Flags().BoolVar(&cfg.Stream.AdultOnly, "adult-only", cfg.Stream.AdultOnly, "restrict the stream to adult viewers")
	root.Flags().IntVar(&cfg.Stream.MinRank, "min-rank", cfg.Stream.MinRank, "minimum fan rank to watch (0 = off)")

	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for platform APIs")
	root.Flags().BoolVarP(&cfg.Yes, "yes", "y", cfg.Yes, "confirm without prompting")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload stream settings when the config file changes")

	root.Flags().StringVar(&cfg.OBS.URL, "obs-url", cfg.OBS.URL, "obs-websocket URL")
	root.Flags().StringVar(&cfg.OBS.Password, "obs-password", cfg.OBS.Password, "obs-websocket password")
	root.Flags().DurationVar(&cfg.OBS.Timeout, "obs-timeout", cfg.OBS.Timeout, "obs-websocket request timeout")

	root.AddCommand(newStatusCommand(&cfg, &cfgPath))

	if err := root.Execute(); err != nil {
		zl, _ := newLogger("error")
		zl.Error().Err(err).Msg("golive")
		os.Exit(1)
	}
}

// maskedConfig returns cfg with credentials replaced for logging.
func maskedConfig(cfg cliconfig.Config) cliconfig.Config {
	out := cfg
	if out.Stream.Password != "" {
		out.Stream.Password = "*****"
	}
	if out.OBS.Password != "" {
		out.OBS.Password = "*****"
	}
	out.Platforms = make([]cliconfig.PlatformConfig, len(cfg.Platforms))
	for i, p := range cfg.Platforms {
		if p.Token != "" {
			p.Token = "*****"
		}
		out.Platforms[i] = p
	}
	return out
}
