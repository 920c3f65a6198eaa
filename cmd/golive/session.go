package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/golive/internal/adapters/httpplatform"
	"github.com/bft-labs/golive/internal/adapters/metrics"
	"github.com/bft-labs/golive/internal/adapters/obs"
	"github.com/bft-labs/golive/internal/adapters/twitch"
	"github.com/bft-labs/golive/internal/cliconfig"
	"github.com/bft-labs/golive/pkg/golive"
	"github.com/bft-labs/golive/plugins/settingswatcher"
)

const teardownTimeout = 30 * time.Second

// runner drives one interactive go-live session.
type runner struct {
	cfg     cliconfig.Config
	cfgFile string
	changed map[string]bool
	zl      zerolog.Logger
	logger  golive.Logger
	in      io.Reader
	out     io.Writer

	session *golive.Session

	mu    sync.Mutex
	draft golive.StreamSettings
}

func (r *runner) run(parent context.Context) error {
	platforms, err := r.buildPlatforms()
	if err != nil {
		return err
	}
	tx := obs.New(obs.Config{
		URL:      r.cfg.OBS.URL,
		Password: r.cfg.OBS.Password,
		Timeout:  r.cfg.OBS.Timeout,
	}, r.logger)

	opts := []golive.Option{
		golive.WithLogger(r.logger),
		golive.WithStatusDir(r.cfg.StatusDir),
		golive.WithObserver(newProgressPrinter(r.out)),
	}

	if r.cfg.MetricsAddr != "" {
		reg := metrics.NewRegistry()
		collector := metrics.NewCollector(reg)
		opts = append(opts,
			golive.WithObserver(collector),
			golive.WithEventHandler(golive.EventHandlerFunc(func(e golive.StateChangeEvent) {
				collector.OnStateChange(e.Previous, e.Current, e.Reason)
			})))

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: r.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.zl.Error().Err(err).Str("addr", r.cfg.MetricsAddr).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
		r.zl.Info().Str("addr", r.cfg.MetricsAddr).Msg("serving metrics")
	}

	if r.cfg.Watch {
		if r.cfgFile == "" {
			r.zl.Warn().Msg("--watch needs a config file, not watching")
		} else {
			opts = append(opts, settingswatcher.WithSettingsWatcher(settingswatcher.Config{
				Path:     r.cfgFile,
				Load:     r.loadSettings,
				OnChange: r.settingsChanged,
			}))
		}
	}

	session, err := golive.New(platforms, tx, opts...)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	r.session = session

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			r.zl.Info().Msg("received signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	defer func() {
		tctx, tcancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer tcancel()
		if err := session.Teardown(tctx); err != nil {
			r.zl.Error().Err(err).Msg("teardown incomplete, check your platforms")
		}
	}()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	r.setDraft(session.Prefill(r.cfg.StreamSettings()))
	r.printPrepopulation(session.Snapshot())

	lines := readLines(r.in)
	for {
		r.printDraft()
		if !r.cfg.Yes {
			ok, err := r.ask(ctx, lines, "Go live with these settings? [y/N] ")
			if err != nil || !ok {
				fmt.Fprintln(r.out, "Not going live.")
				return nil
			}
		}

		err := session.Confirm(ctx, r.currentDraft())
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.printFailure(err)

		if r.cfg.Yes {
			return err
		}
		retry, aerr := r.ask(ctx, lines, "Retry? [y/N] ")
		if aerr != nil || !retry {
			return nil
		}
		if rerr := session.Retry(); rerr != nil {
			return rerr
		}
	}

	fmt.Fprintf(r.out, "Live on %s.\n", joinIDs(r.livePlatforms(session.Snapshot())))
	if r.cfg.MetricsAddr == "" {
		return nil
	}
	// Keep serving metrics until interrupted.
	<-ctx.Done()
	return nil
}

func (r *runner) buildPlatforms() ([]golive.Platform, error) {
	client := &http.Client{Timeout: r.cfg.HTTPTimeout}

	platforms := make([]golive.Platform, 0, len(r.cfg.Platforms))
	for _, pc := range r.cfg.Platforms {
		switch pc.Type {
		case cliconfig.PlatformTwitch:
			p, err := twitch.New(twitch.Config{
				ClientID:      pc.ClientID,
				AccessToken:   pc.Token,
				BroadcasterID: pc.BroadcasterID,
				APIBaseURL:    pc.APIBaseURL,
			}, client, r.logger)
			if err != nil {
				return nil, err
			}
			platforms = append(platforms, p)

		case cliconfig.PlatformHTTP:
			schema, err := pc.FieldSchema()
			if err != nil {
				return nil, fmt.Errorf("platform %s: %w", pc.ID, err)
			}
			platforms = append(platforms, httpplatform.New(httpplatform.Config{
				ID:         golive.PlatformID(pc.ID),
				BaseURL:    pc.BaseURL,
				Token:      pc.Token,
				Schema:     schema,
				MaxRetries: pc.MaxRetries,
			}, client, r.logger, nil))
		}
	}
	return platforms, nil
}

func (r *runner) loadSettings(path string) (golive.StreamSettings, error) {
	cfg, err := cliconfig.ReloadStream(r.cfg, path, r.changed)
	if err != nil {
		return golive.StreamSettings{}, err
	}
	return cfg.StreamSettings(), nil
}

func (r *runner) settingsChanged(s golive.StreamSettings) {
	r.setDraft(r.session.Prefill(s))
	fmt.Fprintln(r.out, "\nSettings reloaded.")
	r.printDraft()
}

func (r *runner) setDraft(s golive.StreamSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = s
}

func (r *runner) currentDraft() golive.StreamSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft.Clone()
}

// readLines feeds stdin lines to a channel so prompts can be abandoned on
// cancellation.
func readLines(in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

func (r *runner) ask(ctx context.Context, lines <-chan string, prompt string) (bool, error) {
	fmt.Fprint(r.out, prompt)
	select {
	case <-ctx.Done():
		fmt.Fprintln(r.out)
		return false, ctx.Err()
	case line, ok := <-lines:
		if !ok {
			return false, nil
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}
