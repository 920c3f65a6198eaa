// Package settingswatcher reloads stream settings from a file while a
// session waits for confirmation. Edits to the file show up in the pending
// draft without restarting the session.
package settingswatcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/golive/pkg/golive"
	"github.com/bft-labs/golive/pkg/log"
)

// LoadFunc reads the settings file at path.
type LoadFunc func(path string) (golive.StreamSettings, error)

// ChangeFunc receives freshly loaded settings.
type ChangeFunc func(settings golive.StreamSettings)

// Plugin watches one settings file.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	load          LoadFunc
	onChange      ChangeFunc

	session  *golive.Session
	logger   golive.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the settings watcher plugin.
type Config struct {
	// Path is the settings file to watch.
	Path string

	// DebounceDelay is how long to wait after the last change before
	// reloading. Default: 200 milliseconds
	DebounceDelay time.Duration

	// Load parses the file. Required.
	Load LoadFunc

	// OnChange receives the reloaded settings. Required.
	OnChange ChangeFunc
}

// DefaultDebounceDelay is used when Config.DebounceDelay is not positive.
const DefaultDebounceDelay = 200 * time.Millisecond

// New creates a new settings watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		load:          cfg.Load,
		onChange:      cfg.OnChange,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "settingswatcher"
}

// Initialize starts watching the settings file.
func (p *Plugin) Initialize(ctx context.Context, cfg golive.PluginConfig) error {
	p.mu.Lock()
	p.session = cfg.Session
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("settings watcher disabled: no settings file")
		return nil
	}
	if p.load == nil || p.onChange == nil {
		return errors.New("settingswatcher: Load and OnChange are required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace files on save; watching the directory survives that.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("settings watcher initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and waits for a running reload to finish.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Lock()
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.debounce = nil
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("settings watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A stopped timer never runs its func, so it releases its slot here.
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.wg.Add(1)
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		defer p.wg.Done()
		if ctx.Err() == nil {
			p.reload()
		}
	})
}

// reload applies the file only while the user can still change the draft.
func (p *Plugin) reload() {
	if state := p.session.State(); state != golive.StateAwaitingConfirmation {
		p.logger.Debug("settings change ignored", log.String("state", state.String()))
		return
	}

	settings, err := p.load(p.path)
	if err != nil {
		p.logger.Warn("settings reload failed", log.Err(err))
		return
	}
	p.logger.Info("settings reloaded", log.String("path", p.path))
	p.onChange(settings)
}

// Ensure Plugin implements golive.Plugin.
var _ golive.Plugin = (*Plugin)(nil)
