// Package tablewatcher provides command table file monitoring for shftk.
// When enabled, it watches a command table JSON file and re-uploads it to
// the configured generator whenever the file changes.
package tablewatcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/qbench-io/shftk"
	"github.com/qbench-io/shftk/internal/domain"
	"github.com/qbench-io/shftk/pkg/log"
)

// Config holds configuration options for the table watcher plugin.
type Config struct {
	// Path is the command table JSON file to watch. Required.
	Path string

	// Channel is the qachannel whose generator receives the table.
	Channel int

	// DebounceDelay is the delay to wait after a file change before uploading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// RetryInterval is the delay before retrying a failed upload.
	// Default: 5 seconds
	RetryInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for the given file.
func DefaultConfig(path string, channel int) Config {
	return Config{
		Path:          path,
		Channel:       channel,
		DebounceDelay: 100 * time.Millisecond,
		RetryInterval: 5 * time.Second,
	}
}

// Plugin implements command table file watching. It monitors the
// configured file and uploads its content through the generator's
// command table loader when it changes. Uploads that fail validation are
// logged and retried on the next change; network failures are retried
// after RetryInterval.
type Plugin struct {
	mu sync.Mutex

	path          string
	channel       int
	debounceDelay time.Duration
	retryInterval time.Duration

	logger   log.Logger
	upload   func(ctx context.Context, v interface{}) error
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	retryReq chan struct{}
}

// New creates a new table watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	return &Plugin{
		path:          cfg.Path,
		channel:       cfg.Channel,
		debounceDelay: cfg.DebounceDelay,
		retryInterval: cfg.RetryInterval,
		retryReq:      make(chan struct{}, 1),
	}
}

// Name identifies the plugin in logs.
func (p *Plugin) Name() string {
	return "tablewatcher"
}

// Initialize resolves the generator, uploads the current file content
// once and starts watching for changes.
func (p *Plugin) Initialize(ctx context.Context, cfg shftk.PluginConfig) error {
	if p.path == "" {
		return fmt.Errorf("tablewatcher: path is required")
	}
	ch, err := cfg.Device.Channel(p.channel)
	if err != nil {
		return err
	}
	loader := ch.Generator().CommandTable()

	p.mu.Lock()
	p.logger = cfg.Logger
	p.upload = loader.LoadAny
	p.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tablewatcher: create watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files by rename
	// and a file watch would go stale after the first save.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("tablewatcher: watch %s: %w", filepath.Dir(p.path), err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if _, err := os.Stat(p.path); err == nil {
		p.uploadFile(runCtx)
	}

	p.logger.Info("watching command table file",
		log.String("path", p.path),
		log.Int("channel", p.channel),
		log.Duration("debounce", p.debounceDelay))

	p.wg.Add(1)
	go p.run(runCtx, watcher)
	return nil
}

// Shutdown stops the watcher and waits for the worker to exit.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Plugin) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	var retry <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			p.scheduleUpload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("watcher error", log.Err(err))

		case <-p.retryReq:
			if retry == nil {
				retry = time.After(p.retryInterval)
			}

		case <-retry:
			retry = nil
			p.uploadFile(ctx)
		}
	}
}

// scheduleUpload debounces rapid successive change events into a single upload.
func (p *Plugin) scheduleUpload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.uploadFile(ctx)
	})
}

// uploadFile reads the watched file and uploads it through the loader.
func (p *Plugin) uploadFile(ctx context.Context) error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.logger.Warn("read command table file failed",
			log.String("path", p.path),
			log.Err(err))
		return err
	}
	if err := p.upload(ctx, string(data)); err != nil {
		p.logger.Error("command table upload failed",
			log.String("path", p.path),
			log.Int("channel", p.channel),
			log.Err(err))
		// A document the schema rejects stays rejected until the file
		// changes; only transient failures are worth an interval retry.
		if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrFormat) {
			select {
			case p.retryReq <- struct{}{}:
			default:
			}
		}
		return err
	}
	p.logger.Info("command table uploaded from file",
		log.String("path", p.path),
		log.Int("channel", p.channel))
	return nil
}
