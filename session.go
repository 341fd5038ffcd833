package shftk

import (
	"context"
	"net/http"
	"sync"

	"github.com/qbench-io/shftk/internal/adapters/dataserver"
	"github.com/qbench-io/shftk/internal/adapters/schemahttp"
	"github.com/qbench-io/shftk/internal/config"
	"github.com/qbench-io/shftk/internal/domain"
	"github.com/qbench-io/shftk/pkg/log"
	"github.com/qbench-io/shftk/pkg/shfqa"
)

// Config holds the session configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = config.Config

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set Serial before calling New.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// DefaultSchemaURL is the published location of the command table JSON Schema.
const DefaultSchemaURL = config.DefaultSchemaURL

// Session owns one connection to an instrument. Use New to create it,
// Connect to establish the device link and Close to tear it down.
type Session struct {
	cfg    Config
	opts   options
	logger log.Logger

	mu      sync.Mutex
	client  NodeClient
	owned   *dataserver.Client
	device  *shfqa.Device
	cancel  context.CancelFunc
	started []Plugin
}

// New creates a session with the given configuration.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &Session{cfg: cfg, opts: o, logger: o.logger}, nil
}

// Connect dials the data server (unless a node client was injected),
// wires the device object and initializes the registered plugins.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		return domain.ErrAlreadyConnected
	}

	client := s.opts.nodeClient
	if client == nil {
		c, err := dataserver.Dial(ctx, dataserver.Config{
			Host:           s.cfg.Host,
			Port:           s.cfg.Port,
			DialTimeout:    s.cfg.DialTimeout,
			RequestTimeout: s.cfg.RequestTimeout,
		}, s.logger)
		if err != nil {
			return err
		}
		s.owned = c
		client = c
	}

	fetcher := schemahttp.New(s.opts.httpClient, s.logger)
	device, err := shfqa.Connect(ctx, shfqa.Config{
		Serial:    s.cfg.Serial,
		SchemaURL: s.cfg.SchemaURL,
		Client:    client,
		Fetcher:   fetcher,
		Logger:    s.logger,
	})
	if err != nil {
		s.closeOwnedLocked()
		return err
	}

	pluginCtx, cancel := context.WithCancel(context.Background())
	pluginCfg := PluginConfig{
		Serial:    s.cfg.Serial,
		SchemaURL: s.cfg.SchemaURL,
		Device:    device,
		Logger:    s.logger,
	}
	for _, p := range s.opts.plugins {
		if err := p.Initialize(pluginCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			s.shutdownPluginsLocked()
			s.closeOwnedLocked()
			return err
		}
		s.started = append(s.started, p)
		s.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	s.client = client
	s.device = device
	s.cancel = cancel
	return nil
}

// Close shuts down plugins in reverse order and closes the data server
// connection if the session owns it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return domain.ErrNotConnected
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.shutdownPluginsLocked()
	err := s.closeOwnedLocked()
	s.client = nil
	s.device = nil
	s.cancel = nil
	return err
}

// Device returns the connected instrument, or nil before Connect.
func (s *Session) Device() *shfqa.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Client returns the node transport in use, or nil before Connect.
func (s *Session) Client() NodeClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *Session) shutdownPluginsLocked() {
	shutdownCtx := context.Background()
	for i := len(s.started) - 1; i >= 0; i-- {
		p := s.started[i]
		if err := p.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			s.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
	s.started = nil
}

func (s *Session) closeOwnedLocked() error {
	if s.owned == nil {
		return nil
	}
	err := s.owned.Close()
	s.owned = nil
	return err
}
