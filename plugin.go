package shftk

import (
	"context"

	"github.com/qbench-io/shftk/pkg/log"
	"github.com/qbench-io/shftk/pkg/shfqa"
)

// PluginConfig is handed to every plugin during initialization.
type PluginConfig struct {
	// Serial is the connected device serial.
	Serial string

	// SchemaURL is the configured command table schema location.
	SchemaURL string

	// Device is the connected instrument.
	Device *shfqa.Device

	// Logger is the session logger.
	Logger log.Logger
}

// Plugin extends a session with background behavior, e.g. watching a
// command table file for changes. Plugins are initialized after the
// device connection is established and shut down before it is closed.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize starts the plugin. The context is cancelled when the
	// session closes.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and releases its resources.
	Shutdown(ctx context.Context) error
}
