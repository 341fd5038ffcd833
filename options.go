package shftk

import (
	"github.com/qbench-io/shftk/internal/ports"
	"github.com/qbench-io/shftk/pkg/log"
	"github.com/qbench-io/shftk/pkg/nodetree"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// NodeClient reads and writes device nodes.
type NodeClient = nodetree.Client

// Option configures optional behavior of a Session.
type Option func(*options)

// options holds the optional configuration for a Session.
type options struct {
	httpClient HTTPClient
	nodeClient NodeClient
	logger     Logger
	plugins    []Plugin
}

// WithHTTPClient sets a custom HTTP client for schema fetches.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithNodeClient sets a custom device transport. When provided, Connect
// skips dialing the data server and uses the given client instead.
// Intended for tests and embedding in simulators.
func WithNodeClient(client NodeClient) Option {
	return func(o *options) {
		o.nodeClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPlugin registers a plugin to be initialized when the session
// connects. Plugins are initialized in registration order and shut down
// in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
