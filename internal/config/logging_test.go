package config

import "testing"

func TestNewLoggerToleratesUnknownSettings(t *testing.T) {
	// Unknown levels and formats must not panic; they fall back to
	// info/console.
	for _, tt := range []struct{ level, format string }{
		{"info", "console"},
		{"debug", "json"},
		{"verbose", "console"},
		{"info", "xml"},
		{"", ""},
	} {
		logger := NewLogger(tt.level, tt.format)
		if logger == nil {
			t.Fatalf("NewLogger(%q, %q) returned nil", tt.level, tt.format)
		}
		logger.Debug("logger ready")
	}
}
