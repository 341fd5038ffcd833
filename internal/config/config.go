// Package config holds the toolkit configuration and its file, env and
// flag loading with the precedence flags > env > file > defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/qbench-io/shftk/internal/domain"
)

// DefaultSchemaURL is the published location of the command table JSON Schema.
const DefaultSchemaURL = "https://docs.qbench.io/shfqa/commandtable/v2/schema"

// Config holds everything needed to reach a device and validate command
// tables against the published schema.
type Config struct {
	// Host is the data server host.
	Host string

	// Port is the data server TCP port.
	Port int

	// Serial is the device serial, e.g. "dev12000".
	Serial string

	// SchemaURL is where the command table JSON Schema is fetched from.
	SchemaURL string

	// HTTPTimeout bounds the schema fetch.
	HTTPTimeout time.Duration

	// DialTimeout bounds the data server connection establishment.
	DialTimeout time.Duration

	// RequestTimeout bounds a single data server round trip.
	RequestTimeout time.Duration

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string

	// LogFormat is "console" or "json".
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8004,
		SchemaURL:      DefaultSchemaURL,
		HTTPTimeout:    30 * time.Second,
		DialTimeout:    5 * time.Second,
		RequestTimeout: 10 * time.Second,
		LogLevel:       "info",
		LogFormat:      "console",
		Serial:         os.Getenv("SHFTK_SERIAL"),
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Serial == "" {
		return fmt.Errorf("%w: device serial is required", domain.ErrInvalidConfig)
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d is out of range", domain.ErrInvalidConfig, c.Port)
	}
	if c.SchemaURL == "" {
		c.SchemaURL = DefaultSchemaURL
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("%w: dial timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

// ApplyEnvConfig applies SHFTK_* environment variables to the config.
// Values already set via flags (changed map) take precedence.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", os.Getenv("SHFTK_HOST"), &cfg.Host)
	s.setString("serial", os.Getenv("SHFTK_SERIAL"), &cfg.Serial)
	s.setString("schema-url", os.Getenv("SHFTK_SCHEMA_URL"), &cfg.SchemaURL)
	s.setString("log-level", os.Getenv("SHFTK_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("SHFTK_LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setIntFromString("port", os.Getenv("SHFTK_PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setDuration("http-timeout", os.Getenv("SHFTK_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", os.Getenv("SHFTK_DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("request-timeout", os.Getenv("SHFTK_REQUEST_TIMEOUT"), &cfg.RequestTimeout); err != nil {
		return err
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
