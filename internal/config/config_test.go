package config

import (
	"errors"
	"testing"
	"time"

	"github.com/qbench-io/shftk/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Host != "localhost" || cfg.Port != 8004 {
		t.Errorf("unexpected default endpoint %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.SchemaURL != DefaultSchemaURL {
		t.Errorf("unexpected default schema URL %q", cfg.SchemaURL)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("unexpected default logging %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestDefaultConfigReadsSerialFromEnv(t *testing.T) {
	t.Setenv("SHFTK_SERIAL", "dev12044")
	if got := DefaultConfig().Serial; got != "dev12044" {
		t.Errorf("expected serial from environment, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Serial = "dev12044"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"missing serial", func(c *Config) { c.Serial = "" }, false},
		{"port zero", func(c *Config) { c.Port = 0 }, false},
		{"port too large", func(c *Config) { c.Port = 70000 }, false},
		{"zero http timeout", func(c *Config) { c.HTTPTimeout = 0 }, false},
		{"zero dial timeout", func(c *Config) { c.DialTimeout = 0 }, false},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !tt.ok && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("expected config error, got %v", err)
			}
		})
	}
}

func TestValidateFillsDerivedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Serial = "dev12044"
	cfg.Host = ""
	cfg.SchemaURL = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.Host != "localhost" {
		t.Errorf("host was not defaulted: %q", cfg.Host)
	}
	if cfg.SchemaURL != DefaultSchemaURL {
		t.Errorf("schema URL was not defaulted: %q", cfg.SchemaURL)
	}
}

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("SHFTK_HOST", "shfqa-lab.example.com")
	t.Setenv("SHFTK_PORT", "8104")
	t.Setenv("SHFTK_SERIAL", "dev99001")
	t.Setenv("SHFTK_REQUEST_TIMEOUT", "30s")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, nil); err != nil {
		t.Fatalf("ApplyEnvConfig returned error: %v", err)
	}
	if cfg.Host != "shfqa-lab.example.com" || cfg.Port != 8104 {
		t.Errorf("env endpoint was not applied: %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Serial != "dev99001" {
		t.Errorf("env serial was not applied: %q", cfg.Serial)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("env timeout was not applied: %v", cfg.RequestTimeout)
	}
}

func TestApplyEnvConfigRespectsChangedFlags(t *testing.T) {
	t.Setenv("SHFTK_HOST", "from-env")
	t.Setenv("SHFTK_PORT", "9000")

	cfg := DefaultConfig()
	cfg.Host = "from-flag"
	cfg.Port = 8005
	changed := map[string]bool{"host": true, "port": true}

	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig returned error: %v", err)
	}
	if cfg.Host != "from-flag" || cfg.Port != 8005 {
		t.Errorf("flag values were overridden: %s:%d", cfg.Host, cfg.Port)
	}
}

func TestApplyEnvConfigRejectsBadValues(t *testing.T) {
	t.Setenv("SHFTK_PORT", "not-a-number")
	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, nil); err == nil {
		t.Error("expected error for malformed port")
	}

	t.Setenv("SHFTK_PORT", "")
	t.Setenv("SHFTK_HTTP_TIMEOUT", "soon")
	cfg = DefaultConfig()
	if err := ApplyEnvConfig(&cfg, nil); err == nil {
		t.Error("expected error for malformed timeout")
	}
}
