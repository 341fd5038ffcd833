package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfigFile(t, `
host = "shfqa-rack.example.com"
port = 8104
serial = "dev12044"
schema_url = "https://internal.example.com/schema"
request_timeout = "45s"
log_level = "debug"
`)

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig returned error: %v", err)
	}
	if fc.Host != "shfqa-rack.example.com" || fc.Port != 8104 {
		t.Errorf("unexpected endpoint %s:%d", fc.Host, fc.Port)
	}
	if fc.Serial != "dev12044" || fc.LogLevel != "debug" {
		t.Errorf("unexpected values %+v", fc)
	}
}

func TestLoadFileConfigMissingFile(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFileConfigMalformedTOML(t *testing.T) {
	path := writeConfigFile(t, `host = [broken`)
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestApplyFileConfig(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{
		Host:           "rack-7.example.com",
		Port:           8104,
		Serial:         "dev12044",
		RequestTimeout: "20s",
	}
	if err := ApplyFileConfig(&cfg, fc, nil); err != nil {
		t.Fatalf("ApplyFileConfig returned error: %v", err)
	}
	if cfg.Host != "rack-7.example.com" || cfg.Port != 8104 || cfg.Serial != "dev12044" {
		t.Errorf("file values were not applied: %+v", cfg)
	}
	if cfg.RequestTimeout != 20*time.Second {
		t.Errorf("file timeout was not applied: %v", cfg.RequestTimeout)
	}
	// Fields the file leaves empty keep their defaults.
	if cfg.SchemaURL != DefaultSchemaURL {
		t.Errorf("empty file field clobbered default: %q", cfg.SchemaURL)
	}
}

func TestApplyFileConfigRespectsChangedFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "from-flag"
	fc := FileConfig{Host: "from-file", Serial: "dev12044"}
	changed := map[string]bool{"host": true}

	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatalf("ApplyFileConfig returned error: %v", err)
	}
	if cfg.Host != "from-flag" {
		t.Errorf("flag value was overridden: %q", cfg.Host)
	}
	if cfg.Serial != "dev12044" {
		t.Errorf("unrelated file value was dropped: %q", cfg.Serial)
	}
}

func TestApplyFileConfigRejectsBadDuration(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{DialTimeout: "whenever"}
	if err := ApplyFileConfig(&cfg, fc, nil); err == nil {
		t.Error("expected error for malformed duration")
	}
}

func TestFileExists(t *testing.T) {
	path := writeConfigFile(t, "host = \"x\"\n")
	if !FileExists(path) {
		t.Error("expected existing file to be reported")
	}
	if FileExists(filepath.Join(t.TempDir(), "missing.toml")) {
		t.Error("expected missing file to be reported as absent")
	}
	if FileExists(filepath.Dir(path)) {
		t.Error("expected directory to be reported as absent")
	}
}
