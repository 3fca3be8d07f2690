package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFileOverlays(t *testing.T) {
	path := writeFile(t, "reclaim.yaml", `
environment: production
server:
  addr: ":9090"
  cors_origins: ["http://localhost:5173"]
log:
  level: debug
`)

	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Environment != "production" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.DBPath != "reclaim.db" {
		t.Errorf("db path should keep default, got %q", cfg.Server.DBPath)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadFileRejectsBadYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "server: [unclosed")
	if err := Default().LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"RECLAIM_DB":              "/var/lib/reclaim.db",
		"RECLAIM_CORS_ORIGINS":    "https://a.example, https://b.example,",
		"RECLAIM_RECENT_ACTIVITY": "25",
		"RECLAIM_API_URL":         "https://reclaim.example/api",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	if cfg.Server.DBPath != "/var/lib/reclaim.db" {
		t.Errorf("db path = %q", cfg.Server.DBPath)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Server.RecentActivityLimit != 25 {
		t.Errorf("recent activity = %d", cfg.Server.RecentActivityLimit)
	}
	if cfg.Client.APIURL != "https://reclaim.example/api" {
		t.Errorf("api url = %q", cfg.Client.APIURL)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("unset variable changed addr to %q", cfg.Server.Addr)
	}
}

func TestApplyEnvIgnoresMalformedNumber(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "RECLAIM_RECENT_ACTIVITY" {
			return "many", true
		}
		return "", false
	})
	if cfg.Server.RecentActivityLimit != 10 {
		t.Errorf("expected default 10, got %d", cfg.Server.RecentActivityLimit)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for explicit missing file")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "reclaim.yaml", "server:\n  addr: \":7000\"\n")
	t.Setenv("RECLAIM_ADDR", ":7001")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7001" {
		t.Errorf("addr = %q, want env value", cfg.Server.Addr)
	}
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	fs := pflag.NewFlagSet("reclaim", pflag.ContinueOnError)
	ServerFlags(fs)
	if err := fs.Parse([]string{"--db", "flag.db", "--cors-origin", "http://x", "--cors-origin", "http://y"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg := Default()
	cfg.Server.Addr = ":6000"
	if err := cfg.ApplyFlags(fs); err != nil {
		t.Fatalf("ApplyFlags: %v", err)
	}

	if cfg.Server.DBPath != "flag.db" {
		t.Errorf("db path = %q", cfg.Server.DBPath)
	}
	if cfg.Server.Addr != ":6000" {
		t.Errorf("unchanged flag overwrote addr: %q", cfg.Server.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"empty db", func(c *Config) { c.Server.DBPath = "" }},
		{"zero limit", func(c *Config) { c.Server.RecentActivityLimit = 0 }},
		{"bad env", func(c *Config) { c.Environment = "staging" }},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
