// Package config loads settings for the server and the command-line client.
//
// Values are layered: built-in defaults, then an optional YAML file, then the
// process environment (a .env file in the working directory is read first and
// never overrides variables that are already set), then command-line flags
// the user actually passed.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/reclaim/internal/session"
)

// EnvPrefix starts every environment variable the loader reads.
const EnvPrefix = "RECLAIM_"

// Config is the full configuration.
type Config struct {
	// Environment is "development" or "production". It picks the log format.
	Environment string `yaml:"environment"`

	Server ServerConfig `yaml:"server"`
	Admin  AdminConfig  `yaml:"admin"`
	Log    LogConfig    `yaml:"log"`
	Client ClientConfig `yaml:"client"`
}

// ServerConfig configures the HTTP backend.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	DBPath string `yaml:"db_path"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins"`

	// RecentActivityLimit bounds GET /api/audit-trail.
	RecentActivityLimit int `yaml:"recent_activity_limit"`

	MetricsPrefix string `yaml:"metrics_prefix"`
}

// AdminConfig names the account created on first start.
type AdminConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// LogConfig configures the server logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ClientConfig configures reclaimctl.
type ClientConfig struct {
	// APIURL includes the /api prefix.
	APIURL      string `yaml:"api_url"`
	SessionPath string `yaml:"session_path"`
}

// Default returns the built-in settings.
func Default() *Config {
	sessionPath, err := session.DefaultPath()
	if err != nil {
		sessionPath = ".reclaim-session.json"
	}
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Addr:                ":8080",
			DBPath:              "reclaim.db",
			RecentActivityLimit: 10,
			MetricsPrefix:       "reclaim",
		},
		Admin: AdminConfig{
			Name:  "Administrator",
			Email: "admin@reclaim.local",
		},
		Log: LogConfig{Level: "info"},
		Client: ClientConfig{
			APIURL:      "http://localhost:8080/api",
			SessionPath: sessionPath,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or the
// one named by RECLAIM_CONFIG when path is empty), .env and the environment.
// A missing file is an error only when a path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = "reclaim.yaml"
	}
	if err := cfg.LoadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)

	return cfg, nil
}

// LoadFile overlays the YAML file at path. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays RECLAIM_* variables found through lookup. Malformed
// numbers are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	str("ENV", &c.Environment)
	str("ADDR", &c.Server.Addr)
	str("DB", &c.Server.DBPath)
	str("METRICS_PREFIX", &c.Server.MetricsPrefix)
	str("ADMIN_NAME", &c.Admin.Name)
	str("ADMIN_EMAIL", &c.Admin.Email)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("API_URL", &c.Client.APIURL)
	str("SESSION", &c.Client.SessionPath)

	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "RECENT_ACTIVITY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.RecentActivityLimit = n
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("listen address is empty")
	}
	if c.Server.DBPath == "" {
		return errors.New("database path is empty")
	}
	if c.Server.RecentActivityLimit <= 0 {
		return fmt.Errorf("recent activity limit must be positive, got %d", c.Server.RecentActivityLimit)
	}
	if c.Environment != "development" && c.Environment != "production" {
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	return nil
}

// ServerFlags registers the server's flags on flags with defaults taken from
// Default.
func ServerFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.StringP("config", "c", "", "path to a YAML config file")
	flags.StringP("addr", "a", d.Server.Addr, "listen address")
	flags.StringP("db", "d", d.Server.DBPath, "path to the SQLite database")
	flags.StringP("log", "l", "", "path to a log file (in addition to stderr)")
	flags.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	flags.String("env", d.Environment, "environment: development or production")
	flags.StringSlice("cors-origin", nil, "allowed browser origin (repeatable)")
	flags.String("admin-email", d.Admin.Email, "email of the admin created on first start")
}

// ClientFlags registers reclaimctl's global flags on flags.
func ClientFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.StringP("config", "c", "", "path to a YAML config file")
	flags.String("api", d.Client.APIURL, "backend URL including /api")
	flags.String("session", d.Client.SessionPath, "path of the stored session")
}

// ApplyFlags overlays the flags of the set that were set on the command line.
// Flags not registered on flags are skipped.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) error {
	strs := map[string]*string{
		"addr":        &c.Server.Addr,
		"db":          &c.Server.DBPath,
		"log":         &c.Log.File,
		"log-level":   &c.Log.Level,
		"env":         &c.Environment,
		"admin-email": &c.Admin.Email,
		"api":         &c.Client.APIURL,
		"session":     &c.Client.SessionPath,
	}
	for name, dst := range strs {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("reading flag %s: %w", name, err)
		}
		*dst = v
	}

	if flags.Lookup("cors-origin") != nil && flags.Changed("cors-origin") {
		v, err := flags.GetStringSlice("cors-origin")
		if err != nil {
			return fmt.Errorf("reading flag cors-origin: %w", err)
		}
		c.Server.CORSOrigins = v
	}
	return nil
}
