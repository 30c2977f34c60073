package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "bizdesk.yml"

// Config models bizdesk.yml.
type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	// Workspace is the directory holding the local credential database.
	Workspace string `yaml:"workspace"`
	Log       struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Calendar struct {
		Timezone    string `yaml:"timezone"`
		DefaultView string `yaml:"default_view"`
	} `yaml:"calendar"`
	Sandbox Sandbox `yaml:"sandbox"`
}

// Sandbox configures the local API server used for demos and tests.
type Sandbox struct {
	Addr      string        `yaml:"addr"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Issuer    string        `yaml:"issuer"`
	Seed      bool          `yaml:"seed"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with bzd config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("config.api.base_url must be an absolute url, got %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config.api.base_url scheme must be http or https")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config.api.timeout must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config.log.format must be 'text' or 'json'")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Calendar.DefaultView {
	case "day", "week", "month":
	default:
		return fmt.Errorf("config.calendar.default_view must be day, week or month")
	}
	if c.Sandbox.Addr == "" {
		return fmt.Errorf("config.sandbox.addr is required")
	}
	if len(c.Sandbox.JWTSecret) < 16 {
		return fmt.Errorf("config.sandbox.jwt_secret must be at least 16 characters")
	}
	if c.Sandbox.TokenTTL <= 0 {
		return fmt.Errorf("config.sandbox.token_ttl must be positive")
	}
	return nil
}

// SlogLevel maps log.level onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config.log.level: %w", err)
	}
	return lvl, nil
}

// Location is the zone calendar days are computed in. Empty means local.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Calendar.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config.calendar.timezone: %w", err)
	}
	return loc, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML with a fresh sandbox secret.
func GenerateDefault(secret string) string {
	return fmt.Sprintf(defaultTemplate, secret)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	cfg.API.BaseURL = "http://127.0.0.1:8080/api"
	cfg.API.Timeout = 15 * time.Second
	cfg.Workspace = "."
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Calendar.DefaultView = "month"
	cfg.Sandbox = Sandbox{
		Addr:      "127.0.0.1:8080",
		JWTSecret: "bizdesk-sandbox-secret",
		TokenTTL:  12 * time.Hour,
		Issuer:    "bizdesk-sandbox",
		Seed:      true,
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from the file keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `api:
  base_url: http://127.0.0.1:8080/api
  timeout: 15s

workspace: .

log:
  level: info
  format: text

calendar:
  # IANA zone used to decide what "today" is; empty means the system zone
  timezone: ""
  default_view: month

sandbox:
  addr: 127.0.0.1:8080
  jwt_secret: %s
  token_ttl: 12h
  issuer: bizdesk-sandbox
  seed: true
`
