package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestGenerateDefaultRoundTrip(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault("0123456789abcdef0123")))
	if err != nil {
		t.Fatalf("parse generated config: %v", err)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", cfg.API.Timeout)
	}
	if cfg.Sandbox.JWTSecret != "0123456789abcdef0123" {
		t.Fatalf("unexpected secret %q", cfg.Sandbox.JWTSecret)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
	if cfg.API.BaseURL != "http://127.0.0.1:8080/api" {
		t.Fatalf("base url default lost: %q", cfg.API.BaseURL)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"base_url":     "api:\n  base_url: /relative\n",
		"scheme":       "api:\n  base_url: ftp://host/api\n",
		"log.level":    "log:\n  level: loud\n",
		"log.format":   "log:\n  format: xml\n",
		"timezone":     "calendar:\n  timezone: Mars/Olympus\n",
		"default_view": "calendar:\n  default_view: year\n",
		"jwt_secret":   "sandbox:\n  jwt_secret: short\n",
	}
	for want, doc := range cases {
		_, err := FromYAML([]byte(doc))
		if err == nil {
			t.Fatalf("%s: expected error", want)
		}
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("%s: unexpected error %v", want, err)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil || cfg == nil {
		t.Fatalf("missing file should yield defaults: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("Load should fail without a file")
	}
	if err := os.WriteFile(Path(dir), []byte("calendar:\n  default_view: week\n  timezone: UTC\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = LoadOptional(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loc, _ := cfg.Location()
	if cfg.Calendar.DefaultView != "week" || loc != time.UTC {
		t.Fatalf("unexpected calendar config %+v", cfg.Calendar)
	}
}
