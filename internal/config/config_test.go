package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Env != "dev" || cfg.Log.Level != "info" {
		t.Fatalf("app defaults: env=%q level=%q", cfg.App.Env, cfg.Log.Level)
	}
	if cfg.Gateway.BaseURL != "http://127.0.0.1:8000" || cfg.Gateway.Timeout != 10*time.Second {
		t.Fatalf("gateway defaults: %+v", cfg.Gateway)
	}
	if cfg.Store.Driver != "file" || cfg.Store.File.Path == "" {
		t.Fatalf("store defaults: %+v", cfg.Store)
	}
	if cfg.Linking.Timeout != 300*time.Second {
		t.Fatalf("linking timeout default: %v", cfg.Linking.Timeout)
	}
	if cfg.Linking.CallbackAddr != "127.0.0.1:8457" || cfg.Linking.CallbackPath != "/callback" {
		t.Fatalf("callback defaults: %+v", cfg.Linking)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fitlink.yaml")
	body := `
app:
  env: prod
log:
  level: warn
gateway:
  base_url: https://api.fitpro.example
  timeout: 3s
store:
  driver: redis
  redis:
    addr: 10.0.0.5:6379
    db: 2
linking:
  timeout: 90s
providers:
  music:
    path_prefix: deezer
    storage_key: deezer
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Env != "prod" || cfg.Log.Level != "warn" {
		t.Fatalf("app section: %+v %+v", cfg.App, cfg.Log)
	}
	if cfg.Gateway.BaseURL != "https://api.fitpro.example" || cfg.Gateway.Timeout != 3*time.Second {
		t.Fatalf("gateway section: %+v", cfg.Gateway)
	}
	if cfg.Store.Driver != "redis" || cfg.Store.Redis.Addr != "10.0.0.5:6379" || cfg.Store.Redis.DB != 2 {
		t.Fatalf("store section: %+v", cfg.Store)
	}
	if cfg.Linking.Timeout != 90*time.Second {
		t.Fatalf("linking timeout: %v", cfg.Linking.Timeout)
	}

	p, err := cfg.Provider("music")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p.PathPrefix != "deezer" || p.StorageKey != "deezer" {
		t.Fatalf("provider override not applied: %+v", p)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fitlink.yaml")
	if err := os.WriteFile(path, []byte("gateway:\n  base_url: https://file.example\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FITLINK_GATEWAY_URL", "https://env.example")
	t.Setenv("FITLINK_STORE_DRIVER", "memory")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.BaseURL != "https://env.example" {
		t.Fatalf("env must win over file: %q", cfg.Gateway.BaseURL)
	}
	if cfg.Store.Driver != "memory" {
		t.Fatalf("store driver: %q", cfg.Store.Driver)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config path")
	}
}

func TestProvider_Unknown(t *testing.T) {
	cfg, _ := Load("")
	if _, err := cfg.Provider("fax-machine"); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}
