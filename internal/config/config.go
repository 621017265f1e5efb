// Package config loads the fitlink YAML configuration with env-var
// overrides for the values that differ per machine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fitproapp/fitlink/internal/provider"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Gateway struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"gateway"`

	Store struct {
		Driver string `yaml:"driver"` // memory | file | redis
		Prefix string `yaml:"prefix"`
		File   struct {
			Path       string `yaml:"path"`
			Passphrase string `yaml:"passphrase"`
		} `yaml:"file"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"store"`

	Linking struct {
		Timeout      time.Duration `yaml:"timeout"`
		CallbackAddr string        `yaml:"callback_addr"`
		CallbackPath string        `yaml:"callback_path"`
	} `yaml:"linking"`

	Providers map[string]struct {
		PathPrefix string `yaml:"path_prefix"`
		StorageKey string `yaml:"storage_key"`
	} `yaml:"providers"`
}

// Load reads path (optional) and applies defaults and env overrides.
// Recognized env vars: FITLINK_GATEWAY_URL, FITLINK_STORE_DRIVER,
// FITLINK_STORE_PATH, FITLINK_REDIS_ADDR, FITLINK_LOG_LEVEL, FITLINK_ENV.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := env("FITLINK_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := env("FITLINK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := env("FITLINK_GATEWAY_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := env("FITLINK_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := env("FITLINK_STORE_PATH"); v != "" {
		cfg.Store.File.Path = v
	}
	if v := env("FITLINK_REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Env == "" {
		cfg.App.Env = "dev"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "http://127.0.0.1:8000"
	}
	if cfg.Gateway.Timeout <= 0 {
		cfg.Gateway.Timeout = 10 * time.Second
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "file"
	}
	if cfg.Store.File.Path == "" {
		cfg.Store.File.Path = defaultStorePath()
	}
	if cfg.Linking.Timeout <= 0 {
		cfg.Linking.Timeout = 300 * time.Second
	}
	if cfg.Linking.CallbackAddr == "" {
		cfg.Linking.CallbackAddr = "127.0.0.1:8457"
	}
	if cfg.Linking.CallbackPath == "" {
		cfg.Linking.CallbackPath = "/callback"
	}
}

// Provider resolves a built-in provider and applies any config override.
func (c *Config) Provider(name string) (provider.Provider, error) {
	p, err := provider.ByName(name)
	if err != nil {
		return p, err
	}
	if o, ok := c.Providers[p.Name]; ok {
		if o.PathPrefix != "" {
			p.PathPrefix = o.PathPrefix
		}
		if o.StorageKey != "" {
			p.StorageKey = o.StorageKey
		}
	}
	return p, nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "fitlink-credentials.json"
	}
	return filepath.Join(home, ".fitlink", "credentials.json")
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
