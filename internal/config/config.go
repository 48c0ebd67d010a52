// Package config loads the deployment settings shared by the gateway and
// the vcctl CLI: a YAML file, then environment variables, optionally read
// from a .env file first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/anam145/go-credential-sdk/credential/common/canonical"
)

type Config struct {
	App struct {
		// dev | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	DID struct {
		Method     string `yaml:"method"`
		IssuerName string `yaml:"issuer_name"`
	} `yaml:"did"`

	Canonical struct {
		// server | mobile-legacy | server-rdf
		Profile string `yaml:"profile"`
	} `yaml:"canonical"`

	Ledger struct {
		// memory | http
		Kind    string `yaml:"kind"`
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
		// Addr is where `vcctl ledger serve` listens.
		Addr string `yaml:"addr"`
	} `yaml:"ledger"`

	KeyStore struct {
		// memory | file
		Kind string `yaml:"kind"`
		Dir  string `yaml:"dir"`
	} `yaml:"keystore"`

	Cache struct {
		// none | memory | redis
		Kind  string `yaml:"kind"`
		TTL   string `yaml:"ttl"`
		Redis struct {
			Addr     string `yaml:"addr"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadEnvFile loads variables from a .env file into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.DID.Method == "" {
		c.DID.Method = "anam145"
	}
	if c.DID.IssuerName == "" {
		c.DID.IssuerName = "Government24"
	}
	if c.Canonical.Profile == "" {
		c.Canonical.Profile = canonical.ServerProfile.Name
	}
	if c.Ledger.Kind == "" {
		c.Ledger.Kind = "memory"
	}
	if c.Ledger.Timeout == "" {
		c.Ledger.Timeout = "5s"
	}
	if c.Ledger.Addr == "" {
		c.Ledger.Addr = ":8080"
	}
	if c.KeyStore.Kind == "" {
		c.KeyStore.Kind = "file"
	}
	if c.KeyStore.Dir == "" {
		c.KeyStore.Dir = "storage"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "none"
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "2m"
	}
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := getEnvStr("DID_METHOD"); ok {
		c.DID.Method = v
	}
	if v, ok := getEnvStr("ISSUER_NAME"); ok {
		c.DID.IssuerName = v
	}
	if v, ok := getEnvStr("CANONICAL_PROFILE"); ok {
		c.Canonical.Profile = v
	}
	if v, ok := getEnvStr("LEDGER_KIND"); ok {
		c.Ledger.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LEDGER_URL"); ok {
		c.Ledger.URL = v
	}
	if v, ok := getEnvStr("LEDGER_TIMEOUT"); ok {
		c.Ledger.Timeout = v
	}
	if v, ok := getEnvStr("LEDGER_ADDR"); ok {
		c.Ledger.Addr = v
	}
	if v, ok := getEnvStr("KEYSTORE_KIND"); ok {
		c.KeyStore.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_PATH"); ok {
		c.KeyStore.Dir = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvStr("METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if _, err := c.Profile(); err != nil {
		return err
	}
	if _, err := c.LedgerTimeout(); err != nil {
		return err
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	switch c.Ledger.Kind {
	case "memory":
	case "http":
		if c.Ledger.URL == "" {
			return fmt.Errorf("ledger.url is required for the http ledger")
		}
	default:
		return fmt.Errorf("unknown ledger kind %q", c.Ledger.Kind)
	}
	switch c.KeyStore.Kind {
	case "memory", "file":
	default:
		return fmt.Errorf("unknown keystore kind %q", c.KeyStore.Kind)
	}
	switch c.Cache.Kind {
	case "none", "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown cache kind %q", c.Cache.Kind)
	}
	return nil
}

// Profile returns the canonical profile every signer and verifier of the
// deployment uses.
func (c *Config) Profile() (canonical.Profile, error) {
	return canonical.LookupProfile(c.Canonical.Profile)
}

// LedgerTimeout bounds each ledger lookup.
func (c *Config) LedgerTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Ledger.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid ledger.timeout: %w", err)
	}
	return d, nil
}

// CacheTTL is how long resolved DID documents are cached.
func (c *Config) CacheTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache.ttl: %w", err)
	}
	return d, nil
}

func getEnvStr(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
	}
	return 0, false
}
