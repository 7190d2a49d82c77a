// Package config loads the grants client configuration from a TOML file and
// an optional .env file.
package config

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/letmevibethatforyou/grantsx/algolia"
	"github.com/letmevibethatforyou/grantsx/internal/pagecache"
	"github.com/letmevibethatforyou/grantsx/pagination"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the config file name inside the user config directory.
const FileName = "config.toml"

// Duration is a time.Duration written as a Go duration string ("5m").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the application configuration
type Config struct {
	APIURL      string   `toml:"api_url"`
	Token       string   `toml:"token"`
	PageSize    int      `toml:"page_size"`
	CacheTTL    Duration `toml:"cache_ttl"`
	CacheSize   int      `toml:"cache_size"`
	Retries     int      `toml:"retries"`
	OfflineData string   `toml:"offline_data"`
	Algolia     Algolia  `toml:"algolia"`
}

// Algolia configures the matched-grants index.
type Algolia struct {
	Index     string `toml:"index"`
	SecretARN string `toml:"secret_arn"`
	Env       string `toml:"env"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		PageSize:  int(pagination.DefaultPageSize),
		CacheTTL:  Duration{pagecache.DefaultTTL},
		CacheSize: pagecache.DefaultSize,
		Algolia:   Algolia{Index: algolia.DefaultIndex},
	}
}

// DefaultPath returns the config file location in the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, err = os.UserHomeDir()
		if err != nil {
			dir = "."
		}
		dir = filepath.Join(dir, ".config")
	}
	return filepath.Join(dir, "grantsx", FileName)
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := Parse(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	return cfg, nil
}

// Parse decodes TOML data into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return errors.Wrap(err, "failed to parse config")
	}
	return cfg.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := pagination.ParsePageSize(c.PageSize); err != nil {
		return err
	}
	if c.CacheTTL.Duration <= 0 {
		return errors.Newf("cache_ttl must be positive, got %s", c.CacheTTL)
	}
	if c.CacheSize <= 0 {
		return errors.Newf("cache_size must be positive, got %d", c.CacheSize)
	}
	if c.Retries < 0 {
		return errors.Newf("retries must not be negative, got %d", c.Retries)
	}
	return nil
}

// Encode renders cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	return data, nil
}

// LoadEnv loads variables from the given .env files into the process
// environment without overriding variables already set. Missing files are
// skipped.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return errors.Wrapf(err, "failed to load %s", p)
		}
	}
	return nil
}
