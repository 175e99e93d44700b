// Package config loads the studio configuration file.
//
// The file is TOML. Every key is optional; a missing file yields [Default].
//
//	[export]
//	image_timeout  = "10s"
//	settle_timeout = "2s"
//	settle_delay   = "100ms"
//	output_dir     = "."
//
//	[cache]
//	backend    = "file"   # file | redis | none
//	dir        = ""       # defaults to $XDG_CACHE_HOME/templatestudio
//	ttl        = "24h"
//	redis_addr = "localhost:6379"
//
//	[fetch]
//	timeout  = "15s"
//	attempts = 3
//
//	[fonts]
//	dir = ""
//
//	[server]
//	addr = "127.0.0.1:7878"
//
// Durations are Go duration strings.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/templatestudio/pkg/errors"
)

// AppName names the config and cache directories.
const AppName = "templatestudio"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Duration is a time.Duration that decodes from a TOML string such as "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full studio configuration.
type Config struct {
	Export ExportConfig `toml:"export"`
	Cache  CacheConfig  `toml:"cache"`
	Fetch  FetchConfig  `toml:"fetch"`
	Fonts  FontsConfig  `toml:"fonts"`
	Server ServerConfig `toml:"server"`
}

// ExportConfig tunes the export pipeline.
type ExportConfig struct {
	// ImageTimeout bounds the wait for each image's load-or-error event.
	ImageTimeout Duration `toml:"image_timeout"`
	// SettleTimeout bounds the wait for the document's settled signal.
	SettleTimeout Duration `toml:"settle_timeout"`
	// SettleDelay is used for surfaces that cannot signal settlement.
	SettleDelay Duration `toml:"settle_delay"`
	OutputDir   string   `toml:"output_dir"`
}

// CacheConfig selects and tunes the image cache backend.
type CacheConfig struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	TTL       Duration `toml:"ttl"`
	RedisAddr string   `toml:"redis_addr"`
}

// FetchConfig tunes remote image fetching.
type FetchConfig struct {
	Timeout  Duration `toml:"timeout"`
	Attempts int      `toml:"attempts"`
}

// FontsConfig points at extra font files.
type FontsConfig struct {
	Dir string `toml:"dir"`
}

// ServerConfig configures the local studio server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Export: ExportConfig{
			ImageTimeout:  Duration{10 * time.Second},
			SettleTimeout: Duration{2 * time.Second},
			SettleDelay:   Duration{100 * time.Millisecond},
			OutputDir:     ".",
		},
		Cache: CacheConfig{
			Backend:   BackendFile,
			TTL:       Duration{24 * time.Hour},
			RedisAddr: "localhost:6379",
		},
		Fetch: FetchConfig{
			Timeout:  Duration{15 * time.Second},
			Attempts: 3,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7878",
		},
	}
}

// Load reads the file at path on top of [Default]. An empty path means
// [DefaultPath]; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "cannot parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges and the cache backend name.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidConfig, format, args...)
	}

	switch {
	case c.Export.ImageTimeout.Duration <= 0:
		return bad("export.image_timeout must be positive")
	case c.Export.SettleTimeout.Duration <= 0:
		return bad("export.settle_timeout must be positive")
	case c.Export.SettleDelay.Duration < 0:
		return bad("export.settle_delay must not be negative")
	case c.Fetch.Timeout.Duration <= 0:
		return bad("fetch.timeout must be positive")
	case c.Fetch.Attempts < 1:
		return bad("fetch.attempts must be at least 1")
	case c.Cache.TTL.Duration < 0:
		return bad("cache.ttl must not be negative")
	}

	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return bad("cache.redis_addr is required for the redis backend")
		}
	default:
		return bad("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// CacheDir returns the configured cache directory or the XDG default
// (~/.cache/templatestudio/).
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// DefaultPath returns $XDG_CONFIG_HOME/templatestudio/config.toml, falling
// back to ~/.config.
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}
