// Package config loads jot's settings from .jot.yaml and JOT_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"tableflip.dev/jot/pkg/auth"
	"tableflip.dev/jot/pkg/geo"
	"tableflip.dev/jot/pkg/store"
)

// Config is the resolved configuration.
type Config struct {
	Path      string        `mapstructure:"path"`
	Store     store.Backend `mapstructure:"store"`
	Redis     RedisConfig   `mapstructure:"redis"`
	Owner     string        `mapstructure:"owner"`
	Verified  bool          `mapstructure:"verified"`
	Language  string        `mapstructure:"language"`
	Location  LocationConfig
	Log       LogConfig
	Metrics   MetricsConfig
	BlobsPath string `mapstructure:"blobs"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type LocationConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Address   string  `mapstructure:"address"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

var _ store.Config = (*Config)(nil)

// BasePath is the diskv root with ~ expanded.
func (c *Config) BasePath() string {
	return expand(c.Path)
}

func (c *Config) Backend() store.Backend {
	return c.Store
}

func (c *Config) RedisAddr() string {
	return c.Redis.Addr
}

// BlobPath is where local attachments live.
func (c *Config) BlobPath() string {
	return expand(c.BlobsPath)
}

// Auth returns the identity configured for this machine.
func (c *Config) Auth() auth.Provider {
	return auth.Static{ID: c.Owner, IsVerified: c.Verified}
}

// Locator returns the configured fixed location.
func (c *Config) Locator() geo.Locator {
	return geo.Fixed{
		Latitude:  c.Location.Latitude,
		Longitude: c.Location.Longitude,
		Address:   c.Location.Address,
	}
}

// envReplacer maps nested keys such as redis.addr onto JOT_REDIS_ADDR.
var envReplacer = strings.NewReplacer(".", "_")

func expand(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// Load reads configuration into v. The file .jot.yaml is searched in
// $JOT_CONFIG_PATH, the working directory and the home directory.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetDefault("path", "~/.jot.db")
	v.SetDefault("blobs", "~/.jot.blobs")
	v.SetDefault("store", string(store.BackendDiskv))
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("location.latitude", 0.0)
	v.SetDefault("location.longitude", 0.0)
	v.SetDefault("location.address", "")
	v.SetDefault("owner", "")
	v.SetDefault("verified", false)
	v.SetDefault("language", "und")
	v.SetDefault("metrics.addr", "")
	v.SetConfigName(".jot") // .yaml is implicit
	v.SetEnvPrefix("JOT")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	if override := os.Getenv("JOT_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	switch cfg.Store {
	case store.BackendDiskv, store.BackendRedis, store.BackendMemory:
	default:
		return nil, fmt.Errorf("config: unknown store %q", cfg.Store)
	}
	return cfg, nil
}
