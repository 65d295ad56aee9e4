// Package config loads poolctl's configuration: log level plus the list
// of pool endpoints to build, layered flags > env > file > defaults via
// viper, the way the teacher's own pkg/config.Load() layers env overrides
// on top of a JSON file plus hardcoded defaults.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"poolkit/pkg/env"
)

// Endpoint describes one pool to build: a Redis address plus the pool
// builder options to apply to it.
type Endpoint struct {
	Name     string `mapstructure:"name" json:"name"`
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
	MaxSize  int    `mapstructure:"maxsize" json:"maxsize"`
	Timeout  int    `mapstructure:"timeout" json:"timeout"` // seconds; 0 disables
	Check    int    `mapstructure:"check" json:"check"`     // seconds; -1 disables
}

// Config is poolctl's whole configuration surface.
type Config struct {
	LogLevel  string     `mapstructure:"log_level" json:"log_level"`
	Endpoints []Endpoint `mapstructure:"endpoints" json:"endpoints"`
}

// Load merges, in increasing priority, hardcoded defaults, an optional
// config file (configPath, read through fs so tests can use an in-memory
// filesystem), the POOLCTL_* environment, and command-line flags. If no
// endpoints end up configured through any of those layers, it falls back
// to the teacher-style prefixed POOL_N_* environment variables
// (env.ReadEndpointsFromEnv), so a minimal deployment never needs a
// config file at all.
func Load(fs afero.Fs, flags *pflag.FlagSet, configPath string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix("POOLCTL")
	v.AutomaticEnv()
	v.SetDefault("log_level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = env.LogLevel()
	}

	if len(cfg.Endpoints) == 0 {
		for _, e := range env.ReadEndpointsFromEnv() {
			cfg.Endpoints = append(cfg.Endpoints, Endpoint{
				Name:     e.Name,
				Addr:     e.Addr,
				Password: e.Password,
				DB:       e.DB,
				MaxSize:  e.MaxSize,
				Timeout:  e.Timeout,
				Check:    e.Check,
			})
		}
	}

	return cfg, nil
}
