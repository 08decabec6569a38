// Package config loads granulestream settings from defaults, an optional
// config file, GRANULESTREAM_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/harshithgowdakt/granulestream/internal/compression"
	"github.com/harshithgowdakt/granulestream/internal/logging"
)

// EnvPrefix prefixes environment overrides, e.g. GRANULESTREAM_LOG_LEVEL.
const EnvPrefix = "GRANULESTREAM"

// Config is the full application configuration.
type Config struct {
	Log         logging.Config `mapstructure:"log"`
	Compression string         `mapstructure:"compression"`
	// BlockRows is the number of rows per generated block.
	BlockRows int           `mapstructure:"block_rows"`
	Query     QueryConfig   `mapstructure:"query"`
	Server    ServerConfig  `mapstructure:"server"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
}

// QueryConfig describes the pipeline run over native block files.
type QueryConfig struct {
	Files   []string `mapstructure:"files"`
	Filter  string   `mapstructure:"filter"`
	Columns []string `mapstructure:"columns"`
	OrderBy []string `mapstructure:"order_by"`
	Desc    bool     `mapstructure:"desc"`
	Limit   int64    `mapstructure:"limit"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	DataDir string `mapstructure:"data_dir"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

var defaults = map[string]any{
	"log.level":       "info",
	"log.pretty":      true,
	"compression":     "lz4",
	"block_rows":      8192,
	"query.limit":     0,
	"server.addr":     ":8123",
	"server.data_dir": "./granulestream-data",
	"metrics.enabled": false,
	"metrics.addr":    ":9363",
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-pretty":   "log.pretty",
	"compression":  "compression",
	"block-rows":   "block_rows",
	"filter":       "query.filter",
	"columns":      "query.columns",
	"order-by":     "query.order_by",
	"desc":         "query.desc",
	"limit":        "query.limit",
	"addr":         "server.addr",
	"data-dir":     "server.data_dir",
	"metrics":      "metrics.enabled",
	"metrics-addr": "metrics.addr",
}

// Load reads the configuration. path may be empty; flags may be nil. Only
// flags present in flags are bound.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Log.Output = logging.DefaultConfig().Output
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	var errs []error
	if c.BlockRows <= 0 {
		errs = append(errs, fmt.Errorf("block_rows must be positive, got %d", c.BlockRows))
	}
	if c.Query.Limit < 0 {
		errs = append(errs, fmt.Errorf("query.limit must not be negative, got %d", c.Query.Limit))
	}
	if c.Server.DataDir == "" {
		errs = append(errs, errors.New("server.data_dir must not be empty"))
	}
	if _, err := compression.CodecByName(c.Compression); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
