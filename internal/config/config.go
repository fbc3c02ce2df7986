// Package config loads archq settings from defaults, an optional config
// file and ARCHQ_* environment variables, in increasing precedence.
//
// Keys are dotted ("engine.page_size"); the environment form upper-cases
// them and replaces dots with underscores (ARCHQ_ENGINE_PAGE_SIZE).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/archq/internal/parser"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ARCHQ"

// Config is the complete archq configuration.
type Config struct {
	Limits Limits `mapstructure:"limits"`
	Engine Engine `mapstructure:"engine"`
}

// Limits bounds what the parser accepts.
type Limits struct {
	MaxRequestBytes int `mapstructure:"max_request_bytes"`
	MaxNestingDepth int `mapstructure:"max_nesting_depth"`
	MaxHops         int `mapstructure:"max_hops"`
	MaxDepthWindow  int `mapstructure:"max_depth_window"`
}

// Engine tunes the reference execution engine.
type Engine struct {
	PageSize               int           `mapstructure:"page_size"`
	CursorTTL              time.Duration `mapstructure:"cursor_ttl"`
	CacheSize              int           `mapstructure:"cache_size"`
	MaxIntermediateResults int           `mapstructure:"max_intermediate_results"`
}

// Default returns the built-in configuration.
func Default() Config {
	l := parser.DefaultLimits()
	return Config{
		Limits: Limits{
			MaxRequestBytes: l.MaxRequestBytes,
			MaxNestingDepth: l.MaxNestingDepth,
			MaxHops:         l.MaxHops,
			MaxDepthWindow:  l.MaxDepthWindow,
		},
		Engine: Engine{
			PageSize:               100,
			CursorTTL:              5 * time.Minute,
			CacheSize:              256,
			MaxIntermediateResults: 10000,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("limits.max_request_bytes", d.Limits.MaxRequestBytes)
	v.SetDefault("limits.max_nesting_depth", d.Limits.MaxNestingDepth)
	v.SetDefault("limits.max_hops", d.Limits.MaxHops)
	v.SetDefault("limits.max_depth_window", d.Limits.MaxDepthWindow)
	v.SetDefault("engine.page_size", d.Engine.PageSize)
	v.SetDefault("engine.cursor_ttl", d.Engine.CursorTTL)
	v.SetDefault("engine.cache_size", d.Engine.CacheSize)
	v.SetDefault("engine.max_intermediate_results", d.Engine.MaxIntermediateResults)
}

// Load reads the configuration. path names an optional yaml, json or toml
// file; an empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	positive := func(key string, n int) {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, n))
		}
	}
	positive("limits.max_request_bytes", c.Limits.MaxRequestBytes)
	positive("limits.max_nesting_depth", c.Limits.MaxNestingDepth)
	positive("limits.max_hops", c.Limits.MaxHops)
	positive("limits.max_depth_window", c.Limits.MaxDepthWindow)
	positive("engine.page_size", c.Engine.PageSize)
	positive("engine.cache_size", c.Engine.CacheSize)
	positive("engine.max_intermediate_results", c.Engine.MaxIntermediateResults)
	if c.Engine.CursorTTL <= 0 {
		errs = append(errs, fmt.Errorf("engine.cursor_ttl must be positive, got %s", c.Engine.CursorTTL))
	}
	return errors.Join(errs...)
}

// ParserLimits converts the limits section for the parser.
func (c Config) ParserLimits() parser.Limits {
	return parser.Limits{
		MaxRequestBytes: c.Limits.MaxRequestBytes,
		MaxNestingDepth: c.Limits.MaxNestingDepth,
		MaxHops:         c.Limits.MaxHops,
		MaxDepthWindow:  c.Limits.MaxDepthWindow,
	}
}
