// Package config loads fleetwatch settings from flags, environment and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atikulmunna/fleetwatch/internal/scheduler"
	"github.com/atikulmunna/fleetwatch/internal/textsource"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "FLEETWATCH"

// Keys understood by Load.
const (
	KeyAPIKey        = "live.api_key"
	KeyModel         = "live.model"
	KeyEndpoint      = "live.endpoint"
	KeyTimeout       = "live.timeout"
	KeyRatePerMinute = "live.rate_per_minute"

	KeyCapacity      = "stream.capacity"
	KeyLowWater      = "stream.low_water"
	KeyBatchSize     = "stream.batch_size"
	KeyContextLines  = "stream.context_lines"
	KeyMinDelay      = "stream.min_delay"
	KeyMaxDelay      = "stream.max_delay"
	KeyFirstTurnLive = "stream.first_turn_live"
	KeyPaused        = "stream.paused"

	KeySeeds = "seeds"
	KeyPort  = "server.port"
	KeyPprof = "server.pprof"
)

// Config is the typed view of all settings.
type Config struct {
	Live   LiveConfig   `mapstructure:"live"`
	Stream StreamConfig `mapstructure:"stream"`
	Seeds  []string     `mapstructure:"seeds"`
	Server ServerConfig `mapstructure:"server"`
}

// LiveConfig configures the generative text source.
type LiveConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	Endpoint      string        `mapstructure:"endpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerMinute float64       `mapstructure:"rate_per_minute"`
}

// StreamConfig configures the scheduler pacing.
type StreamConfig struct {
	Capacity      int           `mapstructure:"capacity"`
	LowWater      int           `mapstructure:"low_water"`
	BatchSize     int           `mapstructure:"batch_size"`
	ContextLines  int           `mapstructure:"context_lines"`
	MinDelay      time.Duration `mapstructure:"min_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	FirstTurnLive bool          `mapstructure:"first_turn_live"`
	Paused        bool          `mapstructure:"paused"`
}

// ServerConfig configures the web dashboard.
type ServerConfig struct {
	Port  string `mapstructure:"port"`
	Pprof bool   `mapstructure:"pprof"`
}

// SetDefaults registers the stock values on v.
func SetDefaults(v *viper.Viper) {
	sched := scheduler.DefaultConfig()

	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyModel, textsource.DefaultModel)
	v.SetDefault(KeyEndpoint, textsource.DefaultEndpoint)
	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyRatePerMinute, 0)

	v.SetDefault(KeyCapacity, sched.Capacity)
	v.SetDefault(KeyLowWater, sched.LowWater)
	v.SetDefault(KeyBatchSize, sched.BatchSize)
	v.SetDefault(KeyContextLines, sched.ContextLines)
	v.SetDefault(KeyMinDelay, sched.MinDelay)
	v.SetDefault(KeyMaxDelay, sched.MaxDelay)
	v.SetDefault(KeyFirstTurnLive, true)
	v.SetDefault(KeyPaused, false)

	v.SetDefault(KeySeeds, []string{})
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyPprof, false)
}

// BindEnv enables FLEETWATCH_* overrides. The credential also honours
// GEMINI_API_KEY and API_KEY.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v.BindEnv(KeyAPIKey, EnvPrefix+"_LIVE_API_KEY", "GEMINI_API_KEY", "API_KEY")
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	// Comma-separated env values arrive as a single string.
	cfg.Seeds = splitList(cfg.Seeds)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the scheduler relies on.
// A missing API key is not an error; the stream runs on seeds alone.
func (c Config) Validate() error {
	var errs []error
	s := c.Stream
	if s.Capacity < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyCapacity, s.Capacity))
	}
	if s.LowWater < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeyLowWater, s.LowWater))
	}
	if s.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyBatchSize, s.BatchSize))
	}
	if s.ContextLines < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeyContextLines, s.ContextLines))
	}
	if s.MinDelay <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeyMinDelay, s.MinDelay))
	}
	if s.MaxDelay < s.MinDelay {
		errs = append(errs, fmt.Errorf("%s (%s) must not be below %s (%s)", KeyMaxDelay, s.MaxDelay, KeyMinDelay, s.MinDelay))
	}
	if c.Live.RatePerMinute < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyRatePerMinute))
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Scheduler returns the scheduler pacing settings.
func (c Config) Scheduler() scheduler.Config {
	return scheduler.Config{
		Capacity:     c.Stream.Capacity,
		LowWater:     c.Stream.LowWater,
		BatchSize:    c.Stream.BatchSize,
		ContextLines: c.Stream.ContextLines,
		MinDelay:     c.Stream.MinDelay,
		MaxDelay:     c.Stream.MaxDelay,
		SeedFirst:    !c.Stream.FirstTurnLive,
	}
}

// TextSource returns the live source settings.
func (c Config) TextSource() textsource.Config {
	return textsource.Config{
		APIKey:        c.Live.APIKey,
		Model:         c.Live.Model,
		Endpoint:      c.Live.Endpoint,
		Timeout:       c.Live.Timeout,
		RatePerMinute: c.Live.RatePerMinute,
	}
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
