// Package config loads eventboard settings from defaults, an optional YAML
// file and EVENTBOARD_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/gabrielmiguelok/eventboard/pkg/events"
	"github.com/gabrielmiguelok/eventboard/pkg/limits"
	"github.com/gabrielmiguelok/eventboard/pkg/logging"
	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
	"github.com/gabrielmiguelok/eventboard/pkg/transport"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "EVENTBOARD_"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Timeouts groups the server and socket deadlines. Read bounds request
// headers; Write bounds each live socket frame. Ping is both the server ping
// interval and the client heartbeat interval; a socket that sends nothing
// for two of them is closed. Session is how long an untouched browser
// session keeps its stored credentials.
type Timeouts struct {
	Read     time.Duration `yaml:"read" env:"READ"`
	Write    time.Duration `yaml:"write" env:"WRITE"`
	Idle     time.Duration `yaml:"idle" env:"IDLE"`
	Ping     time.Duration `yaml:"ping" env:"PING"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN"`
	Session  time.Duration `yaml:"session" env:"SESSION"`
}

// RateLimit is a token bucket: Rate tokens per second up to Burst.
type RateLimit struct {
	Rate  float64 `yaml:"rate" env:"RATE"`
	Burst int     `yaml:"burst" env:"BURST"`
}

// Config holds every runtime setting.
type Config struct {
	Address  string `yaml:"address" env:"ADDRESS"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	LogJSON  bool   `yaml:"log_json" env:"LOG_JSON"`

	// Codec frames live socket messages: json or msgpack.
	Codec string `yaml:"codec" env:"CODEC"`

	AllowedOrigins  []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	InsecureDevMode bool     `yaml:"insecure_dev_mode" env:"INSECURE_DEV_MODE"`

	// MaxSockets caps concurrent live connections. Zero disables the cap.
	MaxSockets int `yaml:"max_sockets" env:"MAX_SOCKETS"`

	// RateLimit bounds client events per live connection and form posts
	// per browser session. A zero rate disables it.
	RateLimit RateLimit `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`

	Timeouts Timeouts `yaml:"timeouts" envPrefix:"TIMEOUT_"`

	// Categories offered by the event form.
	Categories []string `yaml:"categories" env:"CATEGORIES" envSeparator:","`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Address:    ":8080",
		LogLevel:   "info",
		Codec:      "json",
		MaxSockets: 1000,
		RateLimit:  RateLimit{Rate: 20, Burst: 40},
		Timeouts: Timeouts{
			Read:     15 * time.Second,
			Write:    15 * time.Second,
			Idle:     60 * time.Second,
			Ping:     30 * time.Second,
			Shutdown: 10 * time.Second,
			Session:  24 * time.Hour,
		},
		Categories: append([]string(nil), events.Categories...),
	}
}

// Load builds a Config. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Address == "" {
		errs = append(errs, errors.New("address is empty"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := protocol.NewCodec(c.Codec); err != nil {
		errs = append(errs, err)
	}
	if c.MaxSockets < 0 {
		errs = append(errs, fmt.Errorf("max_sockets must not be negative, got %d", c.MaxSockets))
	}

	if c.RateLimit.Rate < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.rate must not be negative, got %g", c.RateLimit.Rate))
	}
	if c.RateLimit.Rate > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be at least 1, got %d", c.RateLimit.Burst))
	}

	for name, d := range map[string]time.Duration{
		"read":     c.Timeouts.Read,
		"write":    c.Timeouts.Write,
		"idle":     c.Timeouts.Idle,
		"ping":     c.Timeouts.Ping,
		"shutdown": c.Timeouts.Shutdown,
		"session":  c.Timeouts.Session,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("timeouts.%s must be positive", name))
		}
	}

	if len(c.Categories) == 0 {
		errs = append(errs, errors.New("categories is empty"))
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat == "" || seen[cat] {
			errs = append(errs, fmt.Errorf("category %q is empty or duplicated", cat))
		}
		seen[cat] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level. Call after Validate.
func (c *Config) Level() slog.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}

// Limiter returns the configured rate limiter, or nil when disabled.
func (c *Config) Limiter() limits.Limiter {
	if c.RateLimit.Rate == 0 {
		return nil
	}
	return limits.NewTokenBucket(c.RateLimit.Rate, c.RateLimit.Burst)
}

// Transport builds the live socket configuration.
func (c *Config) Transport() (*transport.Config, error) {
	codec, err := protocol.NewCodec(c.Codec)
	if err != nil {
		return nil, err
	}

	tc := transport.DefaultConfig()
	tc.Codec = codec
	tc.WriteTimeout = c.Timeouts.Write
	tc.PingInterval = c.Timeouts.Ping
	tc.ReadTimeout = 2 * c.Timeouts.Ping
	tc.AllowedOrigins = c.AllowedOrigins
	tc.InsecureDevMode = c.InsecureDevMode
	return tc, nil
}
