package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/eventboard/pkg/events"
	"github.com/gabrielmiguelok/eventboard/pkg/protocol"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eventboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, "json", cfg.Codec)
	assert.Equal(t, events.Categories, cfg.Categories)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Ping)
	assert.Equal(t, 24*time.Hour, cfg.Timeouts.Session)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
address: ":9000"
log_level: debug
codec: msgpack
max_sockets: 5
timeouts:
  ping: 5s
categories: [Concert, Theatre]
`)
	t.Setenv("EVENTBOARD_ADDRESS", ":9100")
	t.Setenv("EVENTBOARD_TIMEOUT_SHUTDOWN", "3s")
	t.Setenv("EVENTBOARD_TIMEOUT_SESSION", "2h")
	t.Setenv("EVENTBOARD_RATE_LIMIT_RATE", "2.5")
	t.Setenv("EVENTBOARD_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Address, "env overrides file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "msgpack", cfg.Codec)
	assert.Equal(t, 5, cfg.MaxSockets)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Ping)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.Shutdown)
	assert.Equal(t, 2*time.Hour, cfg.Timeouts.Session)
	assert.Equal(t, RateLimit{Rate: 2.5, Burst: 40}, cfg.RateLimit)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.Read, "untouched defaults survive")
	assert.Equal(t, []string{"Concert", "Theatre"}, cfg.Categories)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_UnknownFileKey(t *testing.T) {
	path := writeFile(t, "adress: \":9000\"\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Address = "" }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad codec", func(c *Config) { c.Codec = "xml" }},
		{"negative sockets", func(c *Config) { c.MaxSockets = -1 }},
		{"zero timeout", func(c *Config) { c.Timeouts.Write = 0 }},
		{"zero session", func(c *Config) { c.Timeouts.Session = 0 }},
		{"negative rate", func(c *Config) { c.RateLimit.Rate = -1 }},
		{"rate without burst", func(c *Config) { c.RateLimit.Burst = 0 }},
		{"no categories", func(c *Config) { c.Categories = nil }},
		{"duplicate category", func(c *Config) { c.Categories = []string{"Concert", "Concert"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestTransport(t *testing.T) {
	cfg := Default()
	cfg.Codec = "msgpack"
	cfg.AllowedOrigins = []string{"https://a.example"}

	tc, err := cfg.Transport()
	require.NoError(t, err)

	assert.True(t, tc.Codec.Binary())
	assert.Equal(t, protocol.MsgPackCodec{}, tc.Codec)
	assert.Equal(t, cfg.Timeouts.Ping, tc.PingInterval)
	assert.Equal(t, 2*cfg.Timeouts.Ping, tc.ReadTimeout, "the client heartbeats every Ping")
	assert.Equal(t, cfg.Timeouts.Write, tc.WriteTimeout)
	assert.Equal(t, []string{"https://a.example"}, tc.AllowedOrigins)
}

func TestLimiter(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg.Limiter())

	cfg.RateLimit = RateLimit{}
	assert.NoError(t, cfg.Validate())
	assert.Nil(t, cfg.Limiter(), "a zero rate disables limiting")
}
