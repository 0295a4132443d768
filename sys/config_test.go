package sys

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Token:          "token",
		Prefix:         "!",
		IdleTimeout:    2 * time.Minute,
		ResolveTimeout: 30 * time.Second,
		ConnectTimeout: 20 * time.Second,
		CommandRate:    2,
		CommandBurst:   5,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"valid guild", func(c *Config) { c.GuildID = "111111111111111111" }, ""},
		{"missing token", func(c *Config) { c.Token = "" }, MsgConfigMissingToken},
		{"bad guild", func(c *Config) { c.GuildID = "abc" }, MsgConfigInvalidGuildID},
		{"short guild", func(c *Config) { c.GuildID = "12345" }, MsgConfigInvalidGuildID},
		{"blank prefix", func(c *Config) { c.Prefix = "  " }, "COMMAND_PREFIX"},
		{"zero idle", func(c *Config) { c.IdleTimeout = 0 }, "IDLE_TIMEOUT"},
		{"negative resolve", func(c *Config) { c.ResolveTimeout = -time.Second }, "RESOLVE_TIMEOUT"},
		{"zero connect", func(c *Config) { c.ConnectTimeout = 0 }, "CONNECT_TIMEOUT"},
		{"zero burst", func(c *Config) { c.CommandBurst = 0 }, "COMMAND_BURST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "secret")
	t.Setenv("COMMAND_PREFIX", "?")
	t.Setenv("IDLE_TIMEOUT", "90s")
	t.Setenv("OWNER_IDS", " 1, 2 ")
	t.Setenv("DATABASE_PATH", "/tmp/jukebox-test.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	t.Cleanup(func() { GlobalConfig = nil })

	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, "?", cfg.Prefix)
	assert.Equal(t, 90*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.ResolveTimeout)
	assert.Equal(t, 20*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 5, cfg.CommandBurst)
	assert.Equal(t, []string{"1", "2"}, cfg.OwnerIDs)
	assert.True(t, cfg.IsOwner(snowflake.ID(2)))
	assert.False(t, cfg.IsOwner(snowflake.ID(3)))
	assert.Equal(t, "/tmp/jukebox-test.db?_journal_mode=WAL&_timeout=5000&_foreign_keys=on", cfg.DSN())
	assert.Same(t, cfg, GlobalConfig)
}
