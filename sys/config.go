package sys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
)

type Config struct {
	Token          string        `env:"DISCORD_TOKEN"`
	GuildID        string        `env:"GUILD_ID"`
	DatabasePath   string        `env:"DATABASE_PATH"`
	Prefix         string        `env:"COMMAND_PREFIX" envDefault:"!"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"30s"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"20s"`
	CommandRate    float64       `env:"COMMAND_RATE" envDefault:"2"`
	CommandBurst   int           `env:"COMMAND_BURST" envDefault:"5"`
	OwnerIDs       []string      `env:"OWNER_IDS" envSeparator:","`
	LogFile        string        `env:"LOG_FILE"`
	OpusLibPath    string        `env:"OPUS_LIB_PATH"`
	Debug          bool          `env:"DEBUG"`
	Silent         bool          `env:"SILENT"`
}

var GlobalConfig *Config

// LoadConfig reads .env (if present) and the process environment. It does not
// validate; callers that talk to Discord call Validate themselves.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.DatabasePath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		cfg.DatabasePath = filepath.Join(folder, GetProjectName()+".db")
	}

	for i := range cfg.OwnerIDs {
		cfg.OwnerIDs[i] = strings.TrimSpace(cfg.OwnerIDs[i])
	}

	GlobalConfig = cfg
	return cfg, nil
}

// Validate ensures the configuration can be used to run the bot.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(MsgConfigMissingToken)
	}
	if c.GuildID != "" {
		if _, err := snowflake.Parse(c.GuildID); err != nil || len(c.GuildID) < 17 || len(c.GuildID) > 20 {
			return errors.New(MsgConfigInvalidGuildID)
		}
	}
	if strings.TrimSpace(c.Prefix) == "" {
		return errors.New("COMMAND_PREFIX must not be blank")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("IDLE_TIMEOUT must be positive, got %s", c.IdleTimeout)
	}
	if c.ResolveTimeout <= 0 {
		return fmt.Errorf("RESOLVE_TIMEOUT must be positive, got %s", c.ResolveTimeout)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("CONNECT_TIMEOUT must be positive, got %s", c.ConnectTimeout)
	}
	if c.CommandRate <= 0 || c.CommandBurst < 1 {
		return fmt.Errorf("COMMAND_RATE and COMMAND_BURST must be positive")
	}
	return nil
}

// DSN is the go-sqlite3 data source for DatabasePath.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s?_journal_mode=WAL&_timeout=5000&_foreign_keys=on", c.DatabasePath)
}

// IsOwner reports whether id is listed in OWNER_IDS.
func (c *Config) IsOwner(id snowflake.ID) bool {
	for _, o := range c.OwnerIDs {
		if o == id.String() {
			return true
		}
	}
	return false
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "jukebox"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			projectName = "jukebox"
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}
