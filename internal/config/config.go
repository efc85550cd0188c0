// Package config loads grimoire settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	gerr "github.com/KirkDiggler/grimoire/internal/errors"
)

// Config holds all configuration for the application
type Config struct {
	Log     LogConfig
	Dice    DiceConfig
	Redis   RedisConfig
	History HistoryConfig
	Catalog CatalogConfig
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level  string `env:"GRIMOIRE_LOG_LEVEL"  envDefault:"INFO"`
	Format string `env:"GRIMOIRE_LOG_FORMAT" envDefault:"text"`
	// File enables a rotated log file next to stderr output.
	File       string `env:"GRIMOIRE_LOG_FILE"`
	MaxSizeMB  int    `env:"GRIMOIRE_LOG_MAX_SIZE_MB"  envDefault:"10"`
	MaxBackups int    `env:"GRIMOIRE_LOG_MAX_BACKUPS"  envDefault:"5"`
	MaxAgeDays int    `env:"GRIMOIRE_LOG_MAX_AGE_DAYS" envDefault:"30"`
}

// DiceConfig controls the random source. A zero seed uses the process-wide
// generator.
type DiceConfig struct {
	Seed uint64 `env:"GRIMOIRE_DICE_SEED"`
}

// RedisConfig holds Redis-specific configuration. An empty URL keeps roll
// history in memory.
type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

// HistoryConfig bounds the roll history
type HistoryConfig struct {
	TTL        time.Duration `env:"GRIMOIRE_HISTORY_TTL"  envDefault:"12h"`
	MaxEntries int           `env:"GRIMOIRE_HISTORY_SIZE" envDefault:"50"`
}

// CatalogConfig points at a spell file replacing the bundled one
type CatalogConfig struct {
	Path string `env:"GRIMOIRE_CATALOG"`
}

// Load reads the given .env files, defaulting to ./.env, then parses the
// environment. Missing .env files are not an error; variables already set
// in the environment win over the files.
func Load(files ...string) (*Config, error) {
	if err := loadDotEnv(files...); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, gerr.WrapWithCode(err, gerr.CodeInvalidArgument, "failed to parse environment")
	}

	cfg.Log.Level = strings.ToUpper(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, gerr.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return gerr.Wrapf(err, "failed to read %s", f)
		}
	}
	return nil
}

// Validate checks the parsed values
func (c *Config) Validate() error {
	vb := gerr.NewValidationBuilder()

	switch c.Log.Level {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		vb.Fieldf("GRIMOIRE_LOG_LEVEL", "unknown level %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		vb.Fieldf("GRIMOIRE_LOG_FORMAT", "must be text or json, got %q", c.Log.Format)
	}

	if c.History.TTL <= 0 {
		vb.Field("GRIMOIRE_HISTORY_TTL", "must be positive")
	}
	if c.History.MaxEntries <= 0 {
		vb.Field("GRIMOIRE_HISTORY_SIZE", "must be positive")
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		vb.Field("REDIS_URL", "must start with redis:// or rediss://")
	}

	return vb.Build()
}
