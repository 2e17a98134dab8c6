// Package config loads application settings from CHESSAPP_* environment variables
// and command-line flags using Viper.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "CHESSAPP"

// Storage types
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds application configuration
type Config struct {
	// Storage selects the backend: sqlite, memory or redis
	Storage string `mapstructure:"STORAGE"`
	// DBPath is the SQLite database file
	DBPath string `mapstructure:"DB_PATH"`
	// RedisURL is used when Storage is redis
	RedisURL string `mapstructure:"REDIS_URL"`

	// HashScheme is the digest format for new accounts: sha256 or bcrypt.
	// Both formats are always accepted at login.
	HashScheme string `mapstructure:"HASH_SCHEME"`
	BcryptCost int    `mapstructure:"BCRYPT_COST"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFile enables rotating file logs at this path; empty logs to stderr
	LogFile string `mapstructure:"LOG_FILE"`
}

// flagKeys maps command-line flag names to config keys
var flagKeys = map[string]string{
	"storage":   "STORAGE",
	"db":        "DB_PATH",
	"redis-url": "REDIS_URL",
	"log-level": "LOG_LEVEL",
	"log-file":  "LOG_FILE",
}

// Load builds Config from defaults, the environment, then any flags in flags that
// were explicitly set. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("STORAGE", StorageSQLite)
	v.SetDefault("DB_PATH", "chessapp.db")
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("HASH_SCHEME", "sha256")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	cfg.HashScheme = strings.ToLower(strings.TrimSpace(cfg.HashScheme))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unusable settings
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("config: DB_PATH must be set for sqlite storage")
		}
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL must be set for redis storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("config: unknown STORAGE %q (want sqlite, memory or redis)", c.Storage)
	}

	switch c.HashScheme {
	case "sha256", "bcrypt":
	default:
		return fmt.Errorf("config: unknown HASH_SCHEME %q (want sha256 or bcrypt)", c.HashScheme)
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("config: BCRYPT_COST must be between 4 and 31")
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a LOG_LEVEL value to a slog level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q", level)
	}
	return l, nil
}
