package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/chessapp-go/internal/config"
	"github.com/mcoot/chessapp-go/internal/dependencies/clock"
	"github.com/mcoot/chessapp-go/internal/services/accounts"
	"github.com/mcoot/chessapp-go/internal/services/password"
	"github.com/mcoot/chessapp-go/internal/services/session"
	"github.com/mcoot/chessapp-go/internal/storage"
	"github.com/mcoot/chessapp-go/internal/storage/memory"
	redisstorage "github.com/mcoot/chessapp-go/internal/storage/redis"
	sqlitestorage "github.com/mcoot/chessapp-go/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeSQLite = config.StorageSQLite
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Hasher password.Hasher
	Logger *slog.Logger

	// Services
	Sessions *session.Manager
	Accounts *accounts.Service
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("sqlite", "memory" or "redis")
	// If empty, defaults to "sqlite"
	StorageType string
	// SQLiteConfig holds SQLite settings (optional, defaults to sqlitestorage.DefaultConfig())
	SQLiteConfig *sqlitestorage.Config
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// HashScheme and BcryptCost pick the digest format for new accounts
	HashScheme string
	BcryptCost int
}

// FromSettings converts loaded application settings into a factory Config
func FromSettings(settings *config.Config, logger *slog.Logger) Config {
	sqliteCfg := sqlitestorage.DefaultConfig()
	sqliteCfg.Path = settings.DBPath

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = settings.RedisURL

	return Config{
		Logger:       logger,
		StorageType:  settings.Storage,
		SQLiteConfig: &sqliteCfg,
		RedisConfig:  &redisCfg,
		HashScheme:   settings.HashScheme,
		BcryptCost:   settings.BcryptCost,
	}
}

// New creates a new application with all dependencies wired. Session hydration is
// left to the caller via App.Sessions.Initialize.
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	hasher, err := password.New(cfg.HashScheme, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	clk := clock.New()

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeSQLite
	}

	switch storageType {
	case StorageTypeSQLite:
		sqliteCfg := sqlitestorage.DefaultConfig()
		if cfg.SQLiteConfig != nil {
			sqliteCfg = *cfg.SQLiteConfig
		}
		sqliteStore, err := sqlitestorage.New(sqliteCfg, clk)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	case StorageTypeMemory:
		store = memory.New(clk)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig, clk)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'sqlite', 'memory' or 'redis'")
	}

	logger.Debug("storage opened", slog.String("type", storageType))

	return newWithDependencies(store, clk, hasher, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, hasher password.Hasher, logger *slog.Logger) *App {
	return &App{
		Storage:  store,
		Clock:    clk,
		Hasher:   hasher,
		Logger:   logger,
		Sessions: session.New(store, store, hasher, logger),
		Accounts: accounts.New(store, hasher, logger),
	}
}

// Close releases the storage backend
func (a *App) Close() error {
	return a.Storage.Close()
}
