package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"catalog-discovery/logger"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds all configuration for the application.
// Values are loaded by Viper from a .env file and/or environment variables.
type Config struct {
	StoreDriver    string `mapstructure:"STORE_DRIVER"`
	DatabasePath   string `mapstructure:"DATABASE_PATH"`
	MongoURL       string `mapstructure:"MONGO_URL"`
	MongoDatabase  string `mapstructure:"MONGO_DATABASE"`
	ListenAddr     string `mapstructure:"LISTEN_ADDR"`
	ModrinthAPIURL string `mapstructure:"MODRINTH_API_URL"`
	UserAgent      string `mapstructure:"USERAGENT"`

	// Typed values are parsed by processConfigDefaults so a bad value falls
	// back to its default instead of failing the whole load.
	QueryTimeout    time.Duration `mapstructure:"-"`
	CacheTTL        time.Duration `mapstructure:"-"`
	CacheSize       int           `mapstructure:"-"`
	DefaultPageSize int           `mapstructure:"-"`
	BreakerEnabled  bool          `mapstructure:"-"`
}

var envKeys = []string{
	"STORE_DRIVER", "DATABASE_PATH", "MONGO_URL", "MONGO_DATABASE", "LISTEN_ADDR",
	"QUERY_TIMEOUT", "CACHE_TTL", "CACHE_SIZE", "DEFAULT_PAGE_SIZE", "BREAKER_ENABLED",
	"MODRINTH_API_URL", "USERAGENT",
}

func log() *zap.SugaredLogger {
	if logger.Log != nil {
		return logger.Log
	}
	return zap.NewNop().Sugar()
}

// LoadConfig reads configuration from the .env file in path and the
// environment.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	vipErr := viper.ReadInConfig()
	if _, ok := vipErr.(viper.ConfigFileNotFoundError); ok {
		log().Info("Config file (.env) not found, relying on environment variables.")
	} else if vipErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vipErr)
	}

	viper.AutomaticEnv()
	for _, key := range envKeys {
		if err := viper.BindEnv(strings.ToLower(key), key); err != nil {
			log().Warnw("Unable to bind env var", zap.String("key", key), zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	processConfigDefaults(&config)
	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// processConfigDefaults fills unset string values and parses the typed
// values from viper, warning on anything unparseable.
func processConfigDefaults(cfg *Config) {
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverSQLite
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "catalog.db"
	}
	if cfg.MongoURL == "" && cfg.StoreDriver != DriverMongo {
		cfg.MongoURL = "mongodb://localhost:27017"
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "catalog"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.ModrinthAPIURL == "" {
		cfg.ModrinthAPIURL = "https://api.modrinth.com/v2"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "catalog-discovery/dev (unknown-user)"
		log().Warn("USERAGENT not set in config or environment, using default.")
	}

	cfg.QueryTimeout = durationValue("QUERY_TIMEOUT", 5*time.Second)
	cfg.CacheTTL = durationValue("CACHE_TTL", 10*time.Minute)
	cfg.CacheSize = intValue("CACHE_SIZE", 1024)
	cfg.DefaultPageSize = intValue("DEFAULT_PAGE_SIZE", 20)
	cfg.BreakerEnabled = boolValue("BREAKER_ENABLED", true)
}

func durationValue(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log().Warnw("Invalid duration, using default", zap.String("key", key), zap.String("value", raw), zap.Duration("default", def))
		return def
	}
	return d
}

func intValue(key string, def int) int {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log().Warnw("Invalid integer, using default", zap.String("key", key), zap.String("value", raw), zap.Int("default", def))
		return def
	}
	return n
}

func boolValue(key string, def bool) bool {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log().Warnw("Invalid boolean, using default", zap.String("key", key), zap.String("value", raw), zap.Bool("default", def))
		return def
	}
	return b
}

// validateAndEnsureDirectories checks the store settings and creates the
// directory holding the SQLite file.
func validateAndEnsureDirectories(cfg *Config) error {
	switch cfg.StoreDriver {
	case DriverSQLite:
		if cfg.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite driver")
		}
		dir := filepath.Dir(cfg.DatabasePath)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			log().Infow("Database directory does not exist, creating it", zap.String("path", dir))
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to check database directory %s: %w", dir, err)
		}
	case DriverMongo:
		if cfg.MongoURL == "" {
			return fmt.Errorf("MONGO_URL is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", cfg.StoreDriver, DriverSQLite, DriverMongo)
	}
	return nil
}
