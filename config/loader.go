// Package config provides Viper configuration loading for sudolite.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	// JSONLogFormat indicates JSON log format.
	JSONLogFormat = "json"
	// TextLogFormat indicates text log format.
	TextLogFormat = "text"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Format     string        `mapstructure:"format"`
	Level      zerolog.Level `mapstructure:"level"`
	WithCaller bool          `mapstructure:"with_caller"`
}

// SessionConfig holds cookie session configuration.
type SessionConfig struct {
	AuthenticationKey string        `mapstructure:"authentication_key"`
	EncryptionKey     string        `mapstructure:"encryption_key"`
	CookieName        string        `mapstructure:"cookie_name"`
	CookieExpiry      time.Duration `mapstructure:"cookie_expiry"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig holds Redis configuration for the background sweep.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds background worker configuration.
type WorkerConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Config holds the sudolite service configuration.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`

	// ElevationTimeout is the elevation window; a guarded request inside
	// the window extends it, inactivity past it revokes the privilege.
	ElevationTimeout time.Duration `mapstructure:"elevation_timeout"`

	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Logging  LogConfig      `mapstructure:"logging"`
}

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "SUDOLITE"

// defaults applied before reading the config file.
var defaults = map[string]interface{}{
	"listen_addr":           ":8080",
	"elevation_timeout":     600 * time.Second,
	"database.path":         "sudolite.db",
	"session.cookie_name":   "sudolite_session",
	"session.cookie_expiry": 12 * time.Hour,
	"redis.addr":            "localhost:6379",
	"redis.password":        "",
	"redis.db":              0,
	"worker.concurrency":    10,
	"worker.sweep_interval": time.Minute,
	"logging.level":         "info",
	"logging.format":        TextLogFormat,
	"logging.with_caller":   false,
}

// Load reads configuration from file and environment variables.
// If configPath is empty, default search paths are used.
func Load(configPath string) error {
	log.Debug().Msg("Loading configuration")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("/etc/sudolite/")
		viper.AddConfigPath("$HOME/.sudolite")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath == "" && errors.As(err, &notFound) {
			log.Debug().Msg("No config file found, using defaults and environment")
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	log.Debug().
		Str("config_file", viper.ConfigFileUsed()).
		Msg("Configuration loaded")

	return nil
}

// GetLogConfig returns the logging configuration from Viper.
func GetLogConfig() LogConfig {
	logLevelStr := viper.GetString("logging.level")
	logLevel, err := zerolog.ParseLevel(logLevelStr)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	logFormat := viper.GetString("logging.format")
	switch logFormat {
	case JSONLogFormat, TextLogFormat:
	case "":
		logFormat = TextLogFormat
	default:
		log.Warn().
			Str("format", logFormat).
			Msg("Invalid log format, using text")
		logFormat = TextLogFormat
	}

	return LogConfig{
		Format:     logFormat,
		Level:      logLevel,
		WithCaller: viper.GetBool("logging.with_caller"),
	}
}

// Get returns the service configuration from Viper. Call after Load().
func Get() *Config {
	logConfig := GetLogConfig()
	zerolog.SetGlobalLevel(logConfig.Level)

	return &Config{
		ListenAddr:       viper.GetString("listen_addr"),
		ElevationTimeout: viper.GetDuration("elevation_timeout"),
		Logging:          logConfig,
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Worker: WorkerConfig{
			Concurrency:   viper.GetInt("worker.concurrency"),
			SweepInterval: viper.GetDuration("worker.sweep_interval"),
		},
		Session: SessionConfig{
			CookieName:        viper.GetString("session.cookie_name"),
			CookieExpiry:      viper.GetDuration("session.cookie_expiry"),
			AuthenticationKey: viper.GetString("session.authentication_key"),
			EncryptionKey:     viper.GetString("session.encryption_key"),
		},
	}
}

// ValidateSessionKeys validates that session keys are the correct length.
func ValidateSessionKeys() error {
	authKey := viper.GetString("session.authentication_key")
	encKey := viper.GetString("session.encryption_key")

	if len(authKey) != 32 {
		return fmt.Errorf("session.authentication_key must be 32 bytes, got %d", len(authKey))
	}
	if len(encKey) != 32 {
		return fmt.Errorf("session.encryption_key must be 32 bytes, got %d", len(encKey))
	}
	return nil
}
