package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix                = "CHATLOG"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultDatabaseDriver    = "sqlite"
	defaultDatabaseDSN       = "chatlog.db"
	defaultDatabaseMaxConns  = 10
	defaultLogLevel          = "info"
	defaultPollMaxWait       = 30 * time.Second
	defaultCORSAllowedOrigin = "*"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	DatabaseDriver     string
	DatabaseDSN        string
	DatabaseMaxConns   int
	LogLevel           string
	PollMaxWait        time.Duration
	CORSAllowedOrigins []string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.dsn", defaultDatabaseDSN)
	configViper.SetDefault("database.max_open_conns", defaultDatabaseMaxConns)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("poll.max_wait", defaultPollMaxWait)
	configViper.SetDefault("cors.allowed_origins", []string{defaultCORSAllowedOrigin})

	applyStormDefaults(configViper)
	applyPollerDefaults(configViper)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		DatabaseDriver:     configViper.GetString("database.driver"),
		DatabaseDSN:        configViper.GetString("database.dsn"),
		DatabaseMaxConns:   configViper.GetInt("database.max_open_conns"),
		LogLevel:           configViper.GetString("log.level"),
		PollMaxWait:        configViper.GetDuration("poll.max_wait"),
		CORSAllowedOrigins: configViper.GetStringSlice("cors.allowed_origins"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.DatabaseDriver)) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.PollMaxWait < 0 {
		return fmt.Errorf("poll.max_wait must not be negative")
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("cors.allowed_origins is required")
	}
	return nil
}

// LoadDotEnv populates the process environment from .env files when they exist.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
