// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinLoginFailureDelay is the smallest accepted pause after a wrong password.
const MinLoginFailureDelay = time.Second

// Config holds all application configuration.
type Config struct {
	Port                 string
	PicturesDir          string
	MetadataFile         string
	DBPath               string
	EditPassword         string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	LoginFailureDelay    time.Duration
	LoginRatePerMinute   int
	AppEnv               string
	GRPCHealthAddr       string
	WatchMetadata        bool
	LogLevel             string
}

// source resolves keys from the environment first, then the optional file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok {
		return value, true
	}
	value, ok := s.file[strings.ToLower(key)]
	return value, ok
}

// Load reads configuration from environment variables. When path (or
// CONFIG_FILE) names a YAML file its keys, written in lower case, provide
// values that the environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	src, err := newSource(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                 src.getEnv("PORT", "8080"),
		PicturesDir:          src.getEnv("PICTURES_DIR", "./pictures"),
		MetadataFile:         src.getEnv("METADATA_FILE", "./data/coins_metadata.json"),
		DBPath:               src.getEnv("DB_PATH", "./data/sessions.db"),
		EditPassword:         src.getEnv("EDIT_PASSWORD", ""),
		SessionTTL:           src.getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionSweepInterval: src.getEnvDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		LoginFailureDelay:    src.getEnvDuration("LOGIN_FAILURE_DELAY", MinLoginFailureDelay),
		LoginRatePerMinute:   src.getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
		AppEnv:               strings.ToLower(src.getEnv("APP_ENV", "production")),
		GRPCHealthAddr:       src.getEnv("GRPC_HEALTH_ADDR", ""),
		WatchMetadata:        src.getEnvBool("WATCH_METADATA", true),
		LogLevel:             strings.ToLower(src.getEnv("LOG_LEVEL", "info")),
	}

	if cfg.LoginFailureDelay < MinLoginFailureDelay {
		cfg.LoginFailureDelay = MinLoginFailureDelay
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func newSource(path string) (source, error) {
	if path == "" {
		return source{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("read config file: %w", err)
	}
	var file map[string]string
	if err := yaml.Unmarshal(data, &file); err != nil {
		return source{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	normalized := make(map[string]string, len(file))
	for k, v := range file {
		normalized[strings.ToLower(k)] = v
	}
	return source{file: normalized}, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT cannot be empty"))
	}
	if c.PicturesDir == "" {
		errs = append(errs, errors.New("PICTURES_DIR cannot be empty"))
	}
	if c.MetadataFile == "" {
		errs = append(errs, errors.New("METADATA_FILE cannot be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH cannot be empty"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be > 0"))
	}
	if c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be > 0"))
	}
	if c.LoginRatePerMinute <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_PER_MINUTE must be > 0"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func (s source) getEnv(key, fallback string) string {
	if value, ok := s.lookup(key); ok {
		return value
	}
	return fallback
}

func (s source) getEnvBool(key string, fallback bool) bool {
	value, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func (s source) getEnvInt(key string, fallback int) int {
	value, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func (s source) getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		slog.Warn("Ignoring malformed duration", "key", key, "value", value)
		return fallback
	}
	return d
}
