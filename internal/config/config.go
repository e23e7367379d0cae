package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values applied when the config file omits a field.
const (
	// DefaultConfigPath is used when neither the flag nor LOYALTY_CONFIG is set.
	DefaultConfigPath = "config.yaml"
	// DefaultListenAddr is the HTTP listen address.
	DefaultListenAddr = ":8080"
	// DefaultJWTExpiry is the token lifetime.
	DefaultJWTExpiry = 7 * 24 * time.Hour
	// DefaultGeminiModel is the generative model used by the assistant.
	DefaultGeminiModel = "gemini-2.5-flash"
	// DefaultChatSessionTTL bounds how long chat history is retained.
	DefaultChatSessionTTL = 2 * time.Hour
	// DefaultMaxChatSessions caps live in-memory chat sessions.
	DefaultMaxChatSessions = 10000
)

// AppConfig holds process-level inputs supplied on the command line.
type AppConfig struct {
	ConfigPath string
}

// Config is the on-disk YAML configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Admin    AdminBootstrap `yaml:"admin"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Metrics bool   `yaml:"metrics"`
}

// DatabaseConfig holds the store DSN (postgres URL or sqlite path).
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LoggingConfig controls logrus output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// RedisConfig configures chat session storage. Empty Addr keeps sessions in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NATSConfig configures the domain event publisher. Empty URL disables publishing.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject-prefix"`
}

// GeminiConfig configures the assistant.
type GeminiConfig struct {
	APIKey     string        `yaml:"api-key"`
	Model      string        `yaml:"model"`
	SessionTTL time.Duration `yaml:"session-ttl"`
	// MaxSessions caps in-memory sessions; Redis relies on its TTL instead.
	MaxSessions int `yaml:"max-sessions"`
}

// AdminBootstrap seeds the first super admin when the admins table is empty.
type AdminBootstrap struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ResolveConfigPath picks the config path from the flag value, LOYALTY_CONFIG, or the default.
func ResolveConfigPath(flagValue string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return filepath.Clean(trimmed)
	}
	if env := strings.TrimSpace(os.Getenv("LOYALTY_CONFIG")); env != "" {
		return filepath.Clean(env)
	}
	return DefaultConfigPath
}

// ConfigExists reports whether a config file exists at path.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads the YAML file (if present), applies .env and LOYALTY_* overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
		// env-only configuration
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Validate checks required fields for running the server.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database.dsn is required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt.secret is required")
	}
	if len(c.JWT.Secret) < 16 {
		return errors.New("config: jwt.secret must be at least 16 characters")
	}
	return nil
}

// LoadDatabaseDSN returns only the database DSN from the config at path.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	dsn := strings.TrimSpace(cfg.Database.DSN)
	if dsn == "" {
		return "", errors.New("config: database.dsn is required")
	}
	return dsn, nil
}

// LoadJWTConfig returns the JWT section from the config at path.
func LoadJWTConfig(path string) (JWTConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return JWTConfig{}, err
	}
	return cfg.JWT, nil
}

// applyEnvOverrides lets LOYALTY_* variables win over file values.
func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.Addr, "LOYALTY_SERVER_ADDR")
	overrideString(&cfg.Database.DSN, "LOYALTY_DATABASE_DSN")
	overrideString(&cfg.JWT.Secret, "LOYALTY_JWT_SECRET")
	overrideDuration(&cfg.JWT.Expiry, "LOYALTY_JWT_EXPIRY")
	overrideString(&cfg.Logging.Level, "LOYALTY_LOG_LEVEL")
	overrideString(&cfg.Logging.Format, "LOYALTY_LOG_FORMAT")
	overrideString(&cfg.Logging.File, "LOYALTY_LOG_FILE")
	overrideString(&cfg.Redis.Addr, "LOYALTY_REDIS_ADDR")
	overrideString(&cfg.Redis.Password, "LOYALTY_REDIS_PASSWORD")
	overrideString(&cfg.NATS.URL, "LOYALTY_NATS_URL")
	overrideString(&cfg.Gemini.APIKey, "LOYALTY_GEMINI_API_KEY")
	overrideString(&cfg.Gemini.Model, "LOYALTY_GEMINI_MODEL")
	overrideString(&cfg.Admin.Username, "LOYALTY_ADMIN_USERNAME")
	overrideString(&cfg.Admin.Password, "LOYALTY_ADMIN_PASSWORD")
	if value, ok := os.LookupEnv("LOYALTY_METRICS_ENABLED"); ok {
		if parsed, errParse := strconv.ParseBool(strings.TrimSpace(value)); errParse == nil {
			cfg.Server.Metrics = parsed
		}
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = DefaultListenAddr
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = DefaultJWTExpiry
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if strings.TrimSpace(cfg.Gemini.Model) == "" {
		cfg.Gemini.Model = DefaultGeminiModel
	}
	if cfg.Gemini.SessionTTL <= 0 {
		cfg.Gemini.SessionTTL = DefaultChatSessionTTL
	}
	if cfg.Gemini.MaxSessions <= 0 {
		cfg.Gemini.MaxSessions = DefaultMaxChatSessions
	}
	if strings.TrimSpace(cfg.NATS.SubjectPrefix) == "" {
		cfg.NATS.SubjectPrefix = "loyalty"
	}
}

func overrideString(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			*target = trimmed
		}
	}
}

func overrideDuration(target *time.Duration, key string) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return
	}
	*target = parsed
}
