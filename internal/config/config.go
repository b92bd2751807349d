package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server ServerConfig
	App    AppConfig
	Store  StoreConfig
	Asset  AssetConfig
	Redis  RedisConfig
	Auth   AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"mintgate-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// StoreConfig holds drop store settings. Type selects the backend:
// sqlite (default) or mysql.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"`
	Path string `envconfig:"STORE_PATH" default:"./data/mintgate.db"`
	// MySQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"3306"`
	Name     string `envconfig:"STORE_DB_NAME" default:"mintgate"`
	User     string `envconfig:"STORE_DB_USER" default:"root"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
}

// AssetConfig holds the asset ownership store settings.
type AssetConfig struct {
	Path string `envconfig:"ASSET_DB_PATH" default:"./data/assets.db"`
}

// RedisConfig holds redis settings for events and operator sessions.
type RedisConfig struct {
	Host         string `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int    `envconfig:"REDIS_PORT" default:"6379"`
	Password     string `envconfig:"REDIS_PASSWORD" default:""`
	DB           int    `envconfig:"REDIS_DB" default:"0"`
	EventChannel string `envconfig:"REDIS_EVENT_CHANNEL" default:"mintgate:events"`
}

// AuthConfig holds operator authentication settings.
type AuthConfig struct {
	// AdminKey is exchanged for an operator session token.
	AdminKey string `envconfig:"ADMIN_KEY" default:""`
	// APIKeys is a comma-separated list of static operator keys.
	APIKeys string `envconfig:"API_KEYS" default:""`
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.Port, s.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (r *RedisConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Keys returns the configured static API keys.
func (a *AuthConfig) Keys() []string {
	if a.APIKeys == "" {
		return nil
	}
	keys := strings.Split(a.APIKeys, ",")
	for i := range keys {
		keys[i] = strings.TrimSpace(keys[i])
	}
	return keys
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
