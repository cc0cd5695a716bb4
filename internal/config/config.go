// Package config loads the service configuration.
//
// LOAD ORDER (later layers win):
//  1. built-in defaults (defaultConfig)
//  2. a YAML file: $CONFIG_PATH, else config.yaml / config.yml if present
//  3. environment variables, including those read from a .env file
//
// Only the environment variables listed in envMappings are read, so
// unrelated variables never leak into the configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the variable pointing at the YAML file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are tried in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// MinJWTSecretLength is the shortest accepted signing secret.
const MinJWTSecretLength = 16

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Recommend RecommendConfig `koanf:"recommend"`
	Redis     RedisConfig     `koanf:"redis"`
	Storage   StorageConfig   `koanf:"storage"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port              int           `koanf:"port"`
	StaticDir         string        `koanf:"static_dir"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	SecureCookies     bool          `koanf:"secure_cookies"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"` // sqlite or pgx
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

type AuthConfig struct {
	JWTSecret          string `koanf:"jwt_secret"`
	GoogleClientID     string `koanf:"google_client_id"`
	GoogleClientSecret string `koanf:"google_client_secret"`
	GoogleCallbackURL  string `koanf:"google_callback_url"`
}

// GoogleEnabled reports whether Google sign-in is configured.
func (a AuthConfig) GoogleEnabled() bool {
	return a.GoogleClientID != "" && a.GoogleClientSecret != ""
}

type RecommendConfig struct {
	APIKey   string        `koanf:"api_key"`
	BaseURL  string        `koanf:"base_url"`
	Model    string        `koanf:"model"`
	Timeout  time.Duration `koanf:"timeout"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type StorageConfig struct {
	Bucket        string `koanf:"bucket"`
	Region        string `koanf:"region"`
	Endpoint      string `koanf:"endpoint"`
	AccessKey     string `koanf:"access_key"`
	SecretKey     string `koanf:"secret_key"`
	PublicBaseURL string `koanf:"public_base_url"`
}

type CatalogConfig struct {
	APIKey   string        `koanf:"api_key"`
	BaseURL  string        `koanf:"base_url"`
	PageSize int           `koanf:"page_size"`
	Workers  int           `koanf:"workers"`
	Timeout  time.Duration `koanf:"timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text or json
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			StaticDir:         "",
			CORSOrigins:       []string{"http://localhost:3000"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			SecureCookies:     false,
			ShutdownTimeout:   30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "data/gameratings.db",
			MaxOpenConns: 10,
		},
		Recommend: RecommendConfig{
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4-0613",
			Timeout:  30 * time.Second,
			CacheTTL: 15 * time.Minute,
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		Catalog: CatalogConfig{
			BaseURL:  "https://api.rawg.io/api",
			PageSize: 50,
			Workers:  4,
			Timeout:  15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the API server configuration and checks it with Validate.
// envFile is loaded into the process environment first; a missing file is
// not an error.
func Load(envFile string) (*Config, error) {
	return load(envFile, (*Config).Validate)
}

// LoadImporter builds the configuration for the catalog importer and
// checks it with ValidateImporter. The importer issues no tokens and
// serves nothing, so JWT_SECRET and the port are not required.
func LoadImporter(envFile string) (*Config, error) {
	return load(envFile, (*Config).ValidateImporter)
}

func load(envFile string, validate func(*Config) error) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Server.Port)
	}
	return c.validateCommon()
}

// ValidateImporter checks the settings the catalog importer needs.
func (c *Config) ValidateImporter() error {
	if c.Catalog.APIKey == "" {
		return errors.New("RAWG_API_KEY is required")
	}
	return c.validateCommon()
}

// validateCommon covers the store and logging settings every binary uses.
func (c *Config) validateCommon() error {
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unknown database driver %q (want sqlite or pgx)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("DATABASE_DSN is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}
	return nil
}

// sliceConfigPaths are the keys that may arrive as comma separated strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("setting %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"port":                "server.port",
	"static_dir":          "server.static_dir",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"secure_cookies":      "server.secure_cookies",
	"shutdown_timeout":    "server.shutdown_timeout",

	"database_driver":         "database.driver",
	"database_dsn":            "database.dsn",
	"database_max_open_conns": "database.max_open_conns",

	"jwt_secret":           "auth.jwt_secret",
	"google_client_id":     "auth.google_client_id",
	"google_client_secret": "auth.google_client_secret",
	"google_callback_url":  "auth.google_callback_url",

	"openai_api_key":      "recommend.api_key",
	"openai_base_url":     "recommend.base_url",
	"openai_model":        "recommend.model",
	"openai_timeout":      "recommend.timeout",
	"recommend_cache_ttl": "recommend.cache_ttl",

	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",

	"s3_bucket":          "storage.bucket",
	"s3_region":          "storage.region",
	"s3_endpoint":        "storage.endpoint",
	"s3_access_key":      "storage.access_key",
	"s3_secret_key":      "storage.secret_key",
	"s3_public_base_url": "storage.public_base_url",

	"rawg_api_key":   "catalog.api_key",
	"rawg_base_url":  "catalog.base_url",
	"rawg_page_size": "catalog.page_size",
	"rawg_workers":   "catalog.workers",
	"rawg_timeout":   "catalog.timeout",

	"log_level":  "log.level",
	"log_format": "log.format",
}

// envTransformFunc maps an environment variable to its config key, or to
// "" so the provider skips it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
