package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	ErrEmptyJWTSecret     = errors.New("jwt signing secret is required")
	ErrEmptyDBPassword    = errors.New("database password is required")
	ErrEmptyAdminPassword = errors.New("admin password or password hash is required")
)

type Config struct {
	App        AppConfig        `yaml:"app" env-prefix:"APP_"`
	Database   DatabaseConfig   `yaml:"database" env-prefix:"DB_"`
	HTTP       HTTPConfig       `yaml:"http" env-prefix:"HTTP_"`
	Auth       AuthConfig       `yaml:"auth" env-prefix:"AUTH_"`
	Generator  GeneratorConfig  `yaml:"generator" env-prefix:"GENERATOR_"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" env-prefix:"OPENROUTER_"`
	NATS       NATSConfig       `yaml:"nats" env-prefix:"NATS_"`
	Search     SearchConfig     `yaml:"search" env-prefix:"SEARCH_"`
	Bot        BotConfig        `yaml:"bot" env-prefix:"BOT_"`
	Health     HealthConfig     `yaml:"health" env-prefix:"HEALTH_"`
}

type AppConfig struct {
	Name        string `yaml:"name" env:"NAME" env-default:"txtforge"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"production"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url" env:"URL"`
	Host           string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PORT" env-default:"5432"`
	User           string `yaml:"user" env:"USER" env-default:"txtforge"`
	Password       string `yaml:"password" env:"PASSWORD"`
	Name           string `yaml:"name" env:"NAME" env-default:"txtforge"`
	SSLMode        string `yaml:"ssl_mode" env:"SSL_MODE" env-default:"disable"`
	MaxConnections int    `yaml:"max_connections" env:"MAX_CONNECTIONS" env-default:"25"`
	MinConnections int    `yaml:"min_connections" env:"MIN_CONNECTIONS" env-default:"5"`
}

// ConnectionString returns URL when set, otherwise a DSN assembled from the parts.
func (d DatabaseConfig) ConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

type HTTPConfig struct {
	Port            int           `yaml:"port" env:"PORT" env-default:"4000"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"https://example.com"`
	RateLimit       int           `yaml:"rate_limit" env:"RATE_LIMIT" env-default:"300"`
	VoteRateLimit   int           `yaml:"vote_rate_limit" env:"VOTE_RATE_LIMIT" env-default:"60"`
	LoginRateLimit  int           `yaml:"login_rate_limit" env:"LOGIN_RATE_LIMIT" env-default:"10"`
	SecureCookies   bool          `yaml:"secure_cookies" env:"SECURE_COOKIES" env-default:"false"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

func (h HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", h.Port)
}

type AuthConfig struct {
	AdminUsername     string        `yaml:"admin_username" env:"ADMIN_USERNAME" env-default:"admin"`
	AdminPassword     string        `yaml:"admin_password" env:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `yaml:"admin_password_hash" env:"ADMIN_PASSWORD_HASH"`
	JWTSecret         string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL          time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"720h"`
}

type GeneratorConfig struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED" env-default:"true"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" env-default:"60s"`
}

type OpenRouterConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL" env-default:"https://openrouter.ai/api/v1"`
	Referer string        `yaml:"referer" env:"REFERER" env-default:"https://example.com"`
	Title   string        `yaml:"title" env:"TITLE" env-default:"TxtForge"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"2m"`
}

type NATSConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ENABLED" env-default:"false"`
	URL        string `yaml:"url" env:"URL" env-default:"nats://localhost:4222"`
	StreamName string `yaml:"stream_name" env:"STREAM_NAME" env-default:"TXTFORGE"`
}

type SearchConfig struct {
	IndexPath string `yaml:"index_path" env:"INDEX_PATH"`
}

type BotConfig struct {
	Token     string `yaml:"token" env:"TOKEN"`
	ChannelID int64  `yaml:"channel_id" env:"CHANNEL_ID"`
}

func (b BotConfig) Enabled() bool {
	return b.Token != ""
}

type HealthConfig struct {
	Port     int    `yaml:"port" env:"PORT" env-default:"8080"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT" env-default:"/healthz"`
}

func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read loads the config file (or the environment) without validating it.
func Read() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.prod.yaml"
	}

	var cfg Config

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from %s: %w", configPath, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrEmptyJWTSecret
	}

	if c.Auth.AdminPassword == "" && c.Auth.AdminPasswordHash == "" {
		return ErrEmptyAdminPassword
	}

	if c.Database.URL == "" && c.Database.Password == "" {
		return ErrEmptyDBPassword
	}

	return nil
}
