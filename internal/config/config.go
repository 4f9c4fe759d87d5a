package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres" validate:"oneof=postgres mysql"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost" validate:"required"`
	DBPort     string `env:"DB_PORT" envDefault:"5432" validate:"required"`
	DBUser     string `env:"DB_USER" envDefault:"recados" validate:"required"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"recados"`
	DBName     string `env:"DB_NAME" envDefault:"recados" validate:"required"`

	CacheDriver   string `env:"CACHE_DRIVER" envDefault:"redis" validate:"oneof=redis memory"`
	CacheSize     int    `env:"CACHE_SIZE" envDefault:"1024" validate:"min=1"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"min=0"`

	SessionSecret string        `env:"SESSION_SECRET" envDefault:"default-secret-key-change-me" validate:"min=16"`
	JWTSecret     string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"24h" validate:"min=1m"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GinMode maps the deployment environment onto a gin mode.
func (c *Config) GinMode() string {
	if c.Env == "local" {
		return "debug"
	}
	return "release"
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DSN builds the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.DBUser,
			c.DBPassword,
			net.JoinHostPort(c.DBHost, c.DBPort),
			c.DBName,
		)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
	)
}

func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}
