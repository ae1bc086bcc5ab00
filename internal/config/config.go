package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration
type Config struct {
	Env string `yaml:"env" validate:"oneof=development production test"`

	Server struct {
		Port            string        `yaml:"port" validate:"required,numeric"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		IdleTimeout     time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Mongo struct {
		URI          string        `yaml:"uri"`
		Database     string        `yaml:"database" validate:"required"`
		Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
		PingInterval time.Duration `yaml:"ping_interval" validate:"gt=0"`
	} `yaml:"mongo"`

	Redis struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
		CodeTTL time.Duration `yaml:"code_ttl" validate:"gt=0"`
		FeedTTL time.Duration `yaml:"feed_ttl" validate:"gt=0"`
	} `yaml:"redis"`

	Logging struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=json text"`
	} `yaml:"logging"`

	CORS struct {
		AllowedOrigins string `yaml:"allowed_origins"`
		AllowedMethods string `yaml:"allowed_methods"`
		AllowedHeaders string `yaml:"allowed_headers"`
	} `yaml:"cors"`

	RateLimit struct {
		PublicRPS   float64 `yaml:"public_rps" validate:"gte=0"`
		PublicBurst int     `yaml:"public_burst" validate:"gte=0"`
		TrustProxy  bool    `yaml:"trust_proxy"`
	} `yaml:"rate_limit"`

	Feed struct {
		ReferenceArea string `yaml:"reference_area" validate:"required"`
	} `yaml:"feed"`
}

// IsProduction reports whether development-only routes must stay unmounted.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{Env: "development"}

	c.Server.Port = "8080"
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.IdleTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 30 * time.Second

	c.Mongo.Database = "jobs_upi"
	c.Mongo.Timeout = 3 * time.Second
	c.Mongo.PingInterval = 10 * time.Second

	c.Redis.Timeout = 2 * time.Second
	c.Redis.CodeTTL = 7 * 24 * time.Hour
	c.Redis.FeedTTL = 30 * time.Second

	c.Logging.Level = "info"
	c.Logging.Format = "json"

	c.CORS.AllowedOrigins = "*"
	c.CORS.AllowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	c.CORS.AllowedHeaders = "Content-Type, Authorization, X-Request-ID"

	c.RateLimit.PublicRPS = 10
	c.RateLimit.PublicBurst = 20

	c.Feed.ReferenceArea = "JP Nagar"
	return c
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with its value, leaving unknown vars as is.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment variables, in increasing precedence. A .env file in
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	c.loadFromEnv()

	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func (c *Config) loadFromEnv() {
	c.Env = getEnv("APP_ENV", c.Env)
	c.Server.Port = getEnv("PORT", c.Server.Port)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)
	c.Mongo.Timeout = getEnvDuration("MONGO_TIMEOUT", c.Mongo.Timeout)

	c.Redis.URL = getEnv("REDIS_URI", c.Redis.URL)

	c.Logging.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Logging.Level))
	c.Logging.Format = strings.ToLower(getEnv("LOG_FORMAT", c.Logging.Format))

	c.CORS.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)
	c.CORS.AllowedMethods = getEnv("CORS_ALLOWED_METHODS", c.CORS.AllowedMethods)
	c.CORS.AllowedHeaders = getEnv("CORS_ALLOWED_HEADERS", c.CORS.AllowedHeaders)

	if v := os.Getenv("QR_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.PublicRPS = rps
		}
	}
	c.RateLimit.TrustProxy = getEnvBool("TRUST_PROXY", c.RateLimit.TrustProxy)

	c.Feed.ReferenceArea = getEnv("FEED_REFERENCE_AREA", c.Feed.ReferenceArea)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
