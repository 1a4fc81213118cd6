package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT   JWTConfig
	Reset ResetConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type JWTConfig struct {
	Secret   string        `env:"JWT_SECRET"`
	Issuer   string        `env:"JWT_ISSUER,       default=auth-service"`
	Audience string        `env:"JWT_AUDIENCE,     default=auth-service-clients"`
	TTL      time.Duration `env:"ACCESS_TOKEN_TTL, default=30m"`
}

type ResetConfig struct {
	TTL            time.Duration `env:"RESET_TOKEN_TTL,        default=24h"`
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL"`
	LinkInResponse bool          `env:"RESET_LINK_IN_RESPONSE, default=true"`
	NotifyWorkers  int           `env:"NOTIFY_WORKERS,         default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := FromLookuper(envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// FromLookuper processes configuration from an arbitrary source and validates it.
func FromLookuper(l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if c.JWT.TTL <= 0 || c.Reset.TTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

// String renders the configuration with the signing secret redacted.
func (c Config) String() string {
	secret := ""
	if c.JWT.Secret != "" {
		secret = "[redacted]"
	}
	return fmt.Sprintf(
		"port=%s env=%s log_level=%s jwt_secret=%s jwt_issuer=%s jwt_audience=%s access_ttl=%s reset_ttl=%s mongo_db=%s redis_addr=%s",
		c.Port, c.Env, c.LogLevel, secret, c.JWT.Issuer, c.JWT.Audience, c.JWT.TTL, c.Reset.TTL, c.Mongo.Database, c.Redis.Addr,
	)
}
