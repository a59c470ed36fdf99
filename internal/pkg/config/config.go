package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port        string        `env:"PORT,         default=8080"`
	Env         string        `env:"ENV,          default=development"`
	JWTSecret   string        `env:"JWT_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL,    default=24h"`
	LogLevel    string        `env:"LOG_LEVEL,    default=info"`
	StoreDriver string        `env:"STORE_DRIVER, default=mongo"`
	GuestPolicy string        `env:"GUEST_POLICY, default=open"`

	DispatchWorkers int `env:"DISPATCH_WORKERS, default=8"`

	Mongo MongoConfig
	Redis RedisConfig
	Mail  MailConfig
	OTel  OTelConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=corporate_events"`
}

// RedisConfig with an empty Addr disables Redis; idempotency keys are then ignored.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type MailConfig struct {
	Provider           string `env:"MAIL_PROVIDER,     default=noop"`
	FromAddress        string `env:"MAIL_FROM_ADDRESS"`
	FromName           string `env:"MAIL_FROM_NAME,    default=Corporate Events"`
	AWSRegion          string `env:"AWS_REGION,        default=us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

type OTelConfig struct {
	Enabled  bool   `env:"OTEL_ENABLED,  default=false"`
	Endpoint string `env:"OTEL_ENDPOINT"`
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
// Outside production a .env file in the working directory is loaded first;
// variables already set in the environment take precedence over it.
func Load(ctx context.Context) (*Config, error) {
	if os.Getenv("ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	}
	return Process(ctx, envconfig.OsLookuper())
}

// Process builds a Config from l and validates it.
func Process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("config: STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver)
	}
	switch c.GuestPolicy {
	case "open", "owner":
	default:
		return fmt.Errorf("config: GUEST_POLICY must be \"open\" or \"owner\", got %q", c.GuestPolicy)
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	return nil
}
