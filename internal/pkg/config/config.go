package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	RefreshStoreMongo = "mongo"
	RefreshStoreRedis = "redis"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	JWTSecret         string        `env:"JWT_SECRET, required"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL,    default=15m"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL,   default=168h"`
	BcryptCost        int           `env:"BCRYPT_COST,         default=10"`
	RefreshTokenStore string        `env:"REFRESH_TOKEN_STORE, default=mongo"`
	SeedRoles         bool          `env:"SEED_ROLES,          default=true"`
	LoginMaxFailures  int           `env:"LOGIN_MAX_FAILURES,  default=5"`
	LoginLockout      time.Duration `env:"LOGIN_LOCKOUT,       default=15m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=todo_system"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL"))
	}
	switch c.Auth.RefreshTokenStore {
	case RefreshStoreMongo, RefreshStoreRedis:
	default:
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_STORE must be %q or %q", RefreshStoreMongo, RefreshStoreRedis))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Process(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// Process builds and validates a Config from the given lookuper.
func Process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
