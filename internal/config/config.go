// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every runtime setting. A .env file in the working directory,
// when present, is loaded before the process environment is decoded.
type Config struct {
	Port           string        `env:"PORT,default=8080"`
	LogLevel       string        `env:"LOG_LEVEL,default=INFO"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT,default=10s"`

	StoreDriver string `env:"STORE_DRIVER,default=postgres"`
	SQLitePath  string `env:"SQLITE_PATH,default=canopy.db"`

	DBHost     string `env:"DB_HOST,default=localhost"`
	DBPort     string `env:"DB_PORT,default=5432"`
	DBUser     string `env:"DB_USER,default=postgres"`
	DBPassword string `env:"DB_PASSWORD,default=postgres"`
	DBName     string `env:"DB_NAME,default=canopy"`
	DBSSLMode  string `env:"DB_SSLMODE,default=disable"`
	DBMaxConns int    `env:"DB_MAX_CONNS,default=20"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
}

// Load reads .env (if any) then decodes the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that the env tags cannot express.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config error: STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.StoreDriver)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("config error: JWT_SECRET must be at least 32 bytes")
	}
	if c.AuthTokenDuration <= 0 {
		return fmt.Errorf("config error: AUTH_TOKEN_DURATION must be positive")
	}
	return nil
}

// DSN builds a libpq-compatible connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
