package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Skotchmaster/notes_auth/internal/db"
)

const defaultSQLitePath = "auth.db"

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"auth"`
	ServerPort  int    `env:"SERVER_PORT"  envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`

	DBDriver    string `env:"DB_DRIVER"    envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret      string        `env:"JWT_SECRET"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"10m"`

	BcryptCost             int `env:"BCRYPT_COST"               envDefault:"12"`
	RefreshTokenMonths     int `env:"REFRESH_TOKEN_MONTHS"      envDefault:"1"`
	MaxActiveRefreshTokens int `env:"MAX_ACTIVE_REFRESH_TOKENS" envDefault:"0"`
	AccountTokenAttempts   int `env:"ACCOUNT_TOKEN_ATTEMPTS"    envDefault:"10"`

	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC"   envDefault:"user_events"`
}

// Load reads envFile when present and then the process environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Notice: %s not loaded: %v. Using system environment variables", envFile, err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBDriver == db.DriverSQLite && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultSQLitePath
	}
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.TrustedProxies = compact(cfg.TrustedProxies)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("missing required env JWT_SECRET"))
	}
	switch c.DBDriver {
	case db.DriverPostgres, db.DriverPQ, db.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("missing required env DATABASE_URL"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within 4..31, got %d", c.BcryptCost))
	}
	if c.RefreshTokenMonths < 1 {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_MONTHS must be at least 1, got %d", c.RefreshTokenMonths))
	}
	if c.MaxActiveRefreshTokens < 0 {
		errs = append(errs, fmt.Errorf("MAX_ACTIVE_REFRESH_TOKENS must not be negative, got %d", c.MaxActiveRefreshTokens))
	}
	if c.AccountTokenAttempts < 1 {
		errs = append(errs, fmt.Errorf("ACCOUNT_TOKEN_ATTEMPTS must be at least 1, got %d", c.AccountTokenAttempts))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
