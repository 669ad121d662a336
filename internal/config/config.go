package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "jwt-secret", "password",
}

const (
	StorageBackendLocal = "local"
	StorageBackendGCS   = "gcs"
)

type Config struct {
	Port                  int    `env:"PORT" envDefault:"8080"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL           string `env:"DATABASE_URL,required"`
	RedisURL              string `env:"REDIS_URL,required"`
	AutoMigrate           bool   `env:"AUTO_MIGRATE" envDefault:"false"`
	JWTSecret             string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	AccessTokenTTLMinutes int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat             string `env:"LOG_FORMAT" envDefault:"console"`
	StorageBackend        string `env:"STORAGE_BACKEND" envDefault:"local"`
	StorageLocalDir       string `env:"STORAGE_LOCAL_DIR" envDefault:"./data/files"`
	StoragePublicBaseURL  string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:""`
	GCSBucket             string `env:"GCS_BUCKET" envDefault:""`
	GCSCredentialsFile    string `env:"GCS_CREDENTIALS_FILE" envDefault:""`
	VideoBaseURL          string `env:"VIDEO_BASE_URL" envDefault:"https://meet.jit.si"`
	LedgerAtomic          bool   `env:"LEDGER_ATOMIC" envDefault:"true"`
	MaxUploadMB           int    `env:"MAX_UPLOAD_MB" envDefault:"25"`
	RateLimitPerMin       int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) Validate(isProduction bool) error {
	switch c.StorageBackend {
	case StorageBackendLocal:
	case StorageBackendGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when STORAGE_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageBackendLocal, StorageBackendGCS, c.StorageBackend)
	}

	if c.AccessTokenTTLMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL_MINUTES must be positive")
	}

	if isProduction {
		if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
			return err
		}

		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if !c.LedgerAtomic {
			log.Warn().Msg("LEDGER_ATOMIC=false in production: rating writes are not transactional")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
