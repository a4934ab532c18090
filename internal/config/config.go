package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config aggregates runtime configuration for the API server and its collaborators.
type Config struct {
	ListenAddr      string        `env:"HTTP_LISTEN_ADDR" envDefault:":8080"`
	PublicAppURL    string        `env:"PUBLIC_APP_URL" envDefault:"http://localhost:3000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DBDriver string `env:"DB_DRIVER" envDefault:"mysql"`
	DBDSN    string `env:"DB_DSN"`

	AnthropicAPIKey    string        `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL   string        `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
	AnthropicModel     string        `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`
	AnthropicMaxTokens int           `env:"ANTHROPIC_MAX_TOKENS" envDefault:"16000"`
	GenerationTimeout  time.Duration `env:"GENERATION_TIMEOUT" envDefault:"3m"`

	LemonSqueezyAPIKey        string `env:"LEMONSQUEEZY_API_KEY"`
	LemonSqueezyAPIURL        string `env:"LEMONSQUEEZY_API_URL" envDefault:"https://api.lemonsqueezy.com"`
	LemonSqueezyStoreID       string `env:"LEMONSQUEEZY_STORE_ID"`
	LemonSqueezyWebhookSecret string `env:"LEMONSQUEEZY_WEBHOOK_SECRET"`

	CatalogPath     string `env:"CATALOG_PATH"`
	FreeTierCredits int    `env:"FREE_TIER_CREDITS" envDefault:"2"`

	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`
	AuthJWTIssuer string `env:"AUTH_JWT_ISSUER"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3Region       string `env:"S3_REGION"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	S3Prefix       string `env:"S3_PREFIX" envDefault:"gdd"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}
	return Parse()
}

// Parse builds Config from the current process environment only.
func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.AnthropicBaseURL = normalizeBaseURL(cfg.AnthropicBaseURL, "https://api.anthropic.com")
	cfg.LemonSqueezyAPIURL = normalizeBaseURL(cfg.LemonSqueezyAPIURL, "https://api.lemonsqueezy.com")
	cfg.PublicAppURL = strings.TrimRight(strings.TrimSpace(cfg.PublicAppURL), "/")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// StorageEnabled reports whether generated documents can be archived.
func (c Config) StorageEnabled() bool {
	return c.S3Bucket != "" && c.S3Region != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// WebhookVerificationEnabled is false when no shared secret is configured.
func (c Config) WebhookVerificationEnabled() bool {
	return c.LemonSqueezyWebhookSecret != ""
}

func (c Config) validate() error {
	var missing []string
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if c.AuthJWTSecret == "" {
		missing = append(missing, "AUTH_JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required environment variables: %v", ErrInvalidConfig, missing)
	}

	switch c.DBDriver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("%w: unsupported DB_DRIVER %q", ErrInvalidConfig, c.DBDriver)
	}
	if c.FreeTierCredits < 0 {
		return fmt.Errorf("%w: FREE_TIER_CREDITS must not be negative", ErrInvalidConfig)
	}
	if c.GenerationTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.AnthropicMaxTokens <= 0 {
		return fmt.Errorf("%w: ANTHROPIC_MAX_TOKENS must be positive", ErrInvalidConfig)
	}
	return nil
}

// normalizeBaseURL accepts bare hosts ("api.example.com") and drops trailing slashes.
func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		// Load does not override variables already present in the environment.
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
