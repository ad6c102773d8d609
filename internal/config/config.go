// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const devJWTSecret = "dev_jwt_secret_123"

// Database holds PostgreSQL connection settings. URL, when set, wins over the parts.
type Database struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST,default=localhost"`
	Port     string `env:"DB_PORT,default=5432"`
	User     string `env:"DB_USER,default=postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME,default=wellness_db"`
	SSLMode  string `env:"DB_SSLMODE,default=disable"`
}

// JWT holds access token settings. Tokens are always HS256.
type JWT struct {
	Secret        string `env:"JWT_SECRET"`
	Strict        bool   `env:"WELLNESS_STRICT_JWT,default=false"`
	ExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES,default=30"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
}

type OTel struct {
	Enable   bool   `env:"WELLNESS_OTEL_ENABLE,default=false"`
	Endpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

type Config struct {
	Port           string `env:"PORT,default=8000"`
	APIPrefix      string `env:"API_PREFIX,default=/api/v1"`
	Debug          bool   `env:"DEBUG,default=true"`
	CORSOrigins    string `env:"WELLNESS_CORS_ORIGINS"`
	TrustedProxies string `env:"WELLNESS_TRUSTED_PROXIES"`
	LoginRPM       int    `env:"WELLNESS_LOGIN_RPM,default=20"`
	PolicyEngine   string `env:"WELLNESS_POLICY_ENGINE,default=table"`
	NATSURL        string `env:"NATS_URL"`

	// report webhook circuit breaker
	BreakerThreshold   int `env:"WELLNESS_BREAKER_THRESHOLD,default=3"`
	BreakerOpenSeconds int `env:"WELLNESS_BREAKER_OPEN_SECONDS,default=30"`

	Database Database
	JWT      JWT
	Redis    Redis
	OTel     OTel
}

// Load reads an optional .env file and decodes the environment into a Config.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")
	if c.JWT.ExpireMinutes <= 0 {
		c.JWT.ExpireMinutes = 30
	}
	if c.LoginRPM <= 0 {
		c.LoginRPM = 20
	}
	c.JWT.Secret = strings.TrimSpace(c.JWT.Secret)
	if c.JWT.Secret == "" {
		if c.JWT.Strict {
			return fmt.Errorf("JWT_SECRET environment variable not set")
		}
		c.JWT.Secret = devJWTSecret
	}
	switch strings.ToLower(c.PolicyEngine) {
	case "", "table":
		c.PolicyEngine = "table"
	case "rego", "opa":
		c.PolicyEngine = "rego"
	default:
		return fmt.Errorf("unknown WELLNESS_POLICY_ENGINE %q", c.PolicyEngine)
	}
	if c.Database.URL == "" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD or DATABASE_URL must be set")
	}
	return nil
}

// DSN renders a connection string accepted by pgx.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// MigrateURL renders a pgx5:// URL for golang-migrate.
func (d Database) MigrateURL() string {
	if d.URL != "" {
		if u, err := url.Parse(d.URL); err == nil {
			u.Scheme = "pgx5"
			return u.String()
		}
		return d.URL
	}
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Origins splits the comma-separated CORS origin list.
func (c *Config) Origins() []string { return splitList(c.CORSOrigins) }

// Proxies splits the comma-separated trusted proxy list.
func (c *Config) Proxies() []string { return splitList(c.TrustedProxies) }

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MustLoad is Load for main packages.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	return cfg
}
