package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const devJWTSecret = "dev-secret-change-me"

type Config struct {
	HTTPAddr            string        `mapstructure:"HTTP_ADDR"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	JWTSecret           string        `mapstructure:"JWT_SECRET"`
	SessionTTL          time.Duration `mapstructure:"SESSION_TTL"`
	AccountsPath        string        `mapstructure:"ACCOUNTS_PATH"`
	PagePermissionsPath string        `mapstructure:"PAGE_PERMISSIONS_PATH"`
	UnknownPagePolicy   string        `mapstructure:"UNKNOWN_PAGE_POLICY"`
	SchemaPath          string        `mapstructure:"SCHEMA_PATH"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"HTTP_ADDR", "ENV", "DATABASE_URL", "REDIS_URL", "JWT_SECRET", "SESSION_TTL",
	"ACCOUNTS_PATH", "PAGE_PERMISSIONS_PATH", "UNKNOWN_PAGE_POLICY", "SCHEMA_PATH",
	"LOG_LEVEL", "CORS_ORIGINS",
}

// Load reads the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	// Development mode relaxes the secret check and exposes login
	// diagnostics, so it has to be asked for.
	v.SetDefault("ENV", "production")
	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("ACCOUNTS_PATH", "config/accounts.yaml")
	v.SetDefault("PAGE_PERMISSIONS_PATH", "")
	v.SetDefault("UNKNOWN_PAGE_POLICY", "deny")
	v.SetDefault("SCHEMA_PATH", "sql/schema.sql")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the settings the serve command depends on.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !c.IsDev() && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set outside development (ENV=%q)", c.Env)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	switch c.UnknownPagePolicy {
	case "deny", "allow":
	default:
		return fmt.Errorf("UNKNOWN_PAGE_POLICY must be \"deny\" or \"allow\", got %q", c.UnknownPagePolicy)
	}
	return nil
}
