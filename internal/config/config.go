package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/rules"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema       string        `mapstructure:"DB_SCHEMA"`
	MigrationsDir  string        `mapstructure:"MIGRATIONS_DIR"`
	StatusPolicy   string        `mapstructure:"STATUS_POLICY"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	AuthSecret     string        `mapstructure:"AUTH_SECRET"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	KafkaBrokers   []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic     string        `mapstructure:"KAFKA_TOPIC"`
	MetricsEnabled bool          `mapstructure:"METRICS_ENABLED"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"MIGRATIONS_DIR", "STATUS_POLICY", "CORS_ORIGINS", "AUTH_SECRET", "AUTH_ISSUER",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "METRICS_ENABLED", "LOG_LEVEL", "REQUEST_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("MIGRATIONS_DIR", "")
	v.SetDefault("STATUS_POLICY", string(rules.Permissive))
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH_ISSUER", "clinic")
	v.SetDefault("KAFKA_TOPIC", "clinic.events")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AuthEnabled reports whether bearer tokens are checked. Without a secret
// the server runs with DevAuthMiddleware.
func (c *Config) AuthEnabled() bool {
	return c.AuthSecret != ""
}

// Policy returns the parsed STATUS_POLICY.
func (c *Config) Policy() rules.Policy {
	p, err := rules.ParsePolicy(c.StatusPolicy)
	if err != nil {
		return rules.Permissive
	}
	return p
}

// Level returns the zerolog level for LOG_LEVEL, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if _, err := rules.ParsePolicy(c.StatusPolicy); err != nil {
		return fmt.Errorf("STATUS_POLICY: %w", err)
	}
	if !db.ValidSchema(c.DBSchema) {
		return fmt.Errorf("DB_SCHEMA %q is not a valid identifier", c.DBSchema)
	}
	if c.IsProduction() && !c.AuthEnabled() {
		return fmt.Errorf("AUTH_SECRET is required in production; refusing to start without authentication")
	}
	if c.AuthEnabled() && len(c.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 bytes, got %d", len(c.AuthSecret))
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}
