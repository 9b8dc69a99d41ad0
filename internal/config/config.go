package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the service reads,
// e.g. TRACKER_DB_DSN for db.dsn.
const EnvPrefix = "TRACKER"

// DBConfig holds database connection settings.
type DBConfig struct {
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxIdleTime  time.Duration `mapstructure:"max_idle_time"`
}

// JWTConfig holds bearer token settings.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// LimiterConfig holds the per-client rate limit.
type LimiterConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	TrustedOrigins []string `mapstructure:"trusted_origins"`
}

// SMTPConfig configures the optional welcome mail. An empty Host disables it.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Sender   string `mapstructure:"sender"`
}

// Config is the top-level service configuration.
type Config struct {
	Port             int           `mapstructure:"port"`
	Env              string        `mapstructure:"env"`
	DB               DBConfig      `mapstructure:"db"`
	JWT              JWTConfig     `mapstructure:"jwt"`
	Limiter          LimiterConfig `mapstructure:"limiter"`
	CORS             CORSConfig    `mapstructure:"cors"`
	SMTP             SMTPConfig    `mapstructure:"smtp"`
	ReconcileOnStart bool          `mapstructure:"reconcile_on_start"`
}

// IsDevelopment reports whether internal error detail may be shown to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 4000)
	v.SetDefault("env", "development")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "tracker.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 25)
	v.SetDefault("db.max_idle_time", 15*time.Minute)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 7*24*time.Hour)
	v.SetDefault("limiter.enabled", true)
	v.SetDefault("limiter.rps", 4)
	v.SetDefault("limiter.burst", 8)
	v.SetDefault("cors.trusted_origins", []string{"http://localhost:5173"})
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.sender", "Tracker <no-reply@tracker.local>")
	v.SetDefault("reconcile_on_start", false)
}

// Load reads an optional .env file, then an optional YAML file at path,
// then TRACKER_* environment variables. Later sources win. An empty path
// or a missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot check by type alone.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid env %q: want development, staging or production", c.Env)
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid db.driver %q: want postgres or sqlite", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("db.dsn must be set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}
