// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	Database DatabaseConfig
	Session  SessionConfig
	Cache    CacheConfig
	Media    MediaConfig

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// DatabaseConfig selects the driver and its connection settings.
type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"mysql"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"3306"`
	User       string `env:"DB_USER"`
	Password   string `env:"DB_PASSWORD"`
	Name       string `env:"DB_NAME" envDefault:"rosters"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"rosters.db"`
	LogSQL     bool   `env:"DB_LOG_SQL" envDefault:"false"`
}

// SessionConfig contains the token settings for logged in users.
type SessionConfig struct {
	JWTSecret     string        `env:"JWT_SECRET,required,notEmpty"`
	TTL           time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"false"`
}

// CacheConfig points at the optional Redis roster cache.
type CacheConfig struct {
	RedisURL  string        `env:"REDIS_URL"`
	RosterTTL time.Duration `env:"ROSTER_CACHE_TTL" envDefault:"5m"`
}

// MediaConfig controls where uploaded team logos live.
type MediaConfig struct {
	Root         string `env:"MEDIA_ROOT" envDefault:"./media"`
	MaxLogoBytes int64  `env:"MAX_LOGO_BYTES" envDefault:"2097152"`
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Media.MaxLogoBytes <= 0 {
		return fmt.Errorf("MAX_LOGO_BYTES must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DSN returns the MySQL connection string.
func (c *DatabaseConfig) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, c.Port)
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}
