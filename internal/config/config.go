package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const DefaultPostgresPort = 5432

type AppConfig struct {
	Port     string `envconfig:"APP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type PostgresConfig struct {
	Host     string `envconfig:"DB_HOST"`
	RawPort  string `envconfig:"DB_PORT"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	DBName   string `envconfig:"DB_NAME"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"prefer"`

	// Schema handling: Synchronize declares the tables from the entities on startup,
	// Migrate applies the embedded SQL migrations instead.
	Synchronize bool `envconfig:"DB_SYNCHRONIZE" default:"true"`
	Migrate     bool `envconfig:"DB_MIGRATE" default:"false"`

	// SecretARN points at a Secrets Manager secret holding username and password.
	SecretARN string `envconfig:"DB_SECRET_ARN"`

	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// Port returns DB_PORT as a number, falling back to 5432.
func (c PostgresConfig) Port() int {
	return ResolvePort(c.RawPort)
}

// ApplyCredentials fills the user and password from a secret. Values set
// explicitly in the environment win.
func (c *PostgresConfig) ApplyCredentials(user, password string) {
	if c.User == "" {
		c.User = user
	}
	if c.Password == "" {
		c.Password = password
	}
}

// NeedsSecret reports whether the password has to be read from DB_SECRET_ARN.
func (c PostgresConfig) NeedsSecret() bool {
	return c.Password == "" && c.SecretARN != ""
}

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
}

// NewConfig reads the configuration from the environment, loading a .env file
// from the working directory first when one exists.
func NewConfig() (*Config, error) {
	return Load(".env")
}

func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process("", &cfg.App); err != nil {
		return nil, fmt.Errorf("config: app: %w", err)
	}
	if err := envconfig.Process("", &cfg.Postgres); err != nil {
		return nil, fmt.Errorf("config: postgres: %w", err)
	}
	return cfg, nil
}

// ResolvePort parses a port number. Anything that is not an integer in 1..65535,
// including an empty string, yields the default PostgreSQL port.
func ResolvePort(raw string) int {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port <= 0 || port > 65535 {
		return DefaultPostgresPort
	}
	return port
}
