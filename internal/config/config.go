package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"kodi"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"kodi"`
	}

	Server struct {
		Timeout     time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		CORSOrigins []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	}

	// Billing controls how the ledger engine interprets calendar time. The
	// timezone is a named setting, not a hardcoded offset, so month
	// boundaries stay correct if the deployment's operating timezone moves.
	Billing struct {
		Timezone string `envconfig:"BILLING_TIMEZONE" default:"Africa/Nairobi"`
		DueDay   int    `envconfig:"BILLING_DUE_DAY" default:"5"`
	}

	Schedule struct {
		Enabled bool          `envconfig:"SCHEDULE_ENABLED" default:"true"`
		Cron    string        `envconfig:"SCHEDULE_CRON" default:"0 6 * * *"`
		Timeout time.Duration `envconfig:"SCHEDULE_TIMEOUT" default:"10m"`
	}

	Metrics struct {
		Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
