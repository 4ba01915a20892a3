package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Paymatch"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"paymatch"`
	}

	Server struct {
		Timeout    time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		CORSOrigin string        `envconfig:"CORS_ORIGIN" default:"http://localhost:3000"`
	}

	Auth struct {
		// When empty the API runs without authentication (local use).
		JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	}

	// Matching carries the scoring weights and thresholds. The values are
	// heuristic bookkeeping tuning, kept configurable on purpose.
	Matching struct {
		AmountWeight        float64 `envconfig:"MATCH_AMOUNT_WEIGHT" default:"0.40"`
		InvoiceNumberWeight float64 `envconfig:"MATCH_INVOICE_NUMBER_WEIGHT" default:"0.30"`
		NameWeight          float64 `envconfig:"MATCH_NAME_WEIGHT" default:"0.20"`
		DateWeight          float64 `envconfig:"MATCH_DATE_WEIGHT" default:"0.10"`
		AmountCloseCents    int64   `envconfig:"MATCH_AMOUNT_CLOSE_CENTS" default:"100"`
		CandidateBandCents  int64   `envconfig:"MATCH_CANDIDATE_BAND_CENTS" default:"1000000"`
		Floor               float64 `envconfig:"MATCH_FLOOR" default:"0.5"`
		MinConfidence       float64 `envconfig:"MATCH_MIN_CONFIDENCE" default:"0.7"`
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
