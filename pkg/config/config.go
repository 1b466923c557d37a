package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres  = "postgres"
	StoreDriverMySQL     = "mysql"
	StoreDriverSQLite    = "sqlite"
	StoreDriverFirestore = "firestore"

	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

type Config struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	FirebaseProject            string `env:"FIREBASE_PROJECT_ID"`
	FirebaseServiceAccountPath string `env:"FIREBASE_SERVICE_ACCOUNT_PATH"`
	FirebaseServiceAccountJSON string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`

	AuthProvider string `env:"AUTH_PROVIDER" envDefault:"jwt"`
	JWTSecret    string `env:"JWT_SECRET" envDefault:"your-secret-key"`

	RedisURL string `env:"REDIS_URL"`

	PriceAlertInterval    time.Duration `env:"PRICE_ALERT_INTERVAL" envDefault:"30m"`
	TypingTTL             time.Duration `env:"TYPING_TTL" envDefault:"5s"`
	WSSendBuffer          int           `env:"WS_SEND_BUFFER" envDefault:"256"`
	NotificationListLimit int           `env:"NOTIFICATION_LIST_LIMIT" envDefault:"50"`
	HTTPRateLimit         int           `env:"HTTP_RATE_LIMIT" envDefault:"120"`
	CORSOrigins           []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMySQL, StoreDriverSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for store driver %q", c.StoreDriver)
		}
	case StoreDriverFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.AuthProvider {
	case AuthProviderJWT:
		if c.IsProduction() && c.JWTSecret == "your-secret-key" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	case AuthProviderFirebase:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for auth provider %q", c.AuthProvider)
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NeedsFirebase reports whether a Firebase app has to be initialised.
func (c *Config) NeedsFirebase() bool {
	return c.StoreDriver == StoreDriverFirestore || c.AuthProvider == AuthProviderFirebase
}
