package config

import (
	"errors"
	"time"
)

// Config holds runtime configuration for the API service.
type Config struct {
	Environment      string
	Addr             string
	DatabaseURL      string
	MigrationsDir    string
	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	BcryptCost       int
}

// Load constructs a Config from environment variables. Token secrets have no
// default; Validate rejects a Config without them.
func Load() Config {
	return Config{
		Environment:      GetString("APP_ENV", "development"),
		Addr:             GetString("API_ADDR", ":4000"),
		DatabaseURL:      GetString("DATABASE_URL", "postgres://tasktrack:tasktrack@db:5432/tasktrack?sslmode=disable"),
		MigrationsDir:    GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:        GetString("JWT_SECRET", ""),
		JWTRefreshSecret: GetString("JWT_REFRESH_SECRET", ""),
		AccessTokenTTL:   time.Duration(GetInt("ACCESS_TOKEN_TTL_HOURS", 7*24)) * time.Hour,
		RefreshTokenTTL:  time.Duration(GetInt("REFRESH_TOKEN_TTL_HOURS", 30*24)) * time.Hour,
		BcryptCost:       GetInt("BCRYPT_COST", 12),
	}
}

// Validate rejects configurations the process must not serve with. Missing
// signing secrets are fatal rather than defaulted.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not defined")
	}
	if c.JWTRefreshSecret == "" {
		return errors.New("JWT_REFRESH_SECRET is not defined")
	}
	if c.JWTSecret == c.JWTRefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	return nil
}
