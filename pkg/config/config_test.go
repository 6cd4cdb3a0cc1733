package config

import (
	"testing"
	"time"
)

func TestValidateRequiresDistinctSecrets(t *testing.T) {
	cfg := Config{JWTSecret: "a", JWTRefreshSecret: "b"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	if err := (Config{JWTRefreshSecret: "b"}).Validate(); err == nil {
		t.Fatal("missing access secret accepted")
	}
	if err := (Config{JWTSecret: "a"}).Validate(); err == nil {
		t.Fatal("missing refresh secret accepted")
	}
	if err := (Config{JWTSecret: "a", JWTRefreshSecret: "a"}).Validate(); err == nil {
		t.Fatal("identical secrets accepted")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")

	cfg := Load()
	if cfg.AccessTokenTTL != 7*24*time.Hour {
		t.Fatalf("unexpected access ttl: %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("unexpected refresh ttl: %v", cfg.RefreshTokenTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("unexpected bcrypt cost: %d", cfg.BcryptCost)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
}

func TestGetIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("BCRYPT_COST", "not-a-number")
	if got := GetInt("BCRYPT_COST", 12); got != 12 {
		t.Fatalf("expected fallback 12, got %d", got)
	}
}
