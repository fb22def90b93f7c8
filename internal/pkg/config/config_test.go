package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestProcess_Defaults(t *testing.T) {
	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": secret,
	}))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if cfg.Port != "8080" || cfg.Mongo.Database != "todo_system" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute || cfg.Auth.RefreshTokenTTL != 168*time.Hour {
		t.Fatalf("unexpected token lifetimes: %+v", cfg.Auth)
	}
	if cfg.Auth.RefreshTokenStore != RefreshStoreMongo || !cfg.Auth.SeedRoles {
		t.Fatalf("unexpected auth defaults: %+v", cfg.Auth)
	}
}

func TestProcess_MissingSecret(t *testing.T) {
	if _, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Fatalf("expected error for missing JWT_SECRET")
	}
}

func TestProcess_InvalidLifetimes(t *testing.T) {
	_, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":        secret,
		"ACCESS_TOKEN_TTL":  "1h",
		"REFRESH_TOKEN_TTL": "30m",
	}))
	if err == nil || !strings.Contains(err.Error(), "REFRESH_TOKEN_TTL") {
		t.Fatalf("expected lifetime error, got %v", err)
	}
}

func TestProcess_UnknownStore(t *testing.T) {
	_, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":          secret,
		"REFRESH_TOKEN_STORE": "memcached",
	}))
	if err == nil || !strings.Contains(err.Error(), "REFRESH_TOKEN_STORE") {
		t.Fatalf("expected store error, got %v", err)
	}
}
