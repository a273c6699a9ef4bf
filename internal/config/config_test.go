package config

import (
	"strings"
	"testing"
	"time"
)

func validBase() Config {
	return Config{
		App:  AppConfig{Env: "local", Port: 8080},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_EmptyConfigFails(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_AppliesTokenTTLDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access TTL default, got %v", c.Auth.AccessTokenTTL)
	}
	if c.Auth.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("expected 30d refresh TTL default, got %v", c.Auth.RefreshTokenTTL)
	}
}

func TestValidate_RefreshTTLMustExceedAccessTTL(t *testing.T) {
	c := validBase()
	c.Auth.AccessTokenTTL = time.Hour
	c.Auth.RefreshTokenTTL = time.Minute
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for refresh TTL <= access TTL")
	}
}

func TestValidate_ProductionRequiresIssuerAudienceAndCatalog(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"JWT_ISSUER", "JWT_AUDIENCE", "TENANTS_FILE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s in error, got %v", want, err)
		}
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "callgate"
	c.Auth.JWTAudience = "agents"
	c.Tenants.File = "/etc/callgate/tenants.json"
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "callgate"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validBase()
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "callgate"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_CallCapNeedsLimit(t *testing.T) {
	c := validBase()
	c.Redis = RedisConfig{Host: "localhost", Port: 6379}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for enabled cap without REDIS_CALL_LIMIT")
	}

	c.Redis.CallLimit = 5
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error with a limit, got %v", err)
	}
}

func TestValidate_NegativeTimingsRejected(t *testing.T) {
	c := validBase()
	c.IVR.RingTimeoutSeconds = -1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative ring timeout")
	}

	c = validBase()
	c.Reap.SessionTTL = -time.Minute
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative session TTL")
	}
}

func TestHTTPAddr(t *testing.T) {
	c := validBase()
	if got := c.HTTPAddr(); got != ":8080" {
		t.Fatalf("expected :8080, got %q", got)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("IVR_DIGIT_TIMEOUT_SECONDS", "5")
	t.Setenv("REAP_INTERVAL", "10m")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("DB_HOST", "")

	c, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.App.Port != 9090 {
		t.Errorf("expected port 9090, got %d", c.App.Port)
	}
	if c.IVR.DigitTimeoutSeconds != 5 {
		t.Errorf("expected digit timeout 5, got %d", c.IVR.DigitTimeoutSeconds)
	}
	if c.Reap.Interval != 10*time.Minute {
		t.Errorf("expected reap interval 10m, got %v", c.Reap.Interval)
	}
}
