package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("AUTH_SIGNING_SECRET", "test-secret-32-characters-long!!")
	os.Setenv("DB_PASSWORD", "test")
	t.Cleanup(os.Clearenv)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"BearerTokenTTL", cfg.Auth.BearerTokenTTL, 1 * time.Hour},
		{"OTPTTL", cfg.Auth.OTPTTL, 10 * time.Minute},
		{"ClockSkewLeeway", cfg.Auth.ClockSkewLeeway, 0},
		{"CleanupInterval", cfg.Auth.CleanupInterval, 1 * time.Hour},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}
}

func TestLoad_CustomTTLs(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("BEARER_TOKEN_TTL", "30m")
	os.Setenv("OTP_TTL", "5m")
	os.Setenv("AUTH_CLOCK_SKEW_LEEWAY", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.BearerTokenTTL != 30*time.Minute {
		t.Errorf("BearerTokenTTL: got %v, want 30m", cfg.Auth.BearerTokenTTL)
	}
	if cfg.Auth.OTPTTL != 5*time.Minute {
		t.Errorf("OTPTTL: got %v, want 5m", cfg.Auth.OTPTTL)
	}
	if cfg.Auth.ClockSkewLeeway != 10*time.Second {
		t.Errorf("ClockSkewLeeway: got %v, want 10s", cfg.Auth.ClockSkewLeeway)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() with no AUTH_SIGNING_SECRET should fail")
	}
}

func TestLoad_WeakSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("AUTH_SIGNING_SECRET", "short")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() with a short secret should fail")
	}
}

func TestLoad_NonPositiveTTL(t *testing.T) {
	for _, key := range []string{"BEARER_TOKEN_TTL", "OTP_TTL"} {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			os.Setenv(key, "-1s")

			if _, err := Load(); err == nil {
				t.Fatalf("Load() with negative %s should fail", key)
			}
		})
	}
}

func TestLoad_EmailRequiresFromAddress(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("EMAIL_ENABLED", "true")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with EMAIL_ENABLED but no from address should fail")
	}
}
