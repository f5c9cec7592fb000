package config

import (
	"testing"
	"time"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if v := envInt("TEST_INT", 0); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	// TEST_INT_MISSING is not set.
	if v := envInt("TEST_INT_MISSING", 99); v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	if v := envInt("TEST_INT_BAD", 7); v != 7 {
		t.Fatalf("expected fallback 7 for non-integer value, got %d", v)
	}
}

func TestEnvFloatValid(t *testing.T) {
	t.Setenv("TEST_FLOAT", "2.5")
	if v := envFloat("TEST_FLOAT", 0); v != 2.5 {
		t.Fatalf("expected 2.5, got %v", v)
	}
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DUR", "90s")
	if v := envDuration("TEST_DUR", time.Minute); v != 90*time.Second {
		t.Fatalf("expected 90s, got %v", v)
	}
}

func TestEnvDurationInvalid(t *testing.T) {
	t.Setenv("TEST_DUR_BAD", "soon")
	if v := envDuration("TEST_DUR_BAD", time.Minute); v != time.Minute {
		t.Fatalf("expected fallback 1m, got %v", v)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.MaxIterations != 5 {
		t.Fatalf("expected default max iterations 5, got %d", cfg.MaxIterations)
	}
	if cfg.HistoryWindow != 20 {
		t.Fatalf("expected default history window 20, got %d", cfg.HistoryWindow)
	}
	if cfg.ServiceName != "tasuki" {
		t.Fatalf("expected default service name tasuki, got %s", cfg.ServiceName)
	}
}

func TestValidateRejectsBadProvider(t *testing.T) {
	cfg := Config{
		DatabaseURL:         "postgres://x",
		MaxIterations:       5,
		HistoryWindow:       20,
		MaxRequestBodyBytes: 1,
		ChatProvider:        "anthropic",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown chat provider, got nil")
	}
}

func TestValidateRejectsZeroIterations(t *testing.T) {
	cfg := Config{
		DatabaseURL:         "postgres://x",
		MaxIterations:       0,
		HistoryWindow:       20,
		MaxRequestBodyBytes: 1,
		ChatProvider:        "auto",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero max iterations, got nil")
	}
}
