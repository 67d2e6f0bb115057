package config

import (
	"strings"
	"testing"
	"time"
)

func baseArgs() []string {
	return []string{
		"-database-url", "postgres://localhost/pizza",
		"-jwt-secret", "s3cret",
		"-metrics-url", "https://otlp.example/otlp/v1/metrics",
		"-metrics-api-key", "123:abc",
		"-metrics-source", "jwt-pizza-service-dev",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(baseArgs())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Fatalf("unexpected addr %s", cfg.Addr)
	}
	if cfg.MetricsInterval != 10*time.Second || cfg.MetricsTimeout != 5*time.Second {
		t.Fatalf("unexpected metrics timing %s/%s", cfg.MetricsInterval, cfg.MetricsTimeout)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PIZZA_METRICS_INTERVAL", "2s")
	t.Setenv("PIZZA_ADDR", ":8080")
	cfg, err := Load(baseArgs())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MetricsInterval != 2*time.Second || cfg.Addr != ":8080" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadFailsFastWithoutTelemetry(t *testing.T) {
	_, err := Load([]string{"-database-url", "postgres://x", "-jwt-secret", "s"})
	if err == nil {
		t.Fatalf("expected error when metrics config is missing")
	}
	if !strings.Contains(err.Error(), "metrics url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadAllowsDisabledMetrics(t *testing.T) {
	if _, err := Load([]string{"-database-url", "postgres://x", "-jwt-secret", "s", "-metrics=false"}); err != nil {
		t.Fatalf("Load with metrics disabled: %v", err)
	}
}

func TestValidateAdminPair(t *testing.T) {
	cfg := &Config{Addr: ":1", DatabaseURL: "x", JWTSecret: "s", AdminEmail: "a@jwt.com"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for admin email without password")
	}
}
