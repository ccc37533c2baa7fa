package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Test default configuration
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("JWT_ISS")
	os.Unsetenv("JWT_AUD")
	os.Unsetenv("JWT_EXPIRY")

	cfg := Load()

	// Check defaults
	if cfg.JWTSecret != "your-secret-key-change-in-production" {
		t.Errorf("Expected default JWT_SECRET, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "inventory-monitor-api" {
		t.Errorf("Expected default JWT_ISS, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "inventory-monitor-api" {
		t.Errorf("Expected default JWT_AUD, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("Expected default JWT_EXPIRY, got %v", cfg.JWTExpiry)
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	// Test with environment variables
	os.Setenv("JWT_SECRET", "test-secret-key")
	os.Setenv("JWT_ISS", "test-issuer")
	os.Setenv("JWT_AUD", "test-audience")
	os.Setenv("JWT_EXPIRY", "2h")

	cfg := Load()

	if cfg.JWTSecret != "test-secret-key" {
		t.Errorf("Expected JWT_SECRET from env, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "test-issuer" {
		t.Errorf("Expected JWT_ISS from env, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "test-audience" {
		t.Errorf("Expected JWT_AUD from env, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 2*time.Hour {
		t.Errorf("Expected JWT_EXPIRY from env, got %v", cfg.JWTExpiry)
	}

	// Cleanup
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("JWT_ISS")
	os.Unsetenv("JWT_AUD")
	os.Unsetenv("JWT_EXPIRY")
}

func TestLoadRuntimeDefaults(t *testing.T) {
	rt, err := LoadRuntime("")
	if err != nil {
		t.Fatalf("LoadRuntime with empty path: %v", err)
	}
	if rt.ProbeRecentDays != 7 {
		t.Errorf("Expected default probe_recent_days 7, got %d", rt.ProbeRecentDays)
	}

	label, color := rt.StatusDisplay("XX")
	if label != "XX" || color != "secondary" {
		t.Errorf("Expected fallback (XX, secondary), got (%s, %s)", label, color)
	}
	if rt.Tooltip("XX") != "" {
		t.Errorf("Expected empty tooltip without template")
	}
}

func TestLoadRuntimeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.yaml")
	content := `
probe_recent_days: 3
external_inventory_status_config:
  "01":
    label: In use
    color: success
external_inventory_tooltip_template: "{code}: {label} ({color})"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	rt, err := LoadRuntime(path)
	if err != nil {
		t.Fatalf("LoadRuntime: %v", err)
	}
	if rt.ProbeRecentDays != 3 {
		t.Errorf("Expected probe_recent_days 3, got %d", rt.ProbeRecentDays)
	}

	label, color := rt.StatusDisplay("01")
	if label != "In use" || color != "success" {
		t.Errorf("Expected (In use, success), got (%s, %s)", label, color)
	}
	if got := rt.Tooltip("01"); got != "01: In use (success)" {
		t.Errorf("Unexpected tooltip: %q", got)
	}
	if got := rt.Tooltip("99"); got != "99: 99 (secondary)" {
		t.Errorf("Unexpected fallback tooltip: %q", got)
	}
}

func TestLoadRuntimeMissingFile(t *testing.T) {
	if _, err := LoadRuntime("/nonexistent/runtime.yaml"); err == nil {
		t.Error("Expected error for missing configured file")
	}
}
