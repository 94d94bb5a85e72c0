package config

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret-do-not-use")
	os.Setenv("MAX_UPLOAD_BYTES", "2048")
	os.Setenv("ALLOWED_EXTENSIONS", ".png, .gif")
	os.Setenv("UPLOAD_ROOT", "/tmp/secureblog-test-uploads")
	os.Exit(m.Run())
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	cfg := Load()

	if cfg.JWTSecret != "test-secret-do-not-use" {
		t.Errorf("JWTSecret not taken from environment")
	}

	// Environment overrides.
	if cfg.MaxUploadBytes != 2048 {
		t.Errorf("MaxUploadBytes = %d, want 2048", cfg.MaxUploadBytes)
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[0] != ".png" || cfg.AllowedExtensions[1] != ".gif" {
		t.Errorf("AllowedExtensions = %v, want [.png .gif]", cfg.AllowedExtensions)
	}
	if cfg.UploadRoot != "/tmp/secureblog-test-uploads" {
		t.Errorf("UploadRoot = %q", cfg.UploadRoot)
	}

	// Untouched fields keep defaults.
	if cfg.AppPort != "8080" {
		t.Errorf("AppPort = %q, want 8080", cfg.AppPort)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Errorf("RateLimitPerMinute = %d, want 60", cfg.RateLimitPerMinute)
	}
	if cfg.PublicBaseURL != "/static/uploads" {
		t.Errorf("PublicBaseURL = %q, want /static/uploads", cfg.PublicBaseURL)
	}
	if cfg.UploadSweepMinutes != 15 {
		t.Errorf("UploadSweepMinutes = %d, want 15", cfg.UploadSweepMinutes)
	}
}

func TestGetReturnsCachedConfig(t *testing.T) {
	first := Load()

	// Later environment changes must not leak into the cached config.
	os.Setenv("APP_PORT", "9999")
	defer os.Unsetenv("APP_PORT")

	second := Get()
	if second.AppPort != first.AppPort {
		t.Errorf("Get reloaded config: %q vs %q", second.AppPort, first.AppPort)
	}
}
