package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint != defaultEndpoint {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, defaultEndpoint)
	}
	if cfg.Addr != defaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, defaultAddr)
	}
	if cfg.Width != defaultWidth || cfg.Height != defaultHeight {
		t.Errorf("viewport = %gx%g, want %dx%d", cfg.Width, cfg.Height, defaultWidth, defaultHeight)
	}
	if cfg.Token != "" {
		t.Errorf("Token = %q, want empty", cfg.Token)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARCHVIEW_ENDPOINT", "https://pipeline.example/api/v1")
	t.Setenv("ARCHVIEW_TOKEN", "tok-123")
	t.Setenv("ARCHVIEW_PORT", "9001")
	t.Setenv("ARCHVIEW_VIEW_WIDTH", "1024")
	t.Setenv("ARCHVIEW_VIEW_HEIGHT", "768")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint != "https://pipeline.example/api/v1" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.Token != "tok-123" {
		t.Errorf("Token = %q, want tok-123", cfg.Token)
	}
	if cfg.Addr != "127.0.0.1:9001" {
		t.Errorf("Addr = %q, want 127.0.0.1:9001", cfg.Addr)
	}
	if cfg.Width != 1024 || cfg.Height != 768 {
		t.Errorf("viewport = %gx%g, want 1024x768", cfg.Width, cfg.Height)
	}
}

func TestTokenFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  tok-from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARCHVIEW_TOKEN_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "tok-from-file" {
		t.Errorf("Token = %q, want tok-from-file", cfg.Token)
	}
}

func TestTokenLiteralWinsOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARCHVIEW_TOKEN", "literal")
	t.Setenv("ARCHVIEW_TOKEN_FILE", filepath.Join(t.TempDir(), "missing"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "literal" {
		t.Errorf("Token = %q, want literal", cfg.Token)
	}
}

func TestInvalidViewport(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARCHVIEW_VIEW_WIDTH", "zero")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric width")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ARCHVIEW_ENDPOINT", "ARCHVIEW_TOKEN", "ARCHVIEW_TOKEN_FILE",
		"ARCHVIEW_ADDR", "ARCHVIEW_PORT", "ARCHVIEW_DB_PATH",
		"ARCHVIEW_REDIS_ADDR", "ARCHVIEW_VIEW_WIDTH", "ARCHVIEW_VIEW_HEIGHT",
	} {
		t.Setenv(key, "")
	}
}
