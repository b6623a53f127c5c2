// Package config resolves runtime settings from a .env file, ARCHVIEW_*
// environment variables, and defaults, in that order of discovery. Command
// flags override whatever this package resolves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultEndpoint = "http://127.0.0.1:8000/api/v1"
	defaultAddr     = "127.0.0.1:8099"
	defaultWidth    = 800
	defaultHeight   = 600
)

// Config is everything the commands need to talk to the backend and host
// the viewer.
type Config struct {
	Endpoint  string
	Token     string
	DBPath    string
	Addr      string
	RedisAddr string
	Width     float64
	Height    float64
}

// Load reads .env if present, then the environment. It never fails on a
// missing .env file.
func Load() (Config, error) {
	// Values already in the environment win over .env entries.
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	cfg := Config{
		Endpoint:  envOrDefault("ARCHVIEW_ENDPOINT", defaultEndpoint),
		DBPath:    resolvePath(envOrDefault("ARCHVIEW_DB_PATH", filepath.Join(cwd, "archview.db")), cwd),
		Addr:      addrFromEnv(defaultAddr),
		RedisAddr: os.Getenv("ARCHVIEW_REDIS_ADDR"),
		Width:     defaultWidth,
		Height:    defaultHeight,
	}

	cfg.Token, err = resolveToken(cwd)
	if err != nil {
		return Config{}, err
	}

	if w := os.Getenv("ARCHVIEW_VIEW_WIDTH"); w != "" {
		cfg.Width, err = parseDimension("ARCHVIEW_VIEW_WIDTH", w)
		if err != nil {
			return Config{}, err
		}
	}
	if h := os.Getenv("ARCHVIEW_VIEW_HEIGHT"); h != "" {
		cfg.Height, err = parseDimension("ARCHVIEW_VIEW_HEIGHT", h)
		if err != nil {
			return Config{}, err
		}
	}

	if strings.TrimSpace(cfg.Endpoint) == "" {
		return Config{}, fmt.Errorf("ARCHVIEW_ENDPOINT cannot be empty")
	}
	return cfg, nil
}

// resolveToken prefers the literal token over a token file.
func resolveToken(cwd string) (string, error) {
	if token := os.Getenv("ARCHVIEW_TOKEN"); token != "" {
		return token, nil
	}
	path := os.Getenv("ARCHVIEW_TOKEN_FILE")
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(resolvePath(path, cwd))
	if err != nil {
		return "", fmt.Errorf("failed to read ARCHVIEW_TOKEN_FILE: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func parseDimension(key, value string) (float64, error) {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return parsed, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("ARCHVIEW_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("ARCHVIEW_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
