package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	DatasetPath      string
	ThemeOverrideDir string

	RedisURL    string
	DatabaseURL string

	HTTPAddr string

	MaxPuzzles int
	ServedTTL  time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:   ":8080",
		MaxPuzzles: 36,
		ServedTTL:  6 * time.Hour,
	}

	cfg.DatasetPath = strings.TrimSpace(os.Getenv("DATASET_PATH"))
	cfg.ThemeOverrideDir = strings.TrimSpace(os.Getenv("THEME_OVERRIDE_DIR"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("MAX_PUZZLES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPuzzles = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SERVED_TTL")); v != "" { // duration like 6h or 30m
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ServedTTL = d
		}
	}

	if cfg.DatasetPath == "" {
		return nil, errors.New("DATASET_PATH is required")
	}

	return cfg, nil
}
