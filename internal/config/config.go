package config

import (
	"os"
	"strconv"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

type Config struct {
	Port        string
	DatabaseDSN string
	RedisAddr   string // empty disables the summary cache
	Detection   domain.DetectionConfig
}

func Load() Config {
	detection := domain.DefaultConfig()
	detection.WindowWidth = parseFloat(envOrDefault("WINDOW_WIDTH_SECONDS", ""), detection.WindowWidth)
	detection.NumTrees = parseInt(envOrDefault("NUM_TREES", ""), detection.NumTrees)
	detection.SubsampleSize = parseInt(envOrDefault("SUBSAMPLE_SIZE", ""), detection.SubsampleSize)
	detection.Contamination = parseFloat(envOrDefault("CONTAMINATION", ""), detection.Contamination)
	detection.Seed = int64(parseInt(envOrDefault("DETECTION_SEED", ""), 42))

	return Config{
		Port:        envOrDefault("PORT", "8080"),
		DatabaseDSN: envOrDefault("DATABASE_DSN", "postgres://postgres@localhost:5432/jerksentinel?sslmode=disable"),
		RedisAddr:   envOrDefault("REDIS_ADDR", ""),
		Detection:   detection,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}
