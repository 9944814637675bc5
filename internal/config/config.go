package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	DatabaseURL            string
	JWTSecret              string
	JWTIssuer              string
	CorsOrigins            []string
	StreamKeepaliveSeconds int
	StreamBufferSize       int
	MetricsDiskPath        string
	MetricsSampleSeconds   int
	TapEventHistoryLimit   int
	LegacyLectureGraceMins int
}

func Load() Config {
	return Config{
		DatabaseURL:            mustEnv("DATABASE_URL"),
		JWTSecret:              mustEnv("JWT_SECRET"),
		JWTIssuer:              envOr("JWT_ISSUER", "unitap"),
		CorsOrigins:            parseCSV(envOr("CORS_ORIGINS", "")),
		StreamKeepaliveSeconds: envOrInt("STREAM_KEEPALIVE_SECONDS", 30),
		StreamBufferSize:       envOrInt("STREAM_BUFFER_SIZE", 16),
		MetricsDiskPath:        envOr("METRICS_DISK_PATH", "storage"),
		MetricsSampleSeconds:   envOrInt("METRICS_SAMPLE_INTERVAL", 30),
		TapEventHistoryLimit:   envOrInt("TAP_EVENT_HISTORY_LIMIT", 200),
		LegacyLectureGraceMins: envOrInt("LEGACY_LECTURE_GRACE_MINUTES", 15),
	}
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
