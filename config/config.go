package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Artifacts ArtifactsConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            int
	GinMode         string
	MaxUploadMB     int
	ShutdownTimeout time.Duration
}

// MaxUploadBytes is the largest accepted CSV upload.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

type ArtifactsConfig struct {
	DataPath   string
	ModelPath  string
	SchemaPath string
}

type RedisConfig struct {
	URL      string
	ViewsTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins string
}

type LogConfig struct {
	Level string
}

// SlogLevel maps the configured level name to a slog level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", l.Level, err)
	}
	return level, nil
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxUpload, err := getIntEnv("MAX_UPLOAD_MB", 32)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: must be positive, got %d", maxUpload)
	}

	shutdownSec, err := getIntEnv("SHUTDOWN_TIMEOUT_SEC", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT_SEC: %w", err)
	}

	ttlSec, err := getIntEnv("VIEW_CACHE_TTL_SEC", 300)
	if err != nil {
		return nil, fmt.Errorf("invalid VIEW_CACHE_TTL_SEC: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            serverPort,
			GinMode:         getEnv("GIN_MODE", "release"),
			MaxUploadMB:     maxUpload,
			ShutdownTimeout: time.Duration(shutdownSec) * time.Second,
		},
		Artifacts: ArtifactsConfig{
			DataPath:   getEnv("DATA_PATH", "data/foot_traffic.csv"),
			ModelPath:  getEnv("MODEL_PATH", "models/model.json"),
			SchemaPath: getEnv("SCHEMA_PATH", "models/features.json"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			ViewsTTL: time.Duration(ttlSec) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if _, err := cfg.Log.SlogLevel(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
