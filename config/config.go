package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ecoecho-core/utils"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Port           string
	AllowedOrigins string

	StoreDriver string
	DatabaseURL string
	RedisURL    string

	APIBaseURL     string
	ClassifierURL  string
	DeviceAPIToken string
	UploadDir      string

	R2 utils.R2Config

	RefreshThrottle     time.Duration
	SyncInterval        time.Duration
	PushRetryInterval   time.Duration
	CollaboratorTimeout time.Duration
	Location            *time.Location
	LastKnownCacheSize  int
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		APIBaseURL:     os.Getenv("API_BASE_URL"),
		ClassifierURL:  os.Getenv("CLASSIFIER_URL"),
		DeviceAPIToken: os.Getenv("DEVICE_API_TOKEN"),
		UploadDir:      getEnv("UPLOAD_DIR", utils.DefaultUploadDir),

		R2: utils.R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}

	var err error
	if cfg.RefreshThrottle, err = getDurationEnv("REFRESH_THROTTLE", "10s"); err != nil {
		return nil, err
	}
	if cfg.SyncInterval, err = getDurationEnv("SYNC_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.PushRetryInterval, err = getDurationEnv("PUSH_RETRY_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	if cfg.CollaboratorTimeout, err = getDurationEnv("COLLABORATOR_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.LastKnownCacheSize, err = getIntEnv("LAST_KNOWN_CACHE_SIZE", 128); err != nil {
		return nil, err
	}

	tz := getEnv("TIMEZONE", "Local")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER=%s", StoreRedis)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getIntEnv(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
