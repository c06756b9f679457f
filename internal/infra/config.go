package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	RedisURL string

	NATSURL     string
	JobStream   string
	JobSubject  string
	JobConsumer string

	StorageBackend string
	StoragePath    string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKeyID  string
	S3SecretKey    string
	S3UsePathStyle bool

	PublicBaseURL string

	GeminiAPIKey       string
	GeminiModel        string
	GeminiAnalyzeModel string
	GeminiBaseURL      string

	GeoIPDBPath string

	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	JobMaxDeliver int
	JobRetryDelay time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		NATSURL:     getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		JobStream:   getEnv("JOB_STREAM", "STYLE_JOBS"),
		JobSubject:  getEnv("JOB_SUBJECT", "style.jobs"),
		JobConsumer: getEnv("JOB_CONSUMER", "style-workers"),

		StorageBackend: getEnv("STORAGE_BACKEND", "filesystem"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       getEnv("S3_REGION", "auto"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:  os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:    os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", true),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp-image-generation"),
		GeminiAnalyzeModel: getEnv("GEMINI_ANALYZE_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		RateLimitMaxRequests: getEnvInt("RATE_LIMIT_MAX_REQUESTS", 20),
		RateLimitWindow:      time.Second * time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 3600)),

		JobMaxDeliver: getEnvInt("JOB_MAX_DELIVER", 5),
		JobRetryDelay: time.Second * time.Duration(getEnvInt("JOB_RETRY_DELAY_SECONDS", 30)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.StorageBackend != "filesystem" && cfg.StorageBackend != "s3" {
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.StorageBackend == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
	}

	if cfg.RateLimitMaxRequests <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive")
	}

	if cfg.JobMaxDeliver <= 0 {
		return nil, fmt.Errorf("JOB_MAX_DELIVER must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
