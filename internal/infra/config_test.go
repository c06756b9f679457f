package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.JobStream != "STYLE_JOBS" || cfg.JobSubject != "style.jobs" {
		t.Fatalf("unexpected queue names: %s %s", cfg.JobStream, cfg.JobSubject)
	}
	if cfg.RateLimitMaxRequests != 20 {
		t.Fatalf("RateLimitMaxRequests mismatch: got %d want 20", cfg.RateLimitMaxRequests)
	}
	if cfg.RateLimitWindow != time.Hour {
		t.Fatalf("RateLimitWindow mismatch: got %v want 1h", cfg.RateLimitWindow)
	}
	if cfg.JobMaxDeliver != 5 || cfg.JobRetryDelay != 30*time.Second {
		t.Fatalf("unexpected retry policy: %d %v", cfg.JobMaxDeliver, cfg.JobRetryDelay)
	}
	if cfg.StorageBackend != "filesystem" {
		t.Fatalf("StorageBackend mismatch: got %q", cfg.StorageBackend)
	}
}

func TestLoadConfigRejectsUnknownStorageBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "gcs")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported STORAGE_BACKEND")
	}
}

func TestLoadConfigRequiresBucketForS3(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when S3_BUCKET is missing")
	}
}
