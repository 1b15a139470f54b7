package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("mongo_uri = %s", cfg.MongoURI)
	}
	if cfg.QueueName != "speakflow:analysis" {
		t.Errorf("queue_name = %s", cfg.QueueName)
	}
	if cfg.PollInterval != time.Second {
		t.Errorf("poll_interval = %s, want 1s", cfg.PollInterval)
	}
	if cfg.StorageBackend != "local" {
		t.Errorf("storage_backend = %s, want local", cfg.StorageBackend)
	}
	if cfg.ASRBackend != "whisper" {
		t.Errorf("asr_backend = %s, want whisper", cfg.ASRBackend)
	}
	if cfg.MaxUploadMB != 25 {
		t.Errorf("max_upload_mb = %d, want 25", cfg.MaxUploadMB)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SPEAKFLOW_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("SPEAKFLOW_STORAGE_BACKEND", "s3")
	t.Setenv("SPEAKFLOW_POLL_INTERVAL", "250ms")
	t.Setenv("SPEAKFLOW_MAX_UPLOAD_MB", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RedisAddr != "redis.internal:6380" {
		t.Errorf("redis_addr = %s", cfg.RedisAddr)
	}
	if cfg.StorageBackend != "s3" {
		t.Errorf("storage_backend = %s, want s3", cfg.StorageBackend)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("poll_interval = %s, want 250ms", cfg.PollInterval)
	}
	if cfg.MaxUploadMB != 50 {
		t.Errorf("max_upload_mb = %d, want 50", cfg.MaxUploadMB)
	}
}
