package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds settings for both the API server and the worker.
// Everything is overridable via SPEAKFLOW_* environment variables.
type Config struct {
	// Database
	MongoURI string `mapstructure:"mongo_uri"`
	MongoDB  string `mapstructure:"mongo_db"`

	// Queue (Redis)
	RedisAddr    string        `mapstructure:"redis_addr"`
	QueueName    string        `mapstructure:"queue_name"`
	EventChannel string        `mapstructure:"event_channel"`
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Object storage
	StorageBackend string `mapstructure:"storage_backend"` // "local" or "s3"
	LocalStorage   string `mapstructure:"local_storage_path"`
	S3Endpoint     string `mapstructure:"s3_endpoint"`
	S3Bucket       string `mapstructure:"s3_bucket"`
	S3Region       string `mapstructure:"s3_region"`
	S3AccessKey    string `mapstructure:"s3_access_key"`
	S3SecretKey    string `mapstructure:"s3_secret_key"`
	S3UseSSL       bool   `mapstructure:"s3_use_ssl"`

	// ASR
	ASRBackend   string `mapstructure:"asr_backend"` // "whisper" or "http"
	WhisperPath  string `mapstructure:"whisper_path"`
	WhisperModel string `mapstructure:"whisper_model"`
	ASRServerURL string `mapstructure:"asr_server_url"`

	// Coaching LLM
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIModel   string `mapstructure:"openai_model"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`

	// Drill library
	DrillLibraryPath string `mapstructure:"drill_library_path"`

	// HTTP API
	HTTPPort     string `mapstructure:"http_port"`
	JWTSecret    string `mapstructure:"jwt_secret"`
	AuthUsername string `mapstructure:"auth_username"`
	AuthPassword string `mapstructure:"auth_password"`
	MaxUploadMB  int64  `mapstructure:"max_upload_mb"`
}

// Load reads configuration from the environment with sane local defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db", "speakflow")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("queue_name", "speakflow:analysis")
	v.SetDefault("event_channel", "speakflow:events")
	v.SetDefault("poll_interval", "1s")
	v.SetDefault("storage_backend", "local")
	v.SetDefault("local_storage_path", "/tmp/speakflow/audio")
	v.SetDefault("s3_endpoint", "localhost:9000")
	v.SetDefault("s3_bucket", "speakflow-audio")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_use_ssl", false)
	v.SetDefault("asr_backend", "whisper")
	v.SetDefault("whisper_path", "whisper")
	v.SetDefault("whisper_model", "base")
	v.SetDefault("asr_server_url", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("drill_library_path", "fixtures/speakflow_v1_drills.json")
	v.SetDefault("http_port", "8080")
	v.SetDefault("jwt_secret", "change-me-in-production")
	v.SetDefault("auth_username", "admin")
	v.SetDefault("auth_password", "password123")
	v.SetDefault("max_upload_mb", 25)

	v.SetEnvPrefix("speakflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
