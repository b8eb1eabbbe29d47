package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// APIToken guards the /v1 surface. Empty means the API is open, which
	// is only sensible for local development.
	APIToken string `envconfig:"API_TOKEN"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"echolens-raw"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// EmbeddingRateMicros is the embedding price in micro-USD per 1000
	// tokens. The default matches ada-002 pricing.
	EmbeddingRateMicros int64 `envconfig:"EMBEDDING_RATE_MICROS" default:"100"`

	// BudgetUSD caps total embedding spend per process lifetime. Zero
	// disables the cap.
	BudgetUSD float64 `envconfig:"BUDGET_USD" default:"0"`

	// TruncateOversized trims oversized inputs instead of rejecting them.
	TruncateOversized bool `envconfig:"TRUNCATE_OVERSIZED" default:"true"`

	// Per-platform self-imposed request limits per rate window.
	RateWindow       time.Duration `envconfig:"RATE_WINDOW" default:"1m"`
	YouTubeRateLimit int           `envconfig:"YOUTUBE_RATE_LIMIT" default:"100"`
	RedditRateLimit  int           `envconfig:"REDDIT_RATE_LIMIT" default:"60"`
	WebRateLimit     int           `envconfig:"WEB_RATE_LIMIT" default:"30"`

	YouTubeAPIBaseURL string `envconfig:"YOUTUBE_API_BASE_URL" default:"https://api.invidious.example"`
	YouTubeWebBaseURL string `envconfig:"YOUTUBE_WEB_BASE_URL" default:"https://www.youtube.com"`
	YouTubeAPIKey     string `envconfig:"YOUTUBE_API_KEY"`

	RedditAPIBaseURL    string `envconfig:"REDDIT_API_BASE_URL" default:"https://www.reddit.com"`
	RedditMirrorBaseURL string `envconfig:"REDDIT_MIRROR_BASE_URL" default:"https://old.reddit.com"`

	// WorkerPollInterval is how often the embed backlog is polled.
	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"10s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ECHOLENS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// BudgetMicros converts the configured USD budget to micro-USD.
func (c *Config) BudgetMicros() int64 {
	return int64(c.BudgetUSD * 1_000_000)
}
