package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// GitHub
	GitHubToken  string
	GitHubAPIURL string

	// Sources
	IssueFeedURL string
	SourcesFile  string

	// Fetch
	FetchTimeout    time.Duration
	FetchMaxSize    int64
	ResearchTimeout time.Duration
	RecencyWindow   time.Duration
	BatchSize       int
	BatchDelay      time.Duration
	BlogFeedDelay   time.Duration
	UserAgent       string

	// Ingest
	IngestInterval  time.Duration
	RateLimitIngest int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	cfg.GitHubAPIURL = getEnvString("GITHUB_API_URL", "https://api.github.com")
	cfg.IssueFeedURL = getEnvString("ISSUE_FEED_URL", "https://ethereal.news/rss.xml")
	cfg.SourcesFile = os.Getenv("SOURCES_FILE")
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 30*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.ResearchTimeout = getEnvDuration("RESEARCH_TIMEOUT", 10*time.Second)
	cfg.RecencyWindow = getEnvDuration("RECENCY_WINDOW", 7*24*time.Hour)
	cfg.BatchSize = getEnvInt("BATCH_SIZE", 10)
	cfg.BatchDelay = getEnvDuration("BATCH_DELAY", 200*time.Millisecond)
	cfg.BlogFeedDelay = getEnvDuration("BLOG_FEED_DELAY", 500*time.Millisecond)
	cfg.UserAgent = getEnvString("USER_AGENT", "ethfeed/1.0")
	cfg.IngestInterval = getEnvDuration("INGEST_INTERVAL", 6*time.Hour)
	cfg.RateLimitIngest = getEnvInt("RATE_LIMIT_INGEST", 6)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
