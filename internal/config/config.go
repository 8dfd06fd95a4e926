// Package config centralizes the service settings. The constants are the
// defaults; Load applies environment overrides on top of them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Server
	DefaultPort = "8080"
	APIBasePath = "/api"

	// Worker Configuration
	WorkerPoolSize   = 4
	JobQueueCapacity = 32

	// Rate Limiting
	RequestsPerSecond = 20
	BurstSize         = 40

	// Redis Configuration
	RedisAddr     = "localhost:6379"
	RedisPassword = ""
	RedisDB       = 0

	// Artifact lifecycle
	ArtifactRetention = 30 * time.Minute
	SweepInterval     = 5 * time.Minute

	// External tools
	InfoTimeout    = 45 * time.Second
	ConvertTimeout = 10 * time.Minute
	TrimTimeout    = 5 * time.Minute
	CopyAttempts   = 3
	CopyRetryDelay = 500 * time.Millisecond

	ShutdownTimeout = 30 * time.Second
)

type Config struct {
	Port      string
	StaticDir string

	YtdlpPath  string
	FFmpegPath string

	TempDir      string
	ConvertedDir string

	WorkerPoolSize   int
	JobQueueCapacity int

	RequestsPerSecond float64
	BurstSize         int

	// RedisAddr empty disables the Redis mirror.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Retention     time.Duration
	SweepInterval time.Duration

	InfoTimeout    time.Duration
	ConvertTimeout time.Duration
	TrimTimeout    time.Duration
	CopyAttempts   int
	CopyRetryDelay time.Duration
}

// Default returns the configuration built from the constants alone.
func Default() Config {
	return Config{
		Port:              DefaultPort,
		YtdlpPath:         "yt-dlp",
		FFmpegPath:        "ffmpeg",
		TempDir:           filepath.Join(os.TempDir(), "yt2mp3"),
		ConvertedDir:      "converted",
		WorkerPoolSize:    WorkerPoolSize,
		JobQueueCapacity:  JobQueueCapacity,
		RequestsPerSecond: RequestsPerSecond,
		BurstSize:         BurstSize,
		RedisAddr:         RedisAddr,
		RedisPassword:     RedisPassword,
		RedisDB:           RedisDB,
		Retention:         ArtifactRetention,
		SweepInterval:     SweepInterval,
		InfoTimeout:       InfoTimeout,
		ConvertTimeout:    ConvertTimeout,
		TrimTimeout:       TrimTimeout,
		CopyAttempts:      CopyAttempts,
		CopyRetryDelay:    CopyRetryDelay,
	}
}

// Load reads configuration from environment with the defaults above.
func Load() Config {
	cfg := Default()
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.StaticDir = getEnv("STATIC_DIR", cfg.StaticDir)
	cfg.YtdlpPath = getEnv("YTDLP_PATH", cfg.YtdlpPath)
	cfg.FFmpegPath = getEnv("FFMPEG_PATH", cfg.FFmpegPath)
	cfg.TempDir = getEnv("TEMP_DIR", cfg.TempDir)
	cfg.ConvertedDir = getEnv("CONVERTED_DIR", cfg.ConvertedDir)
	cfg.WorkerPoolSize = getEnvAsInt("WORKER_POOL_SIZE", cfg.WorkerPoolSize)
	cfg.JobQueueCapacity = getEnvAsInt("JOB_QUEUE_CAPACITY", cfg.JobQueueCapacity)
	cfg.RequestsPerSecond = getEnvAsFloat("REQUESTS_PER_SECOND", cfg.RequestsPerSecond)
	cfg.BurstSize = getEnvAsInt("BURST_SIZE", cfg.BurstSize)
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvAsInt("REDIS_DB", cfg.RedisDB)
	cfg.Retention = getEnvAsDuration("RETENTION", cfg.Retention)
	cfg.SweepInterval = getEnvAsDuration("SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.InfoTimeout = getEnvAsDuration("INFO_TIMEOUT", cfg.InfoTimeout)
	cfg.ConvertTimeout = getEnvAsDuration("CONVERT_TIMEOUT", cfg.ConvertTimeout)
	cfg.TrimTimeout = getEnvAsDuration("TRIM_TIMEOUT", cfg.TrimTimeout)
	cfg.CopyAttempts = getEnvAsInt("COPY_ATTEMPTS", cfg.CopyAttempts)
	cfg.CopyRetryDelay = getEnvAsDuration("COPY_RETRY_DELAY", cfg.CopyRetryDelay)
	return cfg
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// EnsureDirs creates the scratch directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.TempDir, c.ConvertedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
