package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Compute endpoint
	ProcessVideoEndpoint     string
	ProcessVideoEndpointAuth string
	ProcessVideoTimeout      time.Duration

	// Object storage
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3BucketName       string
	S3Endpoint         string

	// Worker
	WorkerCount     int
	MaxYouTubeClips int
	UserLockTTL     time.Duration

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                     getEnvOrDefault("PORT", "8080"),
		Env:                      getEnvOrDefault("ENV", "development"),
		DatabaseURL:              mustGetEnv("DATABASE_URL"),
		RedisURL:                 mustGetEnv("REDIS_URL"),
		JWTSecret:                mustGetEnv("JWT_SECRET"),
		ProcessVideoEndpoint:     mustGetEnv("PROCESS_VIDEO_ENDPOINT"),
		ProcessVideoEndpointAuth: mustGetEnv("PROCESS_VIDEO_ENDPOINT_AUTH"),
		ProcessVideoTimeout:      getEnvAsDurationOrDefault("PROCESS_VIDEO_TIMEOUT", 15*time.Minute),
		AWSRegion:                getEnvOrDefault("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:           getEnvOrDefault("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:       getEnvOrDefault("AWS_SECRET_ACCESS_KEY", ""),
		S3BucketName:             mustGetEnv("S3_BUCKET_NAME"),
		S3Endpoint:               getEnvOrDefault("S3_ENDPOINT", ""),
		WorkerCount:              getEnvAsIntOrDefault("WORKER_COUNT", 4),
		MaxYouTubeClips:          getEnvAsIntOrDefault("MAX_YOUTUBE_CLIPS", 5),
		UserLockTTL:              getEnvAsDurationOrDefault("USER_LOCK_TTL", 20*time.Minute),
		FrontendURL:              getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	// The user lock bounds each attempt, so it must outlive the compute call.
	if cfg.UserLockTTL <= cfg.ProcessVideoTimeout {
		ttl := cfg.ProcessVideoTimeout + lockTTLMargin
		log.Printf("USER_LOCK_TTL %s does not exceed PROCESS_VIDEO_TIMEOUT %s, using %s", cfg.UserLockTTL, cfg.ProcessVideoTimeout, ttl)
		cfg.UserLockTTL = ttl
	}

	return cfg
}

const lockTTLMargin = 5 * time.Minute

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go duration strings ("90s", "15m").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
