package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	ImageAPI ImageAPIConfig
	Redis    RedisConfig
	Output   OutputConfig
	Batch    BatchConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type ImageAPIConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
	RatePerMinute  int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type OutputConfig struct {
	BaseDirectory string
	MaxInputSize  int64
	CacheDuration time.Duration
	ThumbnailSize int
}

type BatchConfig struct {
	DefaultConcurrency int
	MaxConcurrency     int
	RetryBudget        int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 5*time.Minute),
		},
		ImageAPI: ImageAPIConfig{
			BaseURL:        getEnv("IMAGE_API_BASE_URL", "https://api.openai.com/v1"),
			APIKey:         getEnv("IMAGE_API_KEY", ""),
			Model:          getEnv("IMAGE_API_MODEL", "gpt-image-1"),
			RequestTimeout: getDuration("IMAGE_API_TIMEOUT", 2*time.Minute),
			RatePerMinute:  getEnvAsInt("IMAGE_API_RPM", 50),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Output: OutputConfig{
			BaseDirectory: getEnv("OUTPUT_DIR", "./output"),
			MaxInputSize:  getEnvAsInt64("MAX_INPUT_SIZE", 25*1024*1024), // 25MB
			CacheDuration: getDuration("CACHE_DURATION", 24*time.Hour),
			ThumbnailSize: getEnvAsInt("THUMBNAIL_SIZE", 256),
		},
		Batch: BatchConfig{
			DefaultConcurrency: getEnvAsInt("BATCH_DEFAULT_CONCURRENCY", 3),
			MaxConcurrency:     getEnvAsInt("BATCH_MAX_CONCURRENCY", 10),
			RetryBudget:        getEnvAsInt("BATCH_RETRY_BUDGET", 2),
			RetryBaseDelay:     getDuration("BATCH_RETRY_BASE_DELAY", time.Second),
			RetryMaxDelay:      getDuration("BATCH_RETRY_MAX_DELAY", 30*time.Second),
		},
	}
	cfg.Redis.Enabled = cfg.Redis.Addr != ""

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
