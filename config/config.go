package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the photo intelligence pipeline service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// Inference provider: "openai", "gemini" or "stub"
	LLMProvider string

	// OpenAI configuration
	OpenAIAPIKey    string
	OpenAIFastModel string
	OpenAIDeepModel string

	// Gemini configuration
	GeminiAPIKey    string
	GeminiFastModel string
	GeminiDeepModel string

	// Pipeline configuration
	AnalyzeConcurrency int
	FetchTimeout       time.Duration
	InferenceTimeout   time.Duration
	CacheTTL           time.Duration
	DedupThreshold     float64
	IncrementalOnly    bool

	// Vehicle registry
	RegistryBaseURL string

	// RabbitMQ configuration; empty URL disables the subscriber and publisher
	RabbitMQURL        string
	RabbitMQExchange   string
	RabbitMQPhotoQueue string
	RabbitMQPrefetch   int
	RabbitMQWorkers    int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "photointel"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// Inference defaults
		LLMProvider:     getEnv("LLM_PROVIDER", "openai"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIFastModel: getEnv("OPENAI_FAST_MODEL", "gpt-4o-mini"),
		OpenAIDeepModel: getEnv("OPENAI_DEEP_MODEL", "gpt-4o"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiFastModel: getEnv("GEMINI_FAST_MODEL", "gemini-2.0-flash"),
		GeminiDeepModel: getEnv("GEMINI_DEEP_MODEL", "gemini-2.5-pro"),

		// Pipeline defaults
		AnalyzeConcurrency: getIntEnv("ANALYZE_CONCURRENCY", 5),
		FetchTimeout:       getDurationEnv("FETCH_TIMEOUT", 30*time.Second),
		InferenceTimeout:   getDurationEnv("INFERENCE_TIMEOUT", 2*time.Minute),
		CacheTTL:           getDurationEnv("CACHE_TTL", time.Hour),
		DedupThreshold:     getFloatEnv("DEDUP_THRESHOLD", 10.0),
		IncrementalOnly:    getBoolEnv("INCREMENTAL_ONLY", true),

		// Vehicle registry; empty uses the public decoder
		RegistryBaseURL: getEnv("VEHICLE_REGISTRY_URL", ""),

		// RabbitMQ defaults
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:   getEnv("RABBITMQ_EXCHANGE", "photointel"),
		RabbitMQPhotoQueue: getEnv("RABBITMQ_PHOTO_QUEUE", "photointel.photos.uploaded"),
		RabbitMQPrefetch:   getIntEnv("RABBITMQ_PREFETCH", 8),
		RabbitMQWorkers:    getIntEnv("RABBITMQ_WORKERS", 4),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnv gets a float environment variable or returns a default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getBoolEnv gets a boolean environment variable or returns a default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
