package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Chat     ChatConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	TracingEnabled     bool
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "memory"
	Connection string
}

type AIConfig struct {
	LLMProvider      string // "mistral", "openai", "ollama", "echo"
	LLMBaseURL       string
	LLMAPIKey        string
	LLMModel         string // default model when neither request nor user picks one
	StreamTimeout    time.Duration
	SummaryTimeout   time.Duration
	HeartbeatEvery   time.Duration // 0 disables SSE keep-alive comments
	RequestsPerSec   float64       // 0 disables the outbound throttle
	OllamaBaseURL    string
	SummaryMaxTokens int
}

type ChatConfig struct {
	RateLimitInterval   time.Duration
	RateLimitStore      string // "memory" or "redis"
	SummarizationMode   string // "sync" or "async"
	SummarizationTopic  string
	DefaultHistoryLimit int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			TracingEnabled:     getEnvAsBool("TRACING_ENABLED", false),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:      getEnv("LLM_PROVIDER", "mistral"),
			LLMBaseURL:       getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:        getEnv("LLM_API_KEY", ""),
			LLMModel:         getEnv("LLM_MODEL", "mistral-small-latest"),
			StreamTimeout:    getEnvAsDuration("LLM_STREAM_TIMEOUT", 120*time.Second),
			SummaryTimeout:   getEnvAsDuration("LLM_SUMMARY_TIMEOUT", 60*time.Second),
			HeartbeatEvery:   getEnvAsDuration("SSE_HEARTBEAT_INTERVAL", 15*time.Second),
			RequestsPerSec:   getEnvAsFloat("LLM_REQUESTS_PER_SECOND", 0),
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			SummaryMaxTokens: getEnvAsInt("LLM_SUMMARY_MAX_TOKENS", 0),
		},
		Chat: ChatConfig{
			RateLimitInterval:   getEnvAsDuration("RATE_LIMIT_INTERVAL", time.Second),
			RateLimitStore:      getEnv("RATE_LIMIT_STORE", "memory"),
			SummarizationMode:   getEnv("SUMMARIZATION_MODE", "sync"),
			SummarizationTopic:  getEnv("SUMMARIZATION_TOPIC", "CHAT_SUMMARIZE"),
			DefaultHistoryLimit: getEnvAsInt("DEFAULT_MESSAGE_HISTORY_LIMIT", 20),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
