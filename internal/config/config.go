package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	// Knowledge artifacts
	RAGDocumentPath string
	EmbeddingsPath  string

	// Embedding provider
	EmbeddingProvider       string
	EmbeddingModel          string
	OpenAIAPIKey            string
	OpenAIBaseURL           string
	BedrockEmbeddingModelID string
	EmbeddingBatchSize      int
	EmbeddingBatchDelay     time.Duration
	EmbeddingCacheTTL       time.Duration

	// Response cache
	ResponseCacheBackend string
	ResponseCacheTTL     time.Duration
	ResponseCacheMaxSize int

	// Appointment store
	AppointmentStore string
	AppointmentsPath string
	DatabaseURL      string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Voice platforms
	VAPIAPIKey      string
	VAPIAssistantID string
	VAPIBaseURL     string
	RetellAPIKey    string
	RetellAgentID   string
	RetellLLMID     string
	RetellBaseURL   string

	WebhookRateLimit float64
	WebhookBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "3000"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		RAGDocumentPath: getEnv("RAG_DOCUMENT_PATH", "data/even_hospital_comprehensive_rag_document.json"),
		EmbeddingsPath:  getEnv("EMBEDDINGS_PATH", "data/embeddings/doctor_embeddings.json"),

		EmbeddingProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMBEDDING_PROVIDER", "openai"))),
		EmbeddingModel:          getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:           getEnv("OPENAI_BASE_URL", ""),
		BedrockEmbeddingModelID: getEnv("BEDROCK_EMBEDDING_MODEL_ID", "amazon.titan-embed-text-v2:0"),
		EmbeddingBatchSize:      getEnvAsInt("EMBEDDING_BATCH_SIZE", 100),
		EmbeddingBatchDelay:     getEnvAsDuration("EMBEDDING_BATCH_DELAY", 100*time.Millisecond),
		EmbeddingCacheTTL:       getEnvAsDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),

		ResponseCacheBackend: strings.ToLower(strings.TrimSpace(getEnv("RESPONSE_CACHE_BACKEND", "memory"))),
		ResponseCacheTTL:     getEnvAsDuration("RESPONSE_CACHE_TTL", 30*time.Minute),
		ResponseCacheMaxSize: getEnvAsInt("RESPONSE_CACHE_MAX_SIZE", 100),

		AppointmentStore: strings.ToLower(strings.TrimSpace(getEnv("APPOINTMENT_STORE", "file"))),
		AppointmentsPath: getEnv("APPOINTMENTS_PATH", "data/appointments.json"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		VAPIAPIKey:      getEnv("VAPI_API_KEY", ""),
		VAPIAssistantID: getEnv("VAPI_ASSISTANT_ID", ""),
		VAPIBaseURL:     getEnv("VAPI_BASE_URL", "https://api.vapi.ai"),
		RetellAPIKey:    getEnv("RETELL_API_KEY", ""),
		RetellAgentID:   getEnv("RETELL_AGENT_ID", ""),
		RetellLLMID:     getEnv("RETELL_LLM_ID", ""),
		RetellBaseURL:   getEnv("RETELL_BASE_URL", "https://api.retellai.com"),

		WebhookRateLimit: getEnvAsFloat("WEBHOOK_RATE_LIMIT", 10),
		WebhookBurst:     getEnvAsInt("WEBHOOK_BURST", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
