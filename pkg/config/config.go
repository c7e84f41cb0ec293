package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	FrontendURL        string

	AIProvider    string
	GeminiAPIKey  string
	OllamaBaseURL string
	OllamaModel   string

	PromptsFile string

	UpstreamTimeout time.Duration
	RefreshSkew     time.Duration

	DomainPageSize int64

	FrequencyWeight     float64
	RecencyWeight       float64
	EngagementWeight    float64
	RecencyHalfLifeDays float64
	ReferenceBodyLength float64

	AutoApplySuggestedTone bool
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/gmail/callback"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),

		AIProvider:    getEnv("AI_PROVIDER", "auto"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),

		PromptsFile: getEnv("PROMPTS_FILE", "config/prompts.yaml"),

		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		RefreshSkew:     getEnvDuration("TOKEN_REFRESH_SKEW", 30*time.Second),

		DomainPageSize: getEnvInt64("DOMAIN_PAGE_SIZE", 50),

		FrequencyWeight:     getEnvFloat("SCORE_FREQUENCY_WEIGHT", 0.4),
		RecencyWeight:       getEnvFloat("SCORE_RECENCY_WEIGHT", 0.35),
		EngagementWeight:    getEnvFloat("SCORE_ENGAGEMENT_WEIGHT", 0.25),
		RecencyHalfLifeDays: getEnvFloat("SCORE_RECENCY_HALF_LIFE_DAYS", 14),
		ReferenceBodyLength: getEnvFloat("SCORE_REFERENCE_BODY_LENGTH", 2000),

		AutoApplySuggestedTone: getEnvBool("AI_AUTO_APPLY_SUGGESTED_TONE", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	sum := c.FrequencyWeight + c.RecencyWeight + c.EngagementWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("importance score weights must sum to 1, got %.3f", sum)
	}
	if c.RecencyHalfLifeDays <= 0 {
		return fmt.Errorf("SCORE_RECENCY_HALF_LIFE_DAYS must be positive")
	}
	if c.ReferenceBodyLength <= 0 {
		return fmt.Errorf("SCORE_REFERENCE_BODY_LENGTH must be positive")
	}
	if c.DomainPageSize <= 0 {
		return fmt.Errorf("DOMAIN_PAGE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
