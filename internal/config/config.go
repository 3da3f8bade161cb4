// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// WatchlistEntry is one brand/industry pair analyzed on the daily schedule.
type WatchlistEntry struct {
	Brand    string
	Industry string
}

type Config struct {
	Port              string
	Environment       string
	InngestEventKey   string
	InngestSigningKey string

	// Provider credentials
	OpenAIAPIKey              string
	AnthropicAPIKey           string
	GeminiAPIKey              string
	GeminiBaseURL             string
	AzureOpenAIEndpoint       string
	AzureOpenAIKey            string
	AzureOpenAIDeploymentName string

	// Model selection per pipeline stage
	GenerationModel string
	CollectionModel string
	ExtractionModel string

	// Pipeline sizing
	QueryCount int
	BrandLimit int

	// Resilient caller tuning
	GenerationMaxRetries int
	CollectionMaxRetries int
	ExtractionMaxRetries int
	RetryBaseWait        time.Duration
	ProviderRateLimit    float64
	ProviderRateBurst    int

	// Scheduled analysis
	Watchlist []WatchlistEntry

	SlackWebhookURL string
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8000"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		InngestEventKey:   os.Getenv("INNGEST_EVENT_KEY"),
		InngestSigningKey: os.Getenv("INNGEST_SIGNING_KEY"),

		OpenAIAPIKey:              os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:           os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:              os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:             getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		AzureOpenAIEndpoint:       os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIKey:            os.Getenv("AZURE_OPENAI_API_KEY"),
		AzureOpenAIDeploymentName: os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"),

		GenerationModel: getEnv("GENERATION_MODEL", "gpt-4.1"),
		CollectionModel: getEnv("COLLECTION_MODEL", "gemini-2.0-flash"),
		ExtractionModel: getEnv("EXTRACTION_MODEL", "gpt-4.1"),

		QueryCount: getEnvInt("QUERY_COUNT", 5),
		BrandLimit: getEnvInt("BRAND_LIMIT", 10),

		GenerationMaxRetries: getEnvInt("GENERATION_MAX_RETRIES", 3),
		CollectionMaxRetries: getEnvInt("COLLECTION_MAX_RETRIES", 2),
		ExtractionMaxRetries: getEnvInt("EXTRACTION_MAX_RETRIES", 3),
		RetryBaseWait:        getEnvDuration("RETRY_BASE_WAIT", time.Second),
		ProviderRateLimit:    getEnvFloat("PROVIDER_RATE_LIMIT", 2.0),
		ProviderRateBurst:    getEnvInt("PROVIDER_RATE_BURST", 1),

		Watchlist: parseWatchlist(os.Getenv("ANALYSIS_WATCHLIST")),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
	}
}

// parseWatchlist reads "Brand|industry;Other Brand|other industry" pairs.
// Entries without an industry keep an empty industry string.
func parseWatchlist(raw string) []WatchlistEntry {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var entries []WatchlistEntry
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		brand, industry, _ := strings.Cut(part, "|")
		brand = strings.TrimSpace(brand)
		if brand == "" {
			continue
		}
		entries = append(entries, WatchlistEntry{
			Brand:    brand,
			Industry: strings.TrimSpace(industry),
		})
	}
	return entries
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
