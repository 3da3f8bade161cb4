// internal/providers/testutil/fixtures.go
package testutil

import (
	"time"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/models"
)

// SampleConfig returns a test configuration
func SampleConfig() *config.Config {
	return &config.Config{
		OpenAIAPIKey:         "test-openai-key",
		AnthropicAPIKey:      "test-anthropic-key",
		GeminiAPIKey:         "test-gemini-key",
		GeminiBaseURL:        "https://generativelanguage.googleapis.com/v1beta",
		GenerationModel:      "gpt-4.1",
		CollectionModel:      "gemini-2.0-flash",
		ExtractionModel:      "gpt-4.1",
		QueryCount:           5,
		BrandLimit:           10,
		GenerationMaxRetries: 3,
		CollectionMaxRetries: 2,
		ExtractionMaxRetries: 3,
		RetryBaseWait:        time.Millisecond,
		ProviderRateLimit:    1000,
		ProviderRateBurst:    1000,
	}
}

// SampleQueries returns test queries
func SampleQueries() []string {
	return []string{
		"What are the best project management tools?",
		"Which task tracker should a small team use?",
		"What software do agencies use to plan work?",
	}
}

// SampleBrandSet returns a tracked set with a self brand and two competitors
func SampleBrandSet() *models.BrandSet {
	set, err := models.NewBrandSet("Acme", []string{"Zenith", "Nimbus"})
	if err != nil {
		panic(err)
	}
	return set
}

// SampleGeminiResponse returns a mock generateContent response body
func SampleGeminiResponse(text string) string {
	return `{
		"candidates": [
			{
				"content": {
					"role": "model",
					"parts": [{"text": ` + jsonString(text) + `}]
				},
				"finishReason": "STOP"
			}
		],
		"usageMetadata": {
			"promptTokenCount": 12,
			"candidatesTokenCount": 48,
			"totalTokenCount": 60
		}
	}`
}

// SampleEmptyGeminiResponse returns a generateContent body with no candidates
func SampleEmptyGeminiResponse() string {
	return `{
		"candidates": [],
		"usageMetadata": {
			"promptTokenCount": 12,
			"candidatesTokenCount": 0,
			"totalTokenCount": 12
		}
	}`
}

// SampleMentionsJSON returns a mock structured extraction payload
func SampleMentionsJSON() string {
	return `{
		"mentions": [
			{"brand_name": "Acme", "sentiment": "positive"},
			{"brand_name": "Zenith", "sentiment": "neutral"}
		]
	}`
}

// SampleQueriesJSON returns a mock structured query generation payload
func SampleQueriesJSON() string {
	return `{
		"queries": [
			"What are the best project management tools?",
			"Which task tracker should a small team use?",
			"What software do agencies use to plan work?"
		]
	}`
}

// SampleBrandsJSON returns a mock structured brand discovery payload
func SampleBrandsJSON() string {
	return `{
		"brands": ["Zenith", "Nimbus", "Acme"]
	}`
}

func jsonString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, c)
		}
	}
	out = append(out, '"')
	return string(out)
}
