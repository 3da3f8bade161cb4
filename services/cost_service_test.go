package services_test

import (
	"math"
	"testing"

	"github.com/brandvoice/sov-workflows/services"
)

func TestCalculateCost(t *testing.T) {
	costService := services.NewCostService()

	tests := []struct {
		name         string
		provider     string
		model        string
		inputTokens  int
		outputTokens int
		expected     float64
	}{
		{
			name:         "gpt-4.1 pricing",
			provider:     "openai",
			model:        "gpt-4.1",
			inputTokens:  1_000_000,
			outputTokens: 1_000_000,
			expected:     15.00,
		},
		{
			name:         "gemini flash pricing",
			provider:     "gemini",
			model:        "gemini-2.0-flash",
			inputTokens:  1_000_000,
			outputTokens: 500_000,
			expected:     0.30,
		},
		{
			name:         "claude sonnet pricing",
			provider:     "anthropic",
			model:        "claude-sonnet-4-20250514",
			inputTokens:  100_000,
			outputTokens: 10_000,
			expected:     0.45,
		},
		{
			name:         "unknown model falls back to gpt-4.1",
			provider:     "openai",
			model:        "some-future-model",
			inputTokens:  1_000_000,
			outputTokens: 1_000_000,
			expected:     15.00,
		},
		{
			name:         "zero tokens cost nothing",
			provider:     "openai",
			model:        "gpt-4.1",
			inputTokens:  0,
			outputTokens: 0,
			expected:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := costService.CalculateCost(tt.provider, tt.model, tt.inputTokens, tt.outputTokens)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CalculateCost() = %f, want %f", got, tt.expected)
			}
		})
	}
}

func TestGetCostByModel(t *testing.T) {
	costService := services.NewCostService()

	input, output, err := costService.GetCostByModel("openai", "gpt-4.1")
	if err != nil {
		t.Fatalf("GetCostByModel() error = %v, want nil", err)
	}
	if input != 3.00 || output != 12.00 {
		t.Errorf("GetCostByModel() = %f/%f, want 3.00/12.00", input, output)
	}

	if _, _, err := costService.GetCostByModel("openai", "not-a-model"); err == nil {
		t.Errorf("GetCostByModel() error = nil for unknown model, want error")
	}
}

func TestGetCostByProvider(t *testing.T) {
	costService := services.NewCostService()

	geminiModels := costService.GetCostByProvider("gemini")
	if len(geminiModels) != 2 {
		t.Errorf("GetCostByProvider(gemini) returned %d models, want 2", len(geminiModels))
	}
	if _, ok := geminiModels["gemini-2.0-flash"]; !ok {
		t.Errorf("GetCostByProvider(gemini) missing gemini-2.0-flash: %v", geminiModels)
	}

	if unknown := costService.GetCostByProvider("acme-ai"); len(unknown) != 0 {
		t.Errorf("GetCostByProvider(acme-ai) = %v, want empty", unknown)
	}
}
