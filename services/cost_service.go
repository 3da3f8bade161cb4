// services/cost_service.go
package services

import "fmt"

type costService struct{}

func NewCostService() CostService {
	return &costService{}
}

// Cost per 1M tokens
var costPerToken = map[string]struct{ input, output float64 }{
	"gpt-5":                    {input: 1.25, output: 10.00},
	"gpt-5-mini":               {input: 0.25, output: 2.00},
	"gpt-4.1":                  {input: 3.00, output: 12.00},
	"gpt-4.1-mini":             {input: 0.80, output: 3.20},
	"gpt-4o-2024-08-06":        {input: 2.50, output: 10.00}, // GPT-4o structured outputs pricing
	"claude-sonnet-4-20250514": {input: 3.00, output: 15.00},
	"claude-3-5-haiku":         {input: 0.80, output: 4.00},
	"gemini-2.0-flash":         {input: 0.10, output: 0.40},
	"gemini-1.5-pro":           {input: 1.25, output: 5.00},
}

// modelProvider groups the pricing table for per-provider listings.
var modelProvider = map[string]string{
	"gpt-5":                    "openai",
	"gpt-5-mini":               "openai",
	"gpt-4.1":                  "openai",
	"gpt-4.1-mini":             "openai",
	"gpt-4o-2024-08-06":        "openai",
	"claude-sonnet-4-20250514": "anthropic",
	"claude-3-5-haiku":         "anthropic",
	"gemini-2.0-flash":         "gemini",
	"gemini-1.5-pro":           "gemini",
}

func (s *costService) CalculateCost(provider string, model string, inputTokens int, outputTokens int) float64 {
	modelCosts, exists := costPerToken[model]
	if !exists {
		// Default to GPT-4.1 costs if model not found
		modelCosts = costPerToken["gpt-4.1"]
	}

	inputCost := (float64(inputTokens) / 1_000_000.0) * modelCosts.input
	outputCost := (float64(outputTokens) / 1_000_000.0) * modelCosts.output

	return inputCost + outputCost
}

// GetCostByModel returns the per-1M-token input and output prices for a
// model, or an error when the model is not in the table.
func (s *costService) GetCostByModel(provider, model string) (float64, float64, error) {
	modelCosts, exists := costPerToken[model]
	if !exists {
		return 0, 0, fmt.Errorf("no pricing for model %s", model)
	}
	return modelCosts.input, modelCosts.output, nil
}

// GetCostByProvider returns the pricing table entries for one provider.
func (s *costService) GetCostByProvider(provider string) map[string]interface{} {
	result := map[string]interface{}{}
	for model, owner := range modelProvider {
		if owner != provider {
			continue
		}
		costs := costPerToken[model]
		result[model] = map[string]interface{}{
			"input_per_1m":  costs.input,
			"output_per_1m": costs.output,
		}
	}
	return result
}
