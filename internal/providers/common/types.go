// internal/providers/common/types.go
package common

// GenerateRequest is one prompt for an upstream AI provider. When Schema
// is set the provider is asked for structured output conforming to it;
// SchemaName and SchemaDescription label the schema for APIs that take
// them. A nil Temperature leaves the provider default in place.
type GenerateRequest struct {
	Prompt            string
	SystemInstruction string
	Schema            interface{}
	SchemaName        string
	SchemaDescription string
	Temperature       *float64
	MaxTokens         int
}

// GenerateResult contains the response from an AI provider
// Defined here to avoid import cycles
type GenerateResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Cost         float64
	Model        string
}

// CostEstimator prices one provider call from its token usage.
type CostEstimator interface {
	CalculateCost(provider, model string, inputTokens, outputTokens int) float64
}
