// internal/providers/anthropic_provider.go
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/providers/common"
)

type anthropicProvider struct {
	client *anthropic.Client
	model  string
	costs  common.CostEstimator
}

// NewAnthropicProvider builds a provider over the Anthropic SDK. The API
// has no native JSON schema mode, so structured requests are enforced
// through the prompt.
func NewAnthropicProvider(cfg *config.Config, model string, costs common.CostEstimator) TextGenerator {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.AnthropicAPIKey),
	)

	log.Info().Str("model", model).Msg("[AnthropicProvider] ✅ Using Anthropic")

	return &anthropicProvider{
		client: &client,
		model:  model,
		costs:  costs,
	}
}

func (p *anthropicProvider) GetProviderName() string {
	return "anthropic"
}

func (p *anthropicProvider) Generate(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
	prompt := req.Prompt
	if req.Schema != nil {
		structured, err := p.buildStructuredPrompt(req)
		if err != nil {
			return nil, err
		}
		prompt = structured
	}

	messages := []anthropic.MessageParam{{
		Content: []anthropic.ContentBlockParamUnion{{
			OfText: &anthropic.TextBlockParam{Text: prompt},
		}},
		Role: anthropic.MessageParamRoleUser,
	}}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   2000,
		Messages:    messages,
		Temperature: anthropic.Float(0.7),
	}
	if req.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemInstruction}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}

	response, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.classifyError(err)
	}

	text := p.extractResponseText(*response)
	if strings.TrimSpace(text) == "" {
		return nil, common.ErrEmptyResponse
	}

	inputTokens := int(response.Usage.InputTokens)
	outputTokens := int(response.Usage.OutputTokens)

	return &common.GenerateResult{
		Text:         text,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         p.estimateCost(inputTokens, outputTokens),
		Model:        p.model,
	}, nil
}

// buildStructuredPrompt embeds the JSON schema in the prompt since the
// Messages API has no response_format parameter.
func (p *anthropicProvider) buildStructuredPrompt(req *common.GenerateRequest) (string, error) {
	schemaJSON, err := json.MarshalIndent(req.Schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema for prompt: %w", err)
	}

	return fmt.Sprintf(`%s

Return ONLY a valid JSON object conforming to this JSON Schema:

%s

Remember: Return ONLY the JSON object, no other text.`, req.Prompt, string(schemaJSON)), nil
}

func (p *anthropicProvider) extractResponseText(response anthropic.Message) string {
	var textParts []string

	for _, block := range response.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)
		}
	}

	return strings.Join(textParts, "")
}

func (p *anthropicProvider) estimateCost(inputTokens, outputTokens int) float64 {
	if p.costs == nil {
		return 0
	}
	return p.costs.CalculateCost(p.GetProviderName(), p.model, inputTokens, outputTokens)
}

func (p *anthropicProvider) classifyError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		if common.TransientStatus(apierr.StatusCode) {
			return common.MarkTransient(fmt.Errorf("message request failed: %w", err))
		}
		return fmt.Errorf("message request failed: %w", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return common.MarkTransient(fmt.Errorf("message request failed: %w", err))
}
