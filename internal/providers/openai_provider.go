// internal/providers/openai_provider.go
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/providers/common"
)

type openAIProvider struct {
	client *openai.Client
	model  string
	costs  common.CostEstimator
	cfg    *config.Config
}

// NewOpenAIProvider builds a provider over the OpenAI SDK. Azure OpenAI is
// used when the Azure endpoint, key and deployment name are all configured.
func NewOpenAIProvider(cfg *config.Config, model string, costs common.CostEstimator) TextGenerator {
	var client openai.Client

	if cfg.AzureOpenAIEndpoint != "" && cfg.AzureOpenAIKey != "" && cfg.AzureOpenAIDeploymentName != "" {
		client = openai.NewClient(
			azure.WithEndpoint(cfg.AzureOpenAIEndpoint, "2024-12-01-preview"),
			azure.WithAPIKey(cfg.AzureOpenAIKey),
		)
		log.Info().
			Str("endpoint", cfg.AzureOpenAIEndpoint).
			Str("deployment", cfg.AzureOpenAIDeploymentName).
			Str("model", model).
			Msg("[OpenAIProvider] ✅ Using Azure OpenAI")
	} else {
		client = openai.NewClient(
			option.WithAPIKey(cfg.OpenAIAPIKey),
		)
		log.Info().
			Str("model", model).
			Msg("[OpenAIProvider] ✅ Using Standard OpenAI")
	}

	return &openAIProvider{
		client: &client,
		model:  model,
		costs:  costs,
		cfg:    cfg,
	}
}

func (p *openAIProvider) GetProviderName() string {
	return "openai"
}

// Generate runs one chat completion. A request schema switches the call to
// strict structured output.
func (p *openAIProvider) Generate(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
	system := req.SystemInstruction
	if system == "" {
		system = "You are a helpful assistant that provides accurate, comprehensive answers to questions."
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(req.Prompt),
		},
		Model:       p.modelParam(),
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(2000),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	if req.Schema != nil {
		schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:        req.SchemaName,
			Description: openai.String(req.SchemaDescription),
			Schema:      req.Schema,
			Strict:      openai.Bool(true),
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		}
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.classifyError(err)
	}

	if len(response.Choices) == 0 {
		return nil, common.ErrEmptyResponse
	}
	content := response.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, common.ErrEmptyResponse
	}

	inputTokens := int(response.Usage.PromptTokens)
	outputTokens := int(response.Usage.CompletionTokens)

	return &common.GenerateResult{
		Text:         content,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         p.estimateCost(inputTokens, outputTokens),
		Model:        p.model,
	}, nil
}

// modelParam resolves the wire model name, preferring the Azure deployment
// when one is configured.
func (p *openAIProvider) modelParam() openai.ChatModel {
	if p.cfg.AzureOpenAIDeploymentName != "" && p.cfg.AzureOpenAIEndpoint != "" {
		return openai.ChatModel(p.cfg.AzureOpenAIDeploymentName)
	}
	return openai.ChatModel(p.model)
}

func (p *openAIProvider) estimateCost(inputTokens, outputTokens int) float64 {
	if p.costs == nil {
		return 0
	}
	return p.costs.CalculateCost(p.GetProviderName(), p.model, inputTokens, outputTokens)
}

// classifyError maps SDK failures onto the retry taxonomy. Rate limits,
// timeouts and upstream 5xx are transient; auth and request errors are not.
func (p *openAIProvider) classifyError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if common.TransientStatus(apierr.StatusCode) {
			return common.MarkTransient(fmt.Errorf("chat completion failed: %w", err))
		}
		return fmt.Errorf("chat completion failed: %w", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// No API status means the request never completed. Treat transport
	// failures as retryable.
	return common.MarkTransient(fmt.Errorf("chat completion failed: %w", err))
}
