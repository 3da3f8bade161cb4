// internal/providers/gemini_provider.go
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/providers/common"
)

type geminiProvider struct {
	apiKey     string
	baseURL    string
	model      string
	costs      common.CostEstimator
	httpClient *http.Client
}

// GeminiRequest is the generateContent request body.
type GeminiRequest struct {
	Contents          []GeminiContent         `json:"contents"`
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

// GeminiResponse is the generateContent response body.
type GeminiResponse struct {
	Candidates    []GeminiCandidate    `json:"candidates"`
	UsageMetadata *GeminiUsageMetadata `json:"usageMetadata,omitempty"`
}

type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type GeminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// NewGeminiProvider builds a provider over the Generative Language REST
// API. There is no official Go SDK in use here, so the client follows the
// same plain net/http shape as the other REST integrations.
func NewGeminiProvider(cfg *config.Config, model string, costs common.CostEstimator) TextGenerator {
	log.Info().
		Str("model", model).
		Str("apiKey", maskAPIKey(cfg.GeminiAPIKey)).
		Msg("[GeminiProvider] ✅ Using Gemini REST API")

	return &geminiProvider{
		apiKey:  cfg.GeminiAPIKey,
		baseURL: cfg.GeminiBaseURL,
		model:   model,
		costs:   costs,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

func maskAPIKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func (p *geminiProvider) GetProviderName() string {
	return "gemini"
}

func (p *geminiProvider) Generate(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
	prompt := req.Prompt
	genConfig := &GeminiGenerationConfig{
		MaxOutputTokens: 2000,
	}
	if req.MaxTokens > 0 {
		genConfig.MaxOutputTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		genConfig.Temperature = req.Temperature
	}

	// The REST schema dialect diverges from standard JSON Schema, so
	// structured requests pin the MIME type and carry the schema in the
	// prompt instead.
	if req.Schema != nil {
		schemaJSON, err := json.MarshalIndent(req.Schema, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema for prompt: %w", err)
		}
		prompt = fmt.Sprintf(`%s

Return ONLY a valid JSON object conforming to this JSON Schema:

%s

Remember: Return ONLY the JSON object, no other text.`, req.Prompt, string(schemaJSON))
		genConfig.ResponseMimeType = "application/json"
	}

	body := GeminiRequest{
		Contents: []GeminiContent{{
			Role:  "user",
			Parts: []GeminiPart{{Text: prompt}},
		}},
		GenerationConfig: genConfig,
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &GeminiContent{
			Parts: []GeminiPart{{Text: req.SystemInstruction}},
		}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.MarkTransient(fmt.Errorf("gemini request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("gemini API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		if common.TransientStatus(resp.StatusCode) {
			return nil, common.MarkTransient(apiErr)
		}
		return nil, apiErr
	}

	var geminiResp GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}

	text := extractGeminiText(&geminiResp)
	if strings.TrimSpace(text) == "" {
		return nil, common.ErrEmptyResponse
	}

	inputTokens, outputTokens := 0, 0
	if geminiResp.UsageMetadata != nil {
		inputTokens = geminiResp.UsageMetadata.PromptTokenCount
		outputTokens = geminiResp.UsageMetadata.CandidatesTokenCount
	}

	return &common.GenerateResult{
		Text:         text,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         p.estimateCost(inputTokens, outputTokens),
		Model:        p.model,
	}, nil
}

func extractGeminiText(resp *GeminiResponse) string {
	var textParts []string
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				textParts = append(textParts, part.Text)
			}
		}
		if len(textParts) > 0 {
			break
		}
	}
	return strings.Join(textParts, "")
}

func (p *geminiProvider) estimateCost(inputTokens, outputTokens int) float64 {
	if p.costs == nil {
		return 0
	}
	return p.costs.CalculateCost(p.GetProviderName(), p.model, inputTokens, outputTokens)
}
