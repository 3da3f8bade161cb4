// services/query_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/models"
)

type queryGeneratorService struct {
	caller ResilientCaller
}

func NewQueryGeneratorService(caller ResilientCaller) QueryGeneratorService {
	return &queryGeneratorService{caller: caller}
}

// QueryListResponse represents the structured output for query generation
type QueryListResponse struct {
	Queries []string `json:"queries" jsonschema_description:"Consumer search queries, one question per entry"`
}

// Generate the JSON schema at initialization time
var QueryListSchema = GenerateSchema[QueryListResponse]()

func (s *queryGeneratorService) GenerateQueries(ctx context.Context, brand, industry string, count int) (*QueryGenerationResult, error) {
	if count <= 0 {
		count = 5
	}
	brand = strings.TrimSpace(brand)
	industry = strings.TrimSpace(industry)
	if industry == "" {
		return nil, fmt.Errorf("query generation requires an industry")
	}

	temp := 0.7
	result, err := s.caller.Call(ctx, &CallRequest{
		Prompt:            s.buildGenerationPrompt(industry, count),
		SystemInstruction: "You are a market research assistant. You produce realistic consumer questions people ask AI assistants.",
		Schema:            QueryListSchema,
		SchemaName:        "query_list",
		SchemaDescription: "Consumer search queries for an industry",
		Temperature:       &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("query generation failed: %w", err)
	}

	var payload QueryListResponse
	if err := parseStructuredOutput(result.Text, &payload); err != nil {
		return nil, fmt.Errorf("query generation: %w", err)
	}

	queries, err := s.NormalizeQueries(payload.Queries)
	if err != nil {
		return nil, fmt.Errorf("query generation returned no usable queries")
	}

	// Queries measure unprompted visibility, so any query naming the
	// analyzed brand is dropped.
	queries = dropBrandedQueries(queries, brand)
	if len(queries) == 0 {
		return nil, fmt.Errorf("query generation returned only branded queries")
	}
	if len(queries) > count {
		queries = queries[:count]
	}

	log.Info().
		Int("count", len(queries)).
		Str("industry", industry).
		Msg("[QueryGenerator] ✅ Generated queries")

	var usage models.RunUsage
	usage.AddCall(result.InputTokens, result.OutputTokens, result.Cost)

	return &QueryGenerationResult{Queries: queries, Usage: usage}, nil
}

// NormalizeQueries trims, deduplicates and validates a query list. It is
// used both on generated output and on manually supplied lists.
func (s *queryGeneratorService) NormalizeQueries(queries []string) ([]string, error) {
	seen := map[string]bool{}
	cleaned := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, q)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("no usable queries after normalization")
	}
	return cleaned, nil
}

func dropBrandedQueries(queries []string, brand string) []string {
	if brand == "" {
		return queries
	}
	needle := strings.ToLower(brand)
	kept := make([]string, 0, len(queries))
	for _, q := range queries {
		if strings.Contains(strings.ToLower(q), needle) {
			log.Warn().Str("query", q).Msg("[QueryGenerator] ⚠️ Dropping query naming the analyzed brand")
			continue
		}
		kept = append(kept, q)
	}
	return kept
}

func (s *queryGeneratorService) buildGenerationPrompt(industry string, count int) string {
	return fmt.Sprintf(`## Industry: %s

## Context
You are compiling the questions a real consumer would ask an AI assistant when researching %s products or services.

## Key Rules:
- Produce exactly %d queries
- Phrase each query the way a person asks a question, not as a keyword list
- Never name a specific brand, company or product in any query
- Each query must invite vendor or product recommendations
- Vary the angle: comparisons, recommendations, pricing, use cases`,
		industry, industry, count)
}
