// services/brand_sourcing_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/models"
)

type brandSourcingService struct {
	caller    ResilientCaller
	collector ResponseCollectorService
}

func NewBrandSourcingService(caller ResilientCaller, collector ResponseCollectorService) BrandSourcingService {
	return &brandSourcingService{caller: caller, collector: collector}
}

// BrandListResponse represents the structured output for brand discovery
type BrandListResponse struct {
	Brands []string `json:"brands" jsonschema_description:"Company or product brand names found in the text, most prominent first"`
}

// Generate the JSON schema at initialization time
var BrandListSchema = GenerateSchema[BrandListResponse]()

// SourceBrands resolves the tracked-brand set for a run. Manual mode uses
// the supplied competitor list as-is. The discovery modes collect answer
// text first and extract candidate names from it; corpus mode hands its
// collected responses back so the pipeline can reuse them.
func (s *brandSourcingService) SourceBrands(ctx context.Context, req *BrandSourcingRequest) (*BrandSourcingResult, error) {
	if req == nil {
		return nil, fmt.Errorf("brand sourcing requires a request")
	}
	brand := strings.TrimSpace(req.Brand)
	if brand == "" {
		return nil, fmt.Errorf("brand sourcing requires a self brand")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	switch req.Mode {
	case models.BrandSourceManual:
		return s.sourceManual(brand, req.Competitors, limit)
	case models.BrandSourceFirstQuery:
		return s.sourceFirstQuery(ctx, req, brand, limit)
	case models.BrandSourceCorpus:
		return s.sourceCorpus(ctx, req, brand, limit)
	default:
		return nil, fmt.Errorf("unsupported brand sourcing mode: %s", req.Mode)
	}
}

func (s *brandSourcingService) sourceManual(brand string, competitors []string, limit int) (*BrandSourcingResult, error) {
	set, err := models.NewBrandSet(brand, nil)
	if err != nil {
		return nil, err
	}
	for _, name := range competitors {
		if set.Len() >= limit {
			log.Warn().
				Int("limit", limit).
				Msg("[BrandSourcing] ⚠️ Tracked brand limit reached, dropping remaining competitors")
			break
		}
		set.Add(name)
	}

	log.Info().
		Str("mode", string(models.BrandSourceManual)).
		Int("brands", set.Len()).
		Msg("[BrandSourcing] ✅ Tracked set resolved")

	return &BrandSourcingResult{Brands: set}, nil
}

func (s *brandSourcingService) sourceFirstQuery(ctx context.Context, req *BrandSourcingRequest, brand string, limit int) (*BrandSourcingResult, error) {
	if len(req.Queries) == 0 {
		return nil, fmt.Errorf("first-query brand sourcing requires at least one query")
	}

	collection, err := s.collector.Collect(ctx, req.Queries[:1])
	if err != nil {
		return nil, fmt.Errorf("first-query brand sourcing: %w", err)
	}

	result := &BrandSourcingResult{Usage: collection.Usage}

	probe := collection.Responses[0]
	if probe.Failed() {
		return nil, fmt.Errorf("first-query brand sourcing: probe collection failed: %s", probe.Error)
	}

	set, usage, err := s.discoverBrands(ctx, brand, req.Industry, probe.Text, limit)
	if err != nil {
		return nil, err
	}
	result.Brands = set
	result.Usage.Merge(usage)

	// The probe response is discovery input only; collection runs fresh
	// for the full query list.
	return result, nil
}

func (s *brandSourcingService) sourceCorpus(ctx context.Context, req *BrandSourcingRequest, brand string, limit int) (*BrandSourcingResult, error) {
	if len(req.Queries) == 0 {
		return nil, fmt.Errorf("corpus brand sourcing requires at least one query")
	}

	collection, err := s.collector.Collect(ctx, req.Queries)
	if err != nil {
		return nil, fmt.Errorf("corpus brand sourcing: %w", err)
	}

	var texts []string
	for _, resp := range collection.Responses {
		if resp.Failed() {
			continue
		}
		texts = append(texts, resp.Text)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("corpus brand sourcing: every collection failed")
	}

	corpus := strings.Join(texts, "\n\n---\n\n")
	set, usage, err := s.discoverBrands(ctx, brand, req.Industry, corpus, limit)
	if err != nil {
		return nil, err
	}

	result := &BrandSourcingResult{
		Brands:    set,
		Responses: collection.Responses,
		Usage:     collection.Usage,
	}
	result.Usage.Merge(usage)
	return result, nil
}

func (s *brandSourcingService) discoverBrands(ctx context.Context, brand, industry, corpus string, limit int) (*models.BrandSet, models.RunUsage, error) {
	var usage models.RunUsage

	temp := 0.1
	call, err := s.caller.Call(ctx, &CallRequest{
		Prompt:            s.buildDiscoveryPrompt(brand, industry, corpus, limit),
		SystemInstruction: "You are a high-precision entity recognition engine for company and product brands.",
		Schema:            BrandListSchema,
		SchemaName:        "brand_discovery",
		SchemaDescription: "Brand names recommended or compared in the analyzed text",
		Temperature:       &temp,
	})
	if err != nil {
		return nil, usage, fmt.Errorf("brand discovery failed: %w", err)
	}
	usage.AddCall(call.InputTokens, call.OutputTokens, call.Cost)

	var payload BrandListResponse
	if err := parseStructuredOutput(call.Text, &payload); err != nil {
		return nil, usage, fmt.Errorf("brand discovery: %w", err)
	}

	set, err := models.NewBrandSet(brand, nil)
	if err != nil {
		return nil, usage, err
	}
	for _, name := range payload.Brands {
		if set.Len() >= limit {
			break
		}
		set.Add(name)
	}

	if set.Len() == 1 {
		log.Warn().
			Str("brand", brand).
			Msg("[BrandSourcing] ⚠️ Discovery found no competitors, tracking the self brand only")
	}

	log.Info().
		Int("discovered", set.Len()-1).
		Int("limit", limit).
		Msg("[BrandSourcing] ✅ Brand discovery finished")

	return set, usage, nil
}

func (s *brandSourcingService) buildDiscoveryPrompt(brand, industry, corpus string, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Target Company: %s\n\n", brand)
	if industry = strings.TrimSpace(industry); industry != "" {
		fmt.Fprintf(&sb, "## Industry: %s\n\n", industry)
	}
	fmt.Fprintf(&sb, `## Context
The text below is answer-engine output. Identify the company and product brands it recommends or compares.

## Key Rules:
- List each brand once, using its common spelling
- Order by prominence, most recommended first
- Return at most %d brands
- Only brands actually present in the text, never invented ones
- Exclude generic category words that are not brand names

## Text to Analyze:
%s`, limit, corpus)
	return sb.String()
}
