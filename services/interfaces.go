// services/interfaces.go
package services

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/brandvoice/sov-workflows/internal/models"
)

// QueryGeneratorService produces the consumer-style search queries a run
// fans out to the answer engine.
type QueryGeneratorService interface {
	GenerateQueries(ctx context.Context, brand, industry string, count int) (*QueryGenerationResult, error)
	NormalizeQueries(queries []string) ([]string, error)
}

// QueryGenerationResult is the generated query list plus usage accounting.
type QueryGenerationResult struct {
	Queries []string
	Usage   models.RunUsage
}

// BrandSourcingService resolves the tracked-brand set for a run using one
// of the sourcing modes: a manual competitor list, discovery from the
// first query's response, or discovery from the full response corpus.
type BrandSourcingService interface {
	SourceBrands(ctx context.Context, req *BrandSourcingRequest) (*BrandSourcingResult, error)
}

// BrandSourcingRequest describes one brand resolution.
type BrandSourcingRequest struct {
	Mode        models.BrandSourcingMode
	Brand       string
	Industry    string
	Competitors []string // manual mode
	Queries     []string // discovery modes
	Limit       int      // cap on tracked brands, self included
}

// BrandSourcingResult carries the resolved set plus any responses already
// collected during discovery that later stages may reuse.
type BrandSourcingResult struct {
	Brands    *models.BrandSet
	Responses []*models.CollectedResponse // corpus mode collects the full set
	Usage     models.RunUsage
}

// ResponseCollectorService runs queries against the answer engine. A query
// whose collection fails terminally yields a sentinel response rather than
// failing the batch.
type ResponseCollectorService interface {
	Collect(ctx context.Context, queries []string) (*CollectionResult, error)
}

// CollectionResult is the ordered responses for a query list.
type CollectionResult struct {
	Responses []*models.CollectedResponse
	Failed    int
	Usage     models.RunUsage
}

// MentionExtractorService pulls ranked brand mentions out of one response
// text. Output naming brands outside the tracked set is discarded.
type MentionExtractorService interface {
	ExtractMentions(ctx context.Context, query, responseText string, brands *models.BrandSet) (*ExtractionResult, error)
}

// ExtractionResult is the usable mentions for one response. Note is set
// when the extractor output could not be used and the response was audited
// without mentions.
type ExtractionResult struct {
	Mentions []models.Mention
	Note     string
	Usage    models.RunUsage
}

// ScoringEngine turns extracted mentions into share-of-voice totals. It is
// deterministic: the same inputs always produce identical results.
type ScoringEngine interface {
	Score(items []ScoringItem, brands *models.BrandSet) *ScoringResult
}

// ScoringItem pairs one collected response with its extracted mentions.
type ScoringItem struct {
	Response *models.CollectedResponse
	Mentions []models.Mention
	Note     string
}

// ScoringResult is the scored output for a run: one total per tracked
// brand (zero-score brands included) and one audit detail per response.
type ScoringResult struct {
	Totals      []models.BrandTotal
	Details     []models.AnalysisDetail
	Denominator float64
}

// CostService prices provider calls.
type CostService interface {
	CalculateCost(provider, model string, inputTokens, outputTokens int) float64
	GetCostByModel(provider, model string) (float64, float64, error)
	GetCostByProvider(provider string) map[string]interface{}
}

// AnalysisService drives an analysis run through the pipeline stages.
type AnalysisService interface {
	RunAnalysis(ctx context.Context, req *AnalysisRequest) (*models.AnalysisRun, error)

	// Stage operations. Each advances the run and resets downstream
	// artifacts per the stage rules.
	GenerateQueries(ctx context.Context, run *models.AnalysisRun, manualQueries []string, count int) error
	ResolveBrands(ctx context.Context, run *models.AnalysisRun, competitors []string) error
	CollectResponses(ctx context.Context, run *models.AnalysisRun) error
	ScoreRun(ctx context.Context, run *models.AnalysisRun) error
	BuildReport(ctx context.Context, run *models.AnalysisRun) error

	// Rescore re-extracts and re-scores an existing run's responses,
	// optionally widening the tracked set first.
	Rescore(ctx context.Context, run *models.AnalysisRun, addCompetitors []string) error
}

// AnalysisRequest configures a new run.
type AnalysisRequest struct {
	Brand         string
	Industry      string
	Mode          models.BrandSourcingMode
	Competitors   []string
	ManualQueries []string
	QueryCount    int
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var zero T
	schema := reflector.Reflect(zero)

	// Convert to the format expected by OpenAI
	result := map[string]interface{}{
		"type":       "object",
		"properties": schema.Properties,
		"required":   schema.Required,
	}

	if schema.AdditionalProperties != nil {
		result["additionalProperties"] = false
	}

	return result
}
