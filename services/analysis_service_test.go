// services/analysis_service_test.go
package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brandvoice/sov-workflows/internal/models"
	"github.com/brandvoice/sov-workflows/internal/providers/common"
	"github.com/brandvoice/sov-workflows/internal/providers/testutil"
	"github.com/brandvoice/sov-workflows/services"
)

// newAnalysisTestService wires every pipeline service around one mock
// provider so tests drive the real orchestration path.
func newAnalysisTestService(mock *testutil.MockTextGenerator) services.AnalysisService {
	caller := newCallerForTest(mock)
	collector := services.NewResponseCollectorService(caller)
	return services.NewAnalysisService(
		testutil.SampleConfig(),
		services.NewQueryGeneratorService(caller),
		services.NewBrandSourcingService(caller, collector),
		collector,
		services.NewMentionExtractorService(caller),
		services.NewScoringEngine(services.DefaultScoringConfig()),
	)
}

// pipelineMock answers each call by its prompt shape: query generation,
// brand discovery, mention extraction, or plain collection.
func pipelineMock() *testutil.MockTextGenerator {
	return &testutil.MockTextGenerator{
		GenerateFunc: func(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
			result := &common.GenerateResult{InputTokens: 100, OutputTokens: 50, Cost: 0.001, Model: "test-model"}
			switch {
			case req.Schema == nil:
				result.Text = "Acme is the top pick here, with Zenith close behind."
			case strings.Contains(req.Prompt, "## Response to Analyze:"):
				result.Text = testutil.SampleMentionsJSON()
			case strings.Contains(req.Prompt, "## Text to Analyze:"):
				result.Text = testutil.SampleBrandsJSON()
			default:
				result.Text = testutil.SampleQueriesJSON()
			}
			return result, nil
		},
	}
}

func countRequests(mock *testutil.MockTextGenerator, marker string) int {
	n := 0
	for _, req := range mock.Requests {
		switch marker {
		case "collection":
			if req.Schema == nil {
				n++
			}
		default:
			if req.Schema != nil && strings.Contains(req.Prompt, marker) {
				n++
			}
		}
	}
	return n
}

func TestRunAnalysisManualMode(t *testing.T) {
	mock := pipelineMock()
	svc := newAnalysisTestService(mock)

	run, err := svc.RunAnalysis(context.Background(), &services.AnalysisRequest{
		Brand:       "Acme",
		Industry:    "project management software",
		Mode:        models.BrandSourceManual,
		Competitors: []string{"Zenith", "Nimbus"},
	})
	if err != nil {
		t.Fatalf("RunAnalysis() error = %v, want nil", err)
	}

	if run.Stage != models.StageReported {
		t.Errorf("RunAnalysis() stage = %q, want reported", run.Stage)
	}
	if len(run.Queries) != 3 {
		t.Errorf("RunAnalysis() queries = %d, want 3", len(run.Queries))
	}
	if run.Brands.Len() != 3 {
		t.Errorf("RunAnalysis() brands = %v, want 3 tracked", run.Brands.Names)
	}
	if len(run.Responses) != 3 {
		t.Errorf("RunAnalysis() responses = %d, want 3", len(run.Responses))
	}
	if len(run.Details) != 3 {
		t.Errorf("RunAnalysis() details = %d, want 3", len(run.Details))
	}

	if run.Totals[0].Brand != "Acme" {
		t.Errorf("RunAnalysis() leader = %s, want Acme", run.Totals[0].Brand)
	}
	// Nimbus is tracked but never mentioned.
	var nimbus *models.BrandTotal
	for i := range run.Totals {
		if run.Totals[i].Brand == "Nimbus" {
			nimbus = &run.Totals[i]
		}
	}
	if nimbus == nil || nimbus.TotalScore != 0 {
		t.Errorf("RunAnalysis() Nimbus total = %+v, want zero entry", nimbus)
	}

	if len(run.Insights) == 0 {
		t.Error("RunAnalysis() produced no insights")
	}

	// 1 generation + 3 collections + 3 extractions.
	if run.Usage.Calls != 7 {
		t.Errorf("RunAnalysis() usage calls = %d, want 7", run.Usage.Calls)
	}
	if countRequests(mock, "collection") != 3 {
		t.Errorf("collection requests = %d, want 3", countRequests(mock, "collection"))
	}
}

func TestRunAnalysisManualQueriesSkipGeneration(t *testing.T) {
	mock := pipelineMock()
	svc := newAnalysisTestService(mock)

	run, err := svc.RunAnalysis(context.Background(), &services.AnalysisRequest{
		Brand:         "Acme",
		Industry:      "project management software",
		Mode:          models.BrandSourceManual,
		Competitors:   []string{"Zenith"},
		ManualQueries: []string{"  best PM tool? ", "best pm tool?", "top trackers?"},
	})
	if err != nil {
		t.Fatalf("RunAnalysis() error = %v, want nil", err)
	}

	// Normalization trims and drops the case-insensitive duplicate.
	want := []string{"best PM tool?", "top trackers?"}
	if len(run.Queries) != len(want) {
		t.Fatalf("RunAnalysis() queries = %v, want %v", run.Queries, want)
	}

	if n := countRequests(mock, "Produce exactly"); n != 0 {
		t.Errorf("generation requests = %d, want 0 with manual queries", n)
	}
}

func TestRunAnalysisCorpusModeReusesResponses(t *testing.T) {
	mock := pipelineMock()
	svc := newAnalysisTestService(mock)

	run, err := svc.RunAnalysis(context.Background(), &services.AnalysisRequest{
		Brand:    "Acme",
		Industry: "project management software",
		Mode:     models.BrandSourceCorpus,
	})
	if err != nil {
		t.Fatalf("RunAnalysis() error = %v, want nil", err)
	}

	if run.Stage != models.StageReported {
		t.Errorf("RunAnalysis() stage = %q, want reported", run.Stage)
	}

	// Discovery collected all three responses; they are reused, never
	// collected twice.
	if n := countRequests(mock, "collection"); n != 3 {
		t.Errorf("collection requests = %d, want 3 (corpus reuse)", n)
	}
	if len(run.Responses) != 3 {
		t.Errorf("RunAnalysis() responses = %d, want 3", len(run.Responses))
	}
	if n := countRequests(mock, "## Text to Analyze:"); n != 1 {
		t.Errorf("discovery requests = %d, want 1", n)
	}

	// Discovery found Zenith and Nimbus alongside the self brand.
	if run.Brands.Len() != 3 {
		t.Errorf("RunAnalysis() brands = %v, want 3 tracked", run.Brands.Names)
	}

	// 1 generation + 3 collections + 1 discovery + 3 extractions.
	if run.Usage.Calls != 8 {
		t.Errorf("RunAnalysis() usage calls = %d, want 8", run.Usage.Calls)
	}
}

func TestRunAnalysisFirstQueryModeCollectsFresh(t *testing.T) {
	mock := pipelineMock()
	svc := newAnalysisTestService(mock)

	run, err := svc.RunAnalysis(context.Background(), &services.AnalysisRequest{
		Brand:    "Acme",
		Industry: "project management software",
		Mode:     models.BrandSourceFirstQuery,
	})
	if err != nil {
		t.Fatalf("RunAnalysis() error = %v, want nil", err)
	}

	// One probe plus the full collection pass.
	if n := countRequests(mock, "collection"); n != 4 {
		t.Errorf("collection requests = %d, want 4 (probe + 3)", n)
	}
	if len(run.Responses) != 3 {
		t.Errorf("RunAnalysis() responses = %d, want 3", len(run.Responses))
	}

	// 1 generation + 1 probe + 1 discovery + 3 collections + 3 extractions.
	if run.Usage.Calls != 9 {
		t.Errorf("RunAnalysis() usage calls = %d, want 9", run.Usage.Calls)
	}
}

func TestRunAnalysisAuditsFailedCollection(t *testing.T) {
	queries := testutil.SampleQueries()
	base := pipelineMock()
	mock := &testutil.MockTextGenerator{
		GenerateFunc: func(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
			if req.Schema == nil && req.Prompt == queries[1] {
				return nil, errors.New("model unavailable")
			}
			return base.GenerateFunc(ctx, req)
		},
	}
	svc := newAnalysisTestService(mock)

	run, err := svc.RunAnalysis(context.Background(), &services.AnalysisRequest{
		Brand:         "Acme",
		Industry:      "project management software",
		Mode:          models.BrandSourceManual,
		Competitors:   []string{"Zenith"},
		ManualQueries: queries,
	})
	if err != nil {
		t.Fatalf("RunAnalysis() error = %v, want nil", err)
	}

	if run.Stage != models.StageReported {
		t.Errorf("RunAnalysis() stage = %q, want reported", run.Stage)
	}

	detail := run.Details[1]
	if !strings.Contains(detail.Note, "collection failed") {
		t.Errorf("failed query detail note = %q, want collection failure", detail.Note)
	}
	if detail.QueryScore != 0 {
		t.Errorf("failed query score = %v, want 0", detail.QueryScore)
	}

	// The failed response never reaches the extractor.
	if n := countRequests(mock, "## Response to Analyze:"); n != 2 {
		t.Errorf("extraction requests = %d, want 2", n)
	}

	found := false
	for _, insight := range run.Insights {
		if strings.Contains(insight, "failed collection") {
			found = true
		}
	}
	if !found {
		t.Errorf("RunAnalysis() insights = %v, want a failed-collection insight", run.Insights)
	}
}

func TestRescoreWidensBrandSet(t *testing.T) {
	widened := false
	base := pipelineMock()
	mock := &testutil.MockTextGenerator{
		GenerateFunc: func(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
			if widened && req.Schema != nil && strings.Contains(req.Prompt, "## Response to Analyze:") {
				return &common.GenerateResult{Text: `{"mentions": [
					{"brand_name": "Acme", "sentiment": "positive"},
					{"brand_name": "Zenith", "sentiment": "neutral"},
					{"brand_name": "Vertex", "sentiment": "positive"}
				]}`, InputTokens: 100, OutputTokens: 50, Cost: 0.001}, nil
			}
			return base.GenerateFunc(ctx, req)
		},
	}
	svc := newAnalysisTestService(mock)

	run, err := svc.RunAnalysis(context.Background(), &services.AnalysisRequest{
		Brand:       "Acme",
		Industry:    "project management software",
		Mode:        models.BrandSourceManual,
		Competitors: []string{"Zenith"},
	})
	if err != nil {
		t.Fatalf("RunAnalysis() error = %v, want nil", err)
	}
	collectionsBefore := countRequests(mock, "collection")

	widened = true
	if err := svc.Rescore(context.Background(), run, []string{"Vertex"}); err != nil {
		t.Fatalf("Rescore() error = %v, want nil", err)
	}

	if run.Stage != models.StageReported {
		t.Errorf("Rescore() stage = %q, want reported", run.Stage)
	}
	if !run.Brands.Contains("Vertex") {
		t.Errorf("Rescore() brands = %v, want Vertex tracked", run.Brands.Names)
	}

	var vertex *models.BrandTotal
	for i := range run.Totals {
		if run.Totals[i].Brand == "Vertex" {
			vertex = &run.Totals[i]
		}
	}
	if vertex == nil || vertex.TotalScore == 0 {
		t.Errorf("Rescore() Vertex total = %+v, want contributing entry", vertex)
	}

	// Responses are reused; no second collection pass.
	if n := countRequests(mock, "collection"); n != collectionsBefore {
		t.Errorf("collection requests after rescore = %d, want %d", n, collectionsBefore)
	}
}

func TestRescoreRequiresResponses(t *testing.T) {
	svc := newAnalysisTestService(pipelineMock())

	run := models.NewAnalysisRun("Acme", "crm", models.BrandSourceManual)
	if err := svc.Rescore(context.Background(), run, nil); err == nil {
		t.Error("Rescore() error = nil, want error before responses collected")
	}
}

func TestRunAnalysisValidation(t *testing.T) {
	svc := newAnalysisTestService(pipelineMock())

	if _, err := svc.RunAnalysis(context.Background(), nil); err == nil {
		t.Error("RunAnalysis(nil) error = nil, want error")
	}
	if _, err := svc.RunAnalysis(context.Background(), &services.AnalysisRequest{Industry: "crm"}); err == nil {
		t.Error("RunAnalysis() error = nil, want error for blank brand")
	}
}
