// services/extraction_service_test.go
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

func TestExtractMentionsSuccess(t *testing.T) {
	mock := &testutil.MockTextGenerator{
		GenerateFunc: func(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
			return &common.GenerateResult{
				Text:         testutil.SampleMentionsJSON(),
				InputTokens:  200,
				OutputTokens: 30,
				Cost:         0.0008,
			}, nil
		},
	}
	svc := services.NewMentionExtractorService(newCallerForTest(mock))

	brands := testutil.SampleBrandSet()
	question := "What are the best project management tools?"
	response := "Acme leads the field. Zenith is a solid runner-up."

	result, err := svc.ExtractMentions(context.Background(), question, response, brands)
	if err != nil {
		t.Fatalf("ExtractMentions() error = %v, want nil", err)
	}
	if result.Note != "" {
		t.Errorf("ExtractMentions() note = %q, want empty", result.Note)
	}

	want := []models.Mention{
		{Brand: "Acme", Sentiment: models.SentimentPositive, Rank: 0},
		{Brand: "Zenith", Sentiment: models.SentimentNeutral, Rank: 1},
	}
	if len(result.Mentions) != len(want) {
		t.Fatalf("ExtractMentions() mentions = %+v, want %+v", result.Mentions, want)
	}
	for i := range want {
		if result.Mentions[i] != want[i] {
			t.Errorf("ExtractMentions() mention[%d] = %+v, want %+v", i, result.Mentions[i], want[i])
		}
	}
	if result.Usage.Calls != 1 {
		t.Errorf("ExtractMentions() usage calls = %d, want 1", result.Usage.Calls)
	}

	if len(mock.Requests) != 1 {
		t.Fatalf("provider received %d requests, want 1", len(mock.Requests))
	}
	req := mock.Requests[0]
	if req.Schema == nil {
		t.Error("ExtractMentions() request carried no schema")
	}
	if req.Temperature == nil || *req.Temperature != 0.1 {
		t.Errorf("ExtractMentions() temperature = %v, want 0.1", req.Temperature)
	}
	for _, fragment := range []string{"Acme, Zenith, Nimbus", question, response, "EXACTLY"} {
		if !strings.Contains(req.Prompt, fragment) {
			t.Errorf("ExtractMentions() prompt missing %q", fragment)
		}
	}
}

func TestExtractMentionsDropsUnknownBrands(t *testing.T) {
	mock := &testutil.MockTextGenerator{
		GenerateFunc: func(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
			return &common.GenerateResult{Text: `{"mentions": [
				{"brand_name": "Vertex", "sentiment": "positive"},
				{"brand_name": "Acme", "sentiment": "positive"}
			]}`}, nil
		},
	}
	svc := services.NewMentionExtractorService(newCallerForTest(mock))

	result, err := svc.ExtractMentions(context.Background(), "q", "text", testutil.SampleBrandSet())
	if err != nil {
		t.Fatalf("ExtractMentions() error = %v, want nil", err)
	}
	if len(result.Mentions) != 1 {
		t.Fatalf("ExtractMentions() kept %d mentions, want 1", len(result.Mentions))
	}

	// The dropped first entry still consumed rank 0.
	got := result.Mentions[0]
	if got.Brand != "Acme" || got.Rank != 1 {
		t.Errorf("ExtractMentions() mention = %+v, want Acme at rank 1", got)
	}
}

func TestExtractMentionsNormalizes(t *testing.T) {
	mock := &testutil.MockTextGenerator{
		GenerateFunc: func(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
			return &common.GenerateResult{Text: `{"mentions": [
				{"brand_name": "  acme ", "sentiment": " POSITIVE "},
				{"brand_name": "ZENITH", "sentiment": "mixed"}
			]}`}, nil
		},
	}
	svc := services.NewMentionExtractorService(newCallerForTest(mock))

	result, err := svc.ExtractMentions(context.Background(), "q", "text", testutil.SampleBrandSet())
	if err != nil {
		t.Fatalf("ExtractMentions() error = %v, want nil", err)
	}
	if len(result.Mentions) != 2 {
		t.Fatalf("ExtractMentions() kept %d mentions, want 2", len(result.Mentions))
	}

	if result.Mentions[0].Brand != "Acme" || result.Mentions[0].Sentiment != models.SentimentPositive {
		t.Errorf("ExtractMentions() mention[0] = %+v, want tracked spelling Acme / Positive", result.Mentions[0])
	}

	// Unrecognized sentiment survives as-is; scoring fails open on it.
	if result.Mentions[1].Sentiment != models.Sentiment("mixed") {
		t.Errorf("ExtractMentions() mention[1] sentiment = %q, want raw mixed", result.Mentions[1].Sentiment)
	}
}

func TestExtractMentionsMalformedOutput(t *testing.T) {
	mock := &testutil.MockTextGenerator{
		GenerateFunc: func(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
			return &common.GenerateResult{Text: "I could not find any brands.", InputTokens: 50, OutputTokens: 8}, nil
		},
	}
	svc := services.NewMentionExtractorService(newCallerForTest(mock))

	result, err := svc.ExtractMentions(context.Background(), "q", "text", testutil.SampleBrandSet())
	if err != nil {
		t.Fatalf("ExtractMentions() error = %v, want nil (degrade, not fail)", err)
	}
	if len(result.Mentions) != 0 {
		t.Errorf("ExtractMentions() mentions = %+v, want none", result.Mentions)
	}
	if !strings.Contains(result.Note, "malformed extraction output") {
		t.Errorf("ExtractMentions() note = %q, want malformed output note", result.Note)
	}
	if result.Usage.Calls != 1 {
		t.Errorf("ExtractMentions() usage calls = %d, want 1", result.Usage.Calls)
	}
}

func TestExtractMentionsCallFailure(t *testing.T) {
	mock := &testutil.MockTextGenerator{
		GenerateFunc: func(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error) {
			return nil, errors.New("model unavailable")
		},
	}
	svc := services.NewMentionExtractorService(newCallerForTest(mock))

	result, err := svc.ExtractMentions(context.Background(), "q", "text", testutil.SampleBrandSet())
	if err != nil {
		t.Fatalf("ExtractMentions() error = %v, want nil (degrade, not fail)", err)
	}
	if !strings.Contains(result.Note, "extraction failed") {
		t.Errorf("ExtractMentions() note = %q, want extraction failure note", result.Note)
	}
	if result.Usage.Calls != 0 {
		t.Errorf("ExtractMentions() usage calls = %d, want 0", result.Usage.Calls)
	}
}

func TestExtractMentionsRequiresBrands(t *testing.T) {
	svc := services.NewMentionExtractorService(newCallerForTest(&testutil.MockTextGenerator{}))

	if _, err := svc.ExtractMentions(context.Background(), "q", "text", nil); err == nil {
		t.Error("ExtractMentions() error = nil, want error for empty tracked set")
	}
}
