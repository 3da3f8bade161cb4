package models_test

import (
	"strings"
	"testing"

	"github.com/brandvoice/sov-workflows/internal/models"
)

func TestNewBrandSet(t *testing.T) {
	tests := []struct {
		name        string
		self        string
		competitors []string
		expectErr   bool
		expectNames []string
	}{
		{
			name:        "self plus competitors",
			self:        "Acme",
			competitors: []string{"Zenith", "Nimbus"},
			expectNames: []string{"Acme", "Zenith", "Nimbus"},
		},
		{
			name:        "self only",
			self:        "Acme",
			competitors: nil,
			expectNames: []string{"Acme"},
		},
		{
			name:        "duplicate competitor dropped case insensitively",
			self:        "Acme",
			competitors: []string{"zenith", "ZENITH", " Zenith "},
			expectNames: []string{"Acme", "zenith"},
		},
		{
			name:        "self duplicate dropped",
			self:        "Acme",
			competitors: []string{"ACME", "Zenith"},
			expectNames: []string{"Acme", "Zenith"},
		},
		{
			name:        "blank competitors dropped",
			self:        "Acme",
			competitors: []string{"", "   ", "Zenith"},
			expectNames: []string{"Acme", "Zenith"},
		},
		{
			name:      "empty self rejected",
			self:      "   ",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := models.NewBrandSet(tt.self, tt.competitors)

			if tt.expectErr {
				if err == nil {
					t.Fatalf("NewBrandSet(%q) error = nil, want error", tt.self)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBrandSet(%q) error = %v, want nil", tt.self, err)
			}

			if len(set.Names) != len(tt.expectNames) {
				t.Fatalf("NewBrandSet() names = %v, want %v", set.Names, tt.expectNames)
			}
			for i, name := range tt.expectNames {
				if set.Names[i] != name {
					t.Errorf("NewBrandSet() names[%d] = %q, want %q", i, set.Names[i], name)
				}
			}
		})
	}
}

func TestBrandSetResolve(t *testing.T) {
	set, err := models.NewBrandSet("Acme", []string{"Zenith Labs"})
	if err != nil {
		t.Fatalf("NewBrandSet() error = %v", err)
	}

	tests := []struct {
		name        string
		raw         string
		expectOK    bool
		expectBrand string
	}{
		{"exact match", "Acme", true, "Acme"},
		{"case folded", "acme", true, "Acme"},
		{"whitespace trimmed", "  ZENITH LABS  ", true, "Zenith Labs"},
		{"unknown brand", "Nimbus", false, ""},
		{"substring is not a match", "Acme Corp", false, ""},
		{"empty input", "   ", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			brand, ok := set.Resolve(tt.raw)
			if ok != tt.expectOK {
				t.Errorf("Resolve(%q) ok = %v, want %v", tt.raw, ok, tt.expectOK)
			}
			if brand != tt.expectBrand {
				t.Errorf("Resolve(%q) = %q, want %q", tt.raw, brand, tt.expectBrand)
			}
		})
	}
}

func TestCanonicalBrand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already canonical", "acme", "acme"},
		{"mixed case", "AcMe", "acme"},
		{"surrounding whitespace", "  Acme  ", "acme"},
		{"interior whitespace preserved", "Zenith Labs", "zenith labs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := models.CanonicalBrand(tt.input); got != tt.expected {
				t.Errorf("CanonicalBrand(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCollectedResponseFailed(t *testing.T) {
	ok := &models.CollectedResponse{Query: "q", Text: "an answer"}
	if ok.Failed() {
		t.Errorf("Failed() = true for successful response, want false")
	}

	empty := &models.CollectedResponse{Query: "q", Text: ""}
	if empty.Failed() {
		t.Errorf("Failed() = true for empty-but-valid response, want false")
	}

	failed := &models.CollectedResponse{
		Query: "q",
		Text:  models.ResponseErrorMarker,
		Error: "provider timeout",
	}
	if !failed.Failed() {
		t.Errorf("Failed() = false for sentinel response, want true")
	}
}

func TestAnalysisRunStageGuards(t *testing.T) {
	queries := []string{"best project tools"}
	brands := func(t *testing.T) *models.BrandSet {
		t.Helper()
		set, err := models.NewBrandSet("Acme", []string{"Zenith"})
		if err != nil {
			t.Fatalf("NewBrandSet() error = %v", err)
		}
		return set
	}
	responses := []*models.CollectedResponse{{Query: "best project tools", Text: "Acme is popular"}}

	t.Run("brands before queries rejected", func(t *testing.T) {
		run := models.NewAnalysisRun("Acme", "software", models.BrandSourceManual)
		if err := run.SetBrands(brands(t)); err == nil {
			t.Errorf("SetBrands() error = nil at stage %q, want error", run.Stage)
		}
	})

	t.Run("responses before brands rejected", func(t *testing.T) {
		run := models.NewAnalysisRun("Acme", "software", models.BrandSourceManual)
		if err := run.SetQueries(queries); err != nil {
			t.Fatalf("SetQueries() error = %v", err)
		}
		if err := run.SetResponses(responses); err == nil {
			t.Errorf("SetResponses() error = nil at stage %q, want error", run.Stage)
		}
	})

	t.Run("scores before responses rejected", func(t *testing.T) {
		run := models.NewAnalysisRun("Acme", "software", models.BrandSourceManual)
		if err := run.SetScores(nil, nil); err == nil {
			t.Errorf("SetScores() error = nil at stage %q, want error", run.Stage)
		}
	})

	t.Run("report before scores rejected", func(t *testing.T) {
		run := models.NewAnalysisRun("Acme", "software", models.BrandSourceManual)
		if err := run.MarkReported(nil); err == nil {
			t.Errorf("MarkReported() error = nil at stage %q, want error", run.Stage)
		}
	})

	t.Run("full forward walk", func(t *testing.T) {
		run := models.NewAnalysisRun("Acme", "software", models.BrandSourceManual)

		if err := run.SetQueries(queries); err != nil {
			t.Fatalf("SetQueries() error = %v", err)
		}
		if run.Stage != models.StageQueriesReady {
			t.Errorf("Stage = %q, want %q", run.Stage, models.StageQueriesReady)
		}

		if err := run.SetBrands(brands(t)); err != nil {
			t.Fatalf("SetBrands() error = %v", err)
		}
		if run.Stage != models.StageBrandsReady {
			t.Errorf("Stage = %q, want %q", run.Stage, models.StageBrandsReady)
		}

		if err := run.SetResponses(responses); err != nil {
			t.Fatalf("SetResponses() error = %v", err)
		}
		if run.Stage != models.StageResponsesCollected {
			t.Errorf("Stage = %q, want %q", run.Stage, models.StageResponsesCollected)
		}

		totals := []models.BrandTotal{{Brand: "Acme", TotalScore: 3, SharePercent: 100}}
		if err := run.SetScores(totals, nil); err != nil {
			t.Fatalf("SetScores() error = %v", err)
		}
		if run.Stage != models.StageScored {
			t.Errorf("Stage = %q, want %q", run.Stage, models.StageScored)
		}

		if err := run.MarkReported([]string{"Acme leads visibility"}); err != nil {
			t.Fatalf("MarkReported() error = %v", err)
		}
		if run.Stage != models.StageReported {
			t.Errorf("Stage = %q, want %q", run.Stage, models.StageReported)
		}
	})
}

func TestAnalysisRunValidationErrors(t *testing.T) {
	run := models.NewAnalysisRun("Acme", "software", models.BrandSourceManual)

	if err := run.SetQueries([]string{"", "   "}); err == nil {
		t.Errorf("SetQueries() error = nil for all-blank queries, want error")
	}

	if err := run.SetQueries([]string{" best tools  ", ""}); err != nil {
		t.Fatalf("SetQueries() error = %v", err)
	}
	if len(run.Queries) != 1 || run.Queries[0] != "best tools" {
		t.Errorf("SetQueries() queries = %v, want [best tools]", run.Queries)
	}

	missingSelf, err := models.NewBrandSet("Zenith", nil)
	if err != nil {
		t.Fatalf("NewBrandSet() error = %v", err)
	}
	if err := run.SetBrands(missingSelf); err == nil {
		t.Errorf("SetBrands() error = nil for set missing the analyzed brand, want error")
	} else if !strings.Contains(err.Error(), "Acme") {
		t.Errorf("SetBrands() error = %v, want mention of the analyzed brand", err)
	}

	set, err := models.NewBrandSet("Acme", nil)
	if err != nil {
		t.Fatalf("NewBrandSet() error = %v", err)
	}
	if err := run.SetBrands(set); err != nil {
		t.Fatalf("SetBrands() error = %v", err)
	}

	if err := run.SetResponses(nil); err == nil {
		t.Errorf("SetResponses() error = nil for empty responses, want error")
	}
}

func TestAnalysisRunRerunResetsDownstream(t *testing.T) {
	run := models.NewAnalysisRun("Acme", "software", models.BrandSourceManual)

	set, err := models.NewBrandSet("Acme", []string{"Zenith"})
	if err != nil {
		t.Fatalf("NewBrandSet() error = %v", err)
	}

	if err := run.SetQueries([]string{"q1"}); err != nil {
		t.Fatalf("SetQueries() error = %v", err)
	}
	if err := run.SetBrands(set); err != nil {
		t.Fatalf("SetBrands() error = %v", err)
	}
	if err := run.SetResponses([]*models.CollectedResponse{{Query: "q1", Text: "Acme wins"}}); err != nil {
		t.Fatalf("SetResponses() error = %v", err)
	}
	if err := run.SetScores([]models.BrandTotal{{Brand: "Acme", TotalScore: 3, SharePercent: 100}}, nil); err != nil {
		t.Fatalf("SetScores() error = %v", err)
	}
	if err := run.MarkReported([]string{"insight"}); err != nil {
		t.Fatalf("MarkReported() error = %v", err)
	}

	// Re-running brand resolution wipes responses, scores and the report.
	if err := run.SetBrands(set); err != nil {
		t.Fatalf("SetBrands() rerun error = %v", err)
	}
	if run.Stage != models.StageBrandsReady {
		t.Errorf("Stage after brand rerun = %q, want %q", run.Stage, models.StageBrandsReady)
	}
	if run.Responses != nil || run.Totals != nil || run.Details != nil || run.Insights != nil {
		t.Errorf("downstream artifacts not reset: responses=%v totals=%v details=%v insights=%v",
			run.Responses, run.Totals, run.Details, run.Insights)
	}

	// Re-running queries wipes the brand set too.
	if err := run.SetQueries([]string{"q2"}); err != nil {
		t.Fatalf("SetQueries() rerun error = %v", err)
	}
	if run.Stage != models.StageQueriesReady {
		t.Errorf("Stage after query rerun = %q, want %q", run.Stage, models.StageQueriesReady)
	}
	if run.Brands != nil {
		t.Errorf("Brands after query rerun = %v, want nil", run.Brands)
	}
}

func TestRunUsage(t *testing.T) {
	var usage models.RunUsage
	usage.AddCall(100, 50, 0.002)
	usage.AddCall(200, 80, 0.003)

	other := models.RunUsage{Calls: 1, InputTokens: 10, OutputTokens: 5, TotalCost: 0.001}
	usage.Merge(other)

	if usage.Calls != 3 {
		t.Errorf("Calls = %d, want 3", usage.Calls)
	}
	if usage.InputTokens != 310 {
		t.Errorf("InputTokens = %d, want 310", usage.InputTokens)
	}
	if usage.OutputTokens != 135 {
		t.Errorf("OutputTokens = %d, want 135", usage.OutputTokens)
	}
	if diff := usage.TotalCost - 0.006; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalCost = %f, want 0.006", usage.TotalCost)
	}
}

func TestRunStageAtLeast(t *testing.T) {
	tests := []struct {
		name     string
		stage    models.RunStage
		other    models.RunStage
		expected bool
	}{
		{"configured below queries_ready", models.StageConfigured, models.StageQueriesReady, false},
		{"scored above responses_collected", models.StageScored, models.StageResponsesCollected, true},
		{"stage reaches itself", models.StageBrandsReady, models.StageBrandsReady, true},
		{"reported reaches everything", models.StageReported, models.StageConfigured, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stage.AtLeast(tt.other); got != tt.expected {
				t.Errorf("AtLeast(%q, %q) = %v, want %v", tt.stage, tt.other, got, tt.expected)
			}
		})
	}
}
