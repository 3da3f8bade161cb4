// internal/models/models.go
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentiment is the label attached to one brand mention by the extractor.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// ResponseErrorMarker is stored in place of answer text when collection
// failed terminally for that query. It keeps failed units visible in the
// audit trail and distinguishable from an empty-but-valid answer.
const ResponseErrorMarker = "[ERROR: response collection failed]"

// BrandSourcingMode selects how the tracked-brand set is resolved.
type BrandSourcingMode string

const (
	BrandSourceManual     BrandSourcingMode = "manual"
	BrandSourceFirstQuery BrandSourcingMode = "first_query"
	BrandSourceCorpus     BrandSourcingMode = "corpus"
)

// RunStage is the pipeline position of an analysis run. Stages advance in
// strict forward order through the guarded transition methods on
// AnalysisRun; re-running a stage resets everything downstream of it.
type RunStage string

const (
	StageConfigured         RunStage = "configured"
	StageQueriesReady       RunStage = "queries_ready"
	StageBrandsReady        RunStage = "brands_ready"
	StageResponsesCollected RunStage = "responses_collected"
	StageScored             RunStage = "scored"
	StageReported           RunStage = "reported"
)

var stageOrder = map[RunStage]int{
	StageConfigured:         0,
	StageQueriesReady:       1,
	StageBrandsReady:        2,
	StageResponsesCollected: 3,
	StageScored:             4,
	StageReported:           5,
}

// AtLeast reports whether s has reached stage other.
func (s RunStage) AtLeast(other RunStage) bool {
	return stageOrder[s] >= stageOrder[other]
}

// CanonicalBrand returns the matching key for a brand name: trimmed and
// case-folded. Mention matching is exact on this key, never fuzzy.
func CanonicalBrand(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BrandSet is the closed, ordered set of tracked brand names. The self
// brand is always the first member. Extraction output naming any brand
// outside the set is discarded.
type BrandSet struct {
	Self  string   `json:"self"`
	Names []string `json:"names"`
}

// NewBrandSet builds a tracked set from the self brand and competitor
// names. Competitors are trimmed and deduplicated on the canonical key;
// blanks and duplicates of the self brand are dropped.
func NewBrandSet(self string, competitors []string) (*BrandSet, error) {
	self = strings.TrimSpace(self)
	if self == "" {
		return nil, fmt.Errorf("brand set requires a non-empty self brand")
	}

	set := &BrandSet{Self: self, Names: []string{self}}
	for _, name := range competitors {
		set.Add(name)
	}
	return set, nil
}

// Add appends a brand unless it is blank or already present canonically.
// It reports whether the brand was added.
func (b *BrandSet) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	key := CanonicalBrand(name)
	for _, existing := range b.Names {
		if CanonicalBrand(existing) == key {
			return false
		}
	}
	b.Names = append(b.Names, name)
	return true
}

// Resolve matches a raw extractor-reported name against the set and
// returns the tracked display spelling.
func (b *BrandSet) Resolve(raw string) (string, bool) {
	key := CanonicalBrand(raw)
	if key == "" {
		return "", false
	}
	for _, name := range b.Names {
		if CanonicalBrand(name) == key {
			return name, true
		}
	}
	return "", false
}

// Contains reports whether the name is a member of the set.
func (b *BrandSet) Contains(raw string) bool {
	_, ok := b.Resolve(raw)
	return ok
}

func (b *BrandSet) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Names)
}

// CollectedResponse is one query's raw collection result. Created once by
// the collector and immutable afterwards. When collection failed
// terminally, Text carries ResponseErrorMarker and Error the cause.
type CollectedResponse struct {
	Query        string    `json:"query"`
	Text         string    `json:"text"`
	Error        string    `json:"error,omitempty"`
	Citations    []string  `json:"citations,omitempty"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Cost         float64   `json:"cost"`
	Timestamp    time.Time `json:"timestamp"`
}

// Failed reports whether this response is a collection-failure sentinel.
// Failed responses are audited with zero score and never sent to the
// mention extractor.
func (r *CollectedResponse) Failed() bool {
	return r.Error != ""
}

// Mention is one extracted brand reference. Rank is the 0-based position
// in the extractor's output sequence for the response.
type Mention struct {
	Brand     string    `json:"brand"`
	Sentiment Sentiment `json:"sentiment"`
	Rank      int       `json:"rank"`
}

// ScoredMention is a mention with its derived score. Contributing is false
// for mentions recorded for audit only (score 0).
type ScoredMention struct {
	Mention
	Score        float64 `json:"score"`
	Contributing bool    `json:"contributing"`
}

// BrandTotal is one tracked brand's accumulated result. Every tracked
// brand gets an entry, zero-score brands included.
type BrandTotal struct {
	Brand        string  `json:"brand"`
	TotalScore   float64 `json:"total_score"`
	SharePercent float64 `json:"share_percent"`
}

// AnalysisDetail is the per-query audit record.
type AnalysisDetail struct {
	Query      string          `json:"query"`
	Response   string          `json:"response"`
	Mentions   []ScoredMention `json:"mentions,omitempty"`
	QueryScore float64         `json:"query_score"`
	Note       string          `json:"note,omitempty"`
}

// RunUsage accumulates provider usage across every call made for a run.
type RunUsage struct {
	Calls        int     `json:"calls"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost"`
}

// AddCall records one provider call's usage.
func (u *RunUsage) AddCall(inputTokens, outputTokens int, cost float64) {
	u.Calls++
	u.InputTokens += inputTokens
	u.OutputTokens += outputTokens
	u.TotalCost += cost
}

// Merge folds another usage record into this one.
func (u *RunUsage) Merge(other RunUsage) {
	u.Calls += other.Calls
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalCost += other.TotalCost
}

// AnalysisRun owns every artifact of one share-of-voice analysis. Nothing
// in it is shared across runs; concurrent runs each hold their own
// accumulator state.
type AnalysisRun struct {
	RunID       uuid.UUID         `json:"run_id"`
	Brand       string            `json:"brand"`
	Industry    string            `json:"industry"`
	BrandSource BrandSourcingMode `json:"brand_source"`
	Stage       RunStage          `json:"stage"`

	Queries   []string             `json:"queries,omitempty"`
	Brands    *BrandSet            `json:"brands,omitempty"`
	Responses []*CollectedResponse `json:"responses,omitempty"`
	Totals    []BrandTotal         `json:"totals,omitempty"`
	Details   []AnalysisDetail     `json:"details,omitempty"`
	Insights  []string             `json:"insights,omitempty"`
	Usage     RunUsage             `json:"usage"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAnalysisRun creates a run in the configured stage.
func NewAnalysisRun(brand, industry string, source BrandSourcingMode) *AnalysisRun {
	now := time.Now().UTC()
	return &AnalysisRun{
		RunID:       uuid.New(),
		Brand:       strings.TrimSpace(brand),
		Industry:    strings.TrimSpace(industry),
		BrandSource: source,
		Stage:       StageConfigured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetQueries stores the finalized query list and advances to
// queries_ready. Queries are trimmed; blanks are dropped. Everything
// downstream of the query list is reset.
func (r *AnalysisRun) SetQueries(queries []string) error {
	trimmed := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q != "" {
			trimmed = append(trimmed, q)
		}
	}
	if len(trimmed) == 0 {
		return fmt.Errorf("run %s: cannot advance to %s without at least one query", r.RunID, StageQueriesReady)
	}

	r.Queries = trimmed
	r.Stage = StageQueriesReady
	r.Brands = nil
	r.resetResponses()
	r.touch()
	return nil
}

// SetBrands stores the resolved tracked-brand set and advances to
// brands_ready. The set must be non-empty and include the run's own brand.
func (r *AnalysisRun) SetBrands(brands *BrandSet) error {
	if !r.Stage.AtLeast(StageQueriesReady) {
		return fmt.Errorf("run %s: cannot resolve brands at stage %q, queries not finalized", r.RunID, r.Stage)
	}
	if brands.Len() == 0 {
		return fmt.Errorf("run %s: cannot advance to %s with an empty brand set", r.RunID, StageBrandsReady)
	}
	if !brands.Contains(r.Brand) {
		return fmt.Errorf("run %s: brand set must include the analyzed brand %q", r.RunID, r.Brand)
	}

	r.Brands = brands
	r.Stage = StageBrandsReady
	r.resetResponses()
	r.touch()
	return nil
}

// SetResponses stores the collected raw responses and advances to
// responses_collected. Scored artifacts are reset.
func (r *AnalysisRun) SetResponses(responses []*CollectedResponse) error {
	if !r.Stage.AtLeast(StageBrandsReady) {
		return fmt.Errorf("run %s: cannot collect responses at stage %q, brand set not resolved", r.RunID, r.Stage)
	}
	if len(responses) == 0 {
		return fmt.Errorf("run %s: cannot advance to %s with zero responses", r.RunID, StageResponsesCollected)
	}

	r.Responses = responses
	r.Stage = StageResponsesCollected
	r.resetScores()
	r.touch()
	return nil
}

// SetScores replaces any previous totals and audit details and advances to
// scored. Re-scoring an already-scored run is allowed and fully replaces
// the prior results.
func (r *AnalysisRun) SetScores(totals []BrandTotal, details []AnalysisDetail) error {
	if !r.Stage.AtLeast(StageResponsesCollected) {
		return fmt.Errorf("run %s: cannot score at stage %q, no responses collected", r.RunID, r.Stage)
	}

	r.Totals = totals
	r.Details = details
	r.Insights = nil
	r.Stage = StageScored
	r.touch()
	return nil
}

// MarkReported records the report insights and finishes the run.
func (r *AnalysisRun) MarkReported(insights []string) error {
	if !r.Stage.AtLeast(StageScored) {
		return fmt.Errorf("run %s: cannot report at stage %q, run not scored", r.RunID, r.Stage)
	}

	r.Insights = insights
	r.Stage = StageReported
	r.touch()
	return nil
}

func (r *AnalysisRun) resetResponses() {
	r.Responses = nil
	r.resetScores()
}

func (r *AnalysisRun) resetScores() {
	r.Totals = nil
	r.Details = nil
	r.Insights = nil
}

func (r *AnalysisRun) touch() {
	r.UpdatedAt = time.Now().UTC()
}
