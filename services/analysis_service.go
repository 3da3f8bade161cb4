// services/analysis_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/metrics"
	"github.com/brandvoice/sov-workflows/internal/models"
)

type analysisService struct {
	cfg       *config.Config
	queries   QueryGeneratorService
	sourcing  BrandSourcingService
	collector ResponseCollectorService
	extractor MentionExtractorService
	scorer    ScoringEngine
}

func NewAnalysisService(
	cfg *config.Config,
	queries QueryGeneratorService,
	sourcing BrandSourcingService,
	collector ResponseCollectorService,
	extractor MentionExtractorService,
	scorer ScoringEngine,
) AnalysisService {
	return &analysisService{
		cfg:       cfg,
		queries:   queries,
		sourcing:  sourcing,
		collector: collector,
		extractor: extractor,
		scorer:    scorer,
	}
}

// RunAnalysis drives one run through every pipeline stage. The partially
// advanced run is returned alongside the error on failure so callers can
// report where it stopped.
func (s *analysisService) RunAnalysis(ctx context.Context, req *AnalysisRequest) (*models.AnalysisRun, error) {
	if req == nil {
		return nil, fmt.Errorf("analysis requires a request")
	}
	mode := req.Mode
	if mode == "" {
		mode = models.BrandSourceManual
	}

	run := models.NewAnalysisRun(req.Brand, req.Industry, mode)
	if run.Brand == "" {
		return nil, fmt.Errorf("analysis requires a brand")
	}

	log.Info().
		Str("run_id", run.RunID.String()).
		Str("brand", run.Brand).
		Str("industry", run.Industry).
		Str("mode", string(mode)).
		Msg("[AnalysisService] 🎯 Starting analysis run")

	if err := s.GenerateQueries(ctx, run, req.ManualQueries, req.QueryCount); err != nil {
		return s.failRun(run, err)
	}
	if err := s.ResolveBrands(ctx, run, req.Competitors); err != nil {
		return s.failRun(run, err)
	}
	// Corpus sourcing already collected the full response set.
	if !run.Stage.AtLeast(models.StageResponsesCollected) {
		if err := s.CollectResponses(ctx, run); err != nil {
			return s.failRun(run, err)
		}
	}
	if err := s.ScoreRun(ctx, run); err != nil {
		return s.failRun(run, err)
	}
	if err := s.BuildReport(ctx, run); err != nil {
		return s.failRun(run, err)
	}

	metrics.AnalysisRuns.WithLabelValues("success").Inc()
	log.Info().
		Str("run_id", run.RunID.String()).
		Int("queries", len(run.Queries)).
		Int("brands", run.Brands.Len()).
		Float64("cost", run.Usage.TotalCost).
		Msg("[AnalysisService] ✅ Analysis run finished")

	return run, nil
}

func (s *analysisService) failRun(run *models.AnalysisRun, err error) (*models.AnalysisRun, error) {
	metrics.AnalysisRuns.WithLabelValues("failure").Inc()
	log.Error().
		Err(err).
		Str("run_id", run.RunID.String()).
		Str("stage", string(run.Stage)).
		Msg("[AnalysisService] ⚠️ Analysis run failed")
	return run, err
}

// GenerateQueries finalizes the run's query list, either normalizing a
// manual list or generating one. Count 0 takes the configured default.
func (s *analysisService) GenerateQueries(ctx context.Context, run *models.AnalysisRun, manualQueries []string, count int) error {
	defer s.observeStage("queries")()

	if count <= 0 {
		count = s.cfg.QueryCount
	}

	var queries []string
	if len(manualQueries) > 0 {
		normalized, err := s.queries.NormalizeQueries(manualQueries)
		if err != nil {
			return fmt.Errorf("manual queries: %w", err)
		}
		queries = normalized
	} else {
		generated, err := s.queries.GenerateQueries(ctx, run.Brand, run.Industry, count)
		if err != nil {
			return err
		}
		run.Usage.Merge(generated.Usage)
		queries = generated.Queries
	}

	return run.SetQueries(queries)
}

// ResolveBrands resolves the tracked-brand set in the run's sourcing mode.
// Corpus sourcing hands back its collected responses, which are attached to
// the run so collection is not repeated.
func (s *analysisService) ResolveBrands(ctx context.Context, run *models.AnalysisRun, competitors []string) error {
	defer s.observeStage("brand_sourcing")()

	result, err := s.sourcing.SourceBrands(ctx, &BrandSourcingRequest{
		Mode:        run.BrandSource,
		Brand:       run.Brand,
		Industry:    run.Industry,
		Competitors: competitors,
		Queries:     run.Queries,
		Limit:       s.cfg.BrandLimit,
	})
	if err != nil {
		return err
	}
	run.Usage.Merge(result.Usage)

	if err := run.SetBrands(result.Brands); err != nil {
		return err
	}
	if len(result.Responses) > 0 {
		return run.SetResponses(result.Responses)
	}
	return nil
}

// CollectResponses runs every finalized query against the answer engine.
func (s *analysisService) CollectResponses(ctx context.Context, run *models.AnalysisRun) error {
	defer s.observeStage("collection")()

	result, err := s.collector.Collect(ctx, run.Queries)
	if err != nil {
		return err
	}
	run.Usage.Merge(result.Usage)
	return run.SetResponses(result.Responses)
}

// ScoreRun extracts mentions from every healthy response and scores the
// run. Failed responses skip extraction and are audited with zero score.
func (s *analysisService) ScoreRun(ctx context.Context, run *models.AnalysisRun) error {
	defer s.observeStage("scoring")()

	if !run.Stage.AtLeast(models.StageResponsesCollected) {
		return fmt.Errorf("run %s: cannot score at stage %q", run.RunID, run.Stage)
	}

	items := make([]ScoringItem, 0, len(run.Responses))
	for _, resp := range run.Responses {
		if resp.Failed() {
			items = append(items, ScoringItem{Response: resp})
			continue
		}

		extraction, err := s.extractor.ExtractMentions(ctx, resp.Query, resp.Text, run.Brands)
		if err != nil {
			return err
		}
		run.Usage.Merge(extraction.Usage)
		items = append(items, ScoringItem{
			Response: resp,
			Mentions: extraction.Mentions,
			Note:     extraction.Note,
		})
	}

	scored := s.scorer.Score(items, run.Brands)
	if err := run.SetScores(scored.Totals, scored.Details); err != nil {
		return err
	}

	if len(scored.Totals) > 0 {
		log.Info().
			Str("run_id", run.RunID.String()).
			Str("leader", scored.Totals[0].Brand).
			Float64("share", scored.Totals[0].SharePercent).
			Float64("denominator", scored.Denominator).
			Msg("[AnalysisService] ✅ Run scored")
	}
	return nil
}

// BuildReport derives the human-readable insights and finishes the run.
func (s *analysisService) BuildReport(ctx context.Context, run *models.AnalysisRun) error {
	defer s.observeStage("report")()
	return run.MarkReported(s.generateInsights(run))
}

// Rescore re-extracts and re-scores an existing run's responses without
// collecting again, optionally widening the tracked set first. The run
// walks back through the guarded stage transitions, so stale totals are
// always replaced.
func (s *analysisService) Rescore(ctx context.Context, run *models.AnalysisRun, addCompetitors []string) error {
	if run == nil {
		return fmt.Errorf("rescore requires a run")
	}
	if !run.Stage.AtLeast(models.StageResponsesCollected) {
		return fmt.Errorf("run %s: cannot rescore at stage %q, no responses collected", run.RunID, run.Stage)
	}

	if len(addCompetitors) > 0 {
		widened, err := models.NewBrandSet(run.Brands.Self, run.Brands.Names)
		if err != nil {
			return err
		}
		added := 0
		for _, name := range addCompetitors {
			if widened.Len() >= s.cfg.BrandLimit {
				break
			}
			if widened.Add(name) {
				added++
			}
		}

		// Responses are collection artifacts independent of the tracked
		// set; re-attach them after the brand transition resets them.
		responses := run.Responses
		if err := run.SetBrands(widened); err != nil {
			return err
		}
		if err := run.SetResponses(responses); err != nil {
			return err
		}

		log.Info().
			Str("run_id", run.RunID.String()).
			Int("added", added).
			Int("brands", widened.Len()).
			Msg("[AnalysisService] 🎯 Rescoring with widened brand set")
	}

	if err := s.ScoreRun(ctx, run); err != nil {
		return err
	}
	return s.BuildReport(ctx, run)
}

func (s *analysisService) observeStage(stage string) func() {
	start := time.Now()
	return func() {
		metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// generateInsights summarizes a scored run in plain sentences.
func (s *analysisService) generateInsights(run *models.AnalysisRun) []string {
	var insights []string

	if len(run.Totals) == 0 {
		return []string{"No scored results are available for this run."}
	}

	leader := run.Totals[0]
	if leader.TotalScore > 0 {
		insights = append(insights, fmt.Sprintf(
			"%s leads with %.1f%% share of voice (weighted score %.2f).",
			leader.Brand, leader.SharePercent, leader.TotalScore))
	} else {
		insights = append(insights, "No tracked brand earned a contributing mention in this run.")
	}

	for position, total := range run.Totals {
		if !strings.EqualFold(total.Brand, run.Brand) {
			continue
		}
		if total.TotalScore > 0 {
			insights = append(insights, fmt.Sprintf(
				"%s ranks #%d of %d tracked brands with %.1f%% share of voice.",
				total.Brand, position+1, len(run.Totals), total.SharePercent))
		} else {
			insights = append(insights, fmt.Sprintf(
				"%s did not earn a contributing mention across %d analyzed responses.",
				total.Brand, len(run.Responses)))
		}
		break
	}

	failed := 0
	for _, resp := range run.Responses {
		if resp.Failed() {
			failed++
		}
	}
	if failed > 0 {
		insights = append(insights, fmt.Sprintf(
			"%d of %d queries failed collection and scored zero.", failed, len(run.Responses)))
	}

	degraded := 0
	for _, detail := range run.Details {
		if detail.Note != "" {
			degraded++
		}
	}
	if degraded > failed {
		insights = append(insights, fmt.Sprintf(
			"%d responses were audited with extraction notes.", degraded-failed))
	}

	insights = append(insights, fmt.Sprintf(
		"Run made %d provider calls (%d input / %d output tokens, $%.4f estimated).",
		run.Usage.Calls, run.Usage.InputTokens, run.Usage.OutputTokens, run.Usage.TotalCost))

	return insights
}
