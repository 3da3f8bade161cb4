// workflows/analysis_processor.go
package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/models"
	"github.com/brandvoice/sov-workflows/services"
)

type AnalysisProcessor struct {
	analysisService services.AnalysisService
	client          inngestgo.Client
	cfg             *config.Config
}

func NewAnalysisProcessor(analysisService services.AnalysisService, cfg *config.Config) *AnalysisProcessor {
	return &AnalysisProcessor{
		analysisService: analysisService,
		cfg:             cfg,
	}
}

func (p *AnalysisProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

func (p *AnalysisProcessor) ProcessAnalysis() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "process-analysis",
			Name:    "Process Analysis - Full Share of Voice Pipeline",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger("analysis.process", nil),
		func(ctx context.Context, input inngestgo.Input[AnalysisProcessEvent]) (any, error) {
			evt := input.Event.Data
			log.Info().
				Str("brand", evt.Brand).
				Str("industry", evt.Industry).
				Str("mode", evt.Mode).
				Str("triggered_by", evt.TriggeredBy).
				Msg("[ProcessAnalysis] 🎯 Starting share-of-voice pipeline")

			// Step 1: finalize the query list. The run is created here and
			// threaded through every following step.
			run, err := step.Run(ctx, "generate-queries", func(ctx context.Context) (*models.AnalysisRun, error) {
				mode := models.BrandSourcingMode(evt.Mode)
				if mode == "" {
					mode = models.BrandSourceManual
				}

				r := models.NewAnalysisRun(evt.Brand, evt.Industry, mode)
				if r.Brand == "" {
					return nil, fmt.Errorf("event carries no brand")
				}
				if err := p.analysisService.GenerateQueries(ctx, r, evt.Queries, evt.QueryCount); err != nil {
					return nil, err
				}
				return r, nil
			})
			if err != nil {
				return nil, p.failStep(evt.Brand, "generate-queries", err)
			}

			// Step 2: resolve the tracked-brand set. Corpus sourcing also
			// attaches the responses it collected along the way.
			run, err = step.Run(ctx, "resolve-brands", func(ctx context.Context) (*models.AnalysisRun, error) {
				if err := p.analysisService.ResolveBrands(ctx, run, evt.Competitors); err != nil {
					return nil, err
				}
				return run, nil
			})
			if err != nil {
				return nil, p.failStep(evt.Brand, "resolve-brands", err)
			}

			// Step 3: collect answer-engine responses.
			run, err = step.Run(ctx, "collect-responses", func(ctx context.Context) (*models.AnalysisRun, error) {
				if run.Stage.AtLeast(models.StageResponsesCollected) {
					log.Info().
						Str("run_id", run.RunID.String()).
						Msg("[ProcessAnalysis] Reusing responses collected during brand discovery")
					return run, nil
				}
				if err := p.analysisService.CollectResponses(ctx, run); err != nil {
					return nil, err
				}
				return run, nil
			})
			if err != nil {
				return nil, p.failStep(evt.Brand, "collect-responses", err)
			}

			// Step 4: extract mentions and score the run.
			run, err = step.Run(ctx, "score-run", func(ctx context.Context) (*models.AnalysisRun, error) {
				if err := p.analysisService.ScoreRun(ctx, run); err != nil {
					return nil, err
				}
				return run, nil
			})
			if err != nil {
				return nil, p.failStep(evt.Brand, "score-run", err)
			}

			// Step 5: derive insights and finish the run.
			run, err = step.Run(ctx, "build-report", func(ctx context.Context) (*models.AnalysisRun, error) {
				if err := p.analysisService.BuildReport(ctx, run); err != nil {
					return nil, err
				}
				return run, nil
			})
			if err != nil {
				return nil, p.failStep(evt.Brand, "build-report", err)
			}

			log.Info().
				Str("run_id", run.RunID.String()).
				Str("brand", run.Brand).
				Int("responses", len(run.Responses)).
				Float64("cost", run.Usage.TotalCost).
				Msg("[ProcessAnalysis] ✅ COMPLETED share-of-voice pipeline")

			return map[string]interface{}{
				"run_id":       run.RunID,
				"brand":        run.Brand,
				"industry":     run.Industry,
				"status":       "completed",
				"stage":        run.Stage,
				"totals":       run.Totals,
				"insights":     run.Insights,
				"usage":        run.Usage,
				"completed_at": time.Now().UTC(),
			}, nil
		},
	)
	if err != nil {
		panic(fmt.Errorf("failed to create ProcessAnalysis function: %w", err))
	}
	return fn
}

// failStep alerts on the failed step and wraps the error for inngest.
func (p *AnalysisProcessor) failStep(brand, stepName string, err error) error {
	if alertErr := ReportRunFailureToSlack(p.cfg.SlackWebhookURL, "analysis.process", brand, stepName, err); alertErr != nil {
		log.Warn().Err(alertErr).Msg("[ProcessAnalysis] ⚠️ Could not deliver failure alert")
	}
	return fmt.Errorf("step %s failed: %w", stepName, err)
}

// Event types
type AnalysisProcessEvent struct {
	Brand       string   `json:"brand"`
	Industry    string   `json:"industry"`
	Mode        string   `json:"mode,omitempty"`
	Competitors []string `json:"competitors,omitempty"`
	Queries     []string `json:"queries,omitempty"`
	QueryCount  int      `json:"query_count,omitempty"`
	TriggeredBy string   `json:"triggered_by"`
}
