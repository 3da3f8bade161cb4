// workflows/rescore_processor.go
package workflows

import (
	"context"
	"fmt"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/models"
)

// RescoreAnalysis re-runs extraction and scoring over a completed run's
// responses, optionally widening the tracked-brand set first. No new
// provider collection happens here.
func (p *AnalysisProcessor) RescoreAnalysis() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "rescore-analysis",
			Name:    "Rescore Analysis - Widen Brands and Rescore",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger("analysis.rescore.process", nil),
		func(ctx context.Context, input inngestgo.Input[RescoreEvent]) (any, error) {
			evt := input.Event.Data

			run, err := step.Run(ctx, "rescore-run", func(ctx context.Context) (*models.AnalysisRun, error) {
				r := evt.Run
				if r == nil {
					return nil, fmt.Errorf("event carries no run to rescore")
				}

				log.Info().
					Str("run_id", r.RunID.String()).
					Str("brand", r.Brand).
					Strs("add_competitors", evt.AddCompetitors).
					Str("triggered_by", evt.TriggeredBy).
					Msg("[RescoreAnalysis] 🎯 Rescoring run")

				if err := p.analysisService.Rescore(ctx, r, evt.AddCompetitors); err != nil {
					return nil, err
				}
				return r, nil
			})
			if err != nil {
				return nil, p.failStep(brandFromRescore(evt), "rescore-run", err)
			}

			log.Info().
				Str("run_id", run.RunID.String()).
				Int("tracked_brands", run.Brands.Len()).
				Msg("[RescoreAnalysis] ✅ COMPLETED rescore")

			return map[string]interface{}{
				"run_id":   run.RunID,
				"brand":    run.Brand,
				"status":   "completed",
				"totals":   run.Totals,
				"insights": run.Insights,
			}, nil
		},
	)
	if err != nil {
		panic(fmt.Errorf("failed to create RescoreAnalysis function: %w", err))
	}
	return fn
}

func brandFromRescore(evt RescoreEvent) string {
	if evt.Run != nil {
		return evt.Run.Brand
	}
	return "unknown"
}

// Event types
type RescoreEvent struct {
	Run            *models.AnalysisRun `json:"run"`
	AddCompetitors []string            `json:"add_competitors,omitempty"`
	TriggeredBy    string              `json:"triggered_by"`
}
