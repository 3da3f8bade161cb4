// workflows/scheduled_processor.go
package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/models"
	"github.com/brandvoice/sov-workflows/services"
)

type ScheduledProcessor struct {
	cfg         *config.Config
	costService services.CostService
	client      inngestgo.Client
}

func NewScheduledProcessor(cfg *config.Config, costService services.CostService) *ScheduledProcessor {
	return &ScheduledProcessor{
		cfg:         cfg,
		costService: costService,
	}
}

func (p *ScheduledProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

func (p *ScheduledProcessor) DailyWatchlistProcessor() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "daily-watchlist-processor",
			Name: "Daily Watchlist Processor - Share of Voice Refresh",
		},
		inngestgo.CronTrigger("0 2 * * *"), // Every day at 2 AM UTC
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			now := time.Now()
			watchlist := p.cfg.Watchlist

			if len(watchlist) == 0 {
				return map[string]interface{}{
					"execution_date":     now.Format("2006-01-02"),
					"total_brands_found": 0,
					"message":            "No brands on the watchlist, nothing to refresh",
				}, nil
			}

			// Loop over each watchlist entry and trigger an idempotent step-run for each.
			// This ensures if the workflow fails, it only retries sends that didn't complete.
			triggered := make([]string, 0, len(watchlist))
			for i, entry := range watchlist {
				// Create a unique step name for each brand
				stepName := fmt.Sprintf("trigger-analysis-%d-%s", i, slugifyBrand(entry.Brand))

				// This step.Run is now *inside* the loop and is idempotent per-brand
				_, err := step.Run(ctx, stepName, func(ctx context.Context) (interface{}, error) {
					evt := inngestgo.Event{
						Name: "analysis.process",
						Data: map[string]interface{}{
							"brand":        entry.Brand,
							"industry":     entry.Industry,
							"mode":         string(models.BrandSourceCorpus),
							"triggered_by": "watchlist_scheduler",
						},
					}
					// Send the single event
					return p.client.Send(ctx, evt)
				})

				if err != nil {
					// Log the error but continue processing other brands
					fmt.Printf("Warning: Failed to send event for brand %s: %v\n", entry.Brand, err)
					// Do not return the error, to allow other brands to process
					continue
				}
				triggered = append(triggered, entry.Brand)
			}

			return map[string]interface{}{
				"execution_date":     now.Format("2006-01-02"),
				"total_brands_found": len(watchlist),
				"brands_triggered":   triggered,
				"message":            fmt.Sprintf("Triggered %d share-of-voice pipelines from the watchlist", len(triggered)),
			}, nil
		},
	)

	if err != nil {
		fmt.Printf("Failed to create daily watchlist processor function: %v\n", err)
	}

	return fn
}

func slugifyBrand(brand string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(brand), " ", "-"))
}
