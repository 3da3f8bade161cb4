// workflows/monitoring.go
package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/inngest/inngestgo"
)

// Add a monitoring function to project provider load for the scheduled runs
func (p *ScheduledProcessor) WeeklyWatchlistReport() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "weekly-watchlist-report",
			Name: "Project Weekly Watchlist Provider Load",
		},
		inngestgo.CronTrigger("0 0 * * 0"), // Every Sunday at midnight
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			brands := len(p.cfg.Watchlist)

			// Corpus-mode run shape: one generation call, one collection per
			// query, one discovery call, one extraction per response.
			callsPerRun := 2*p.cfg.QueryCount + 2
			dailyCalls := brands * callsPerRun

			// Rough per-call token averages
			const avgInput, avgOutput = 600, 350

			costPerRun := p.costService.CalculateCost(providerFor(p.cfg.GenerationModel), p.cfg.GenerationModel, avgInput, avgOutput) +
				float64(p.cfg.QueryCount)*p.costService.CalculateCost(providerFor(p.cfg.CollectionModel), p.cfg.CollectionModel, avgInput, avgOutput) +
				float64(p.cfg.QueryCount+1)*p.costService.CalculateCost(providerFor(p.cfg.ExtractionModel), p.cfg.ExtractionModel, avgInput, avgOutput)

			// Daily call capacity at the configured provider rate limit
			capacity := p.cfg.ProviderRateLimit * 86400
			utilization := 0.0
			if capacity > 0 {
				utilization = float64(dailyCalls) / capacity * 100
			}

			return map[string]interface{}{
				"watchlist_brands":     brands,
				"calls_per_run":        callsPerRun,
				"daily_calls":          dailyCalls,
				"daily_call_capacity":  capacity,
				"utilization_pct":      utilization,
				"cost_per_run":         costPerRun,
				"estimated_daily_cost": float64(brands) * costPerRun,
				"recommendation":       generateLoadRecommendation(utilization),
			}, nil
		},
	)

	if err != nil {
		// Log error
		fmt.Printf("Failed to create weekly watchlist report function: %v\n", err)
	}

	return fn
}

func generateLoadRecommendation(utilization float64) string {
	if utilization < 20 {
		return "Watchlist load is well within the provider rate budget"
	} else if utilization < 60 {
		return "Watchlist load is acceptable but leaves limited headroom"
	}
	return "Consider spreading watchlist runs across the day or raising the rate limit"
}

func providerFor(model string) string {
	switch {
	case strings.Contains(model, "gemini"):
		return "gemini"
	case strings.Contains(model, "claude"):
		return "anthropic"
	}
	return "openai"
}
