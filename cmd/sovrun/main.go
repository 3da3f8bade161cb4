package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/models"
	"github.com/brandvoice/sov-workflows/internal/providers"
	"github.com/brandvoice/sov-workflows/services"
)

// Standalone one-shot runner: drives the full pipeline from the command
// line without the inngest server. Intentionally duplicates the service
// wiring from main.go.
func main() {
	var (
		brand       = flag.String("brand", "", "brand to analyze (required)")
		industry    = flag.String("industry", "", "industry context for query generation")
		mode        = flag.String("mode", "manual", "brand sourcing mode: manual, first_query or corpus")
		competitors = flag.String("competitors", "", "comma-separated competitor brands (manual mode)")
		queriesFile = flag.String("queries-file", "", "optional file of queries to use instead of generation (one per line)")
		count       = flag.Int("count", 0, "number of queries to generate (0 = config default)")
		details     = flag.Bool("details", false, "print the per-query audit trail")
		verbose     = flag.Bool("verbose", false, "log pipeline progress")
		timeout     = flag.Duration("timeout", 10*time.Minute, "overall timeout for the run")
	)
	flag.Parse()

	// Load env vars like the main service (but this tool is intentionally standalone).
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("dev.env")
	}
	cfg := config.Load()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if strings.TrimSpace(*brand) == "" {
		log.Fatalf("--brand is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	analysisService, err := buildAnalysisService(cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	req := &services.AnalysisRequest{
		Brand:       *brand,
		Industry:    *industry,
		Mode:        models.BrandSourcingMode(*mode),
		Competitors: splitList(*competitors),
		QueryCount:  *count,
	}
	if *queriesFile != "" {
		queries, err := readQueries(*queriesFile)
		if err != nil {
			log.Fatalf("Failed reading queries file: %v", err)
		}
		req.ManualQueries = queries
	}

	started := time.Now()
	run, err := analysisService.RunAnalysis(ctx, req)
	if err != nil {
		if run != nil {
			fmt.Printf("❌ Run %s failed at stage %s\n", run.RunID, run.Stage)
		}
		log.Fatalf("Analysis failed: %v", err)
	}

	printReport(run, time.Since(started), *details)
}

func buildAnalysisService(cfg *config.Config) (services.AnalysisService, error) {
	costService := services.NewCostService()

	generationProvider, err := providers.NewProvider(cfg.GenerationModel, cfg, costService)
	if err != nil {
		return nil, fmt.Errorf("generation provider: %w", err)
	}
	collectionProvider, err := providers.NewProvider(cfg.CollectionModel, cfg, costService)
	if err != nil {
		return nil, fmt.Errorf("collection provider: %w", err)
	}
	extractionProvider, err := providers.NewProvider(cfg.ExtractionModel, cfg, costService)
	if err != nil {
		return nil, fmt.Errorf("extraction provider: %w", err)
	}

	generationCaller := services.NewResilientCaller(generationProvider, cfg.GenerationModel, services.CallerOptions{
		MaxRetries: cfg.GenerationMaxRetries,
		BaseWait:   cfg.RetryBaseWait,
		RateLimit:  cfg.ProviderRateLimit,
		RateBurst:  cfg.ProviderRateBurst,
	})
	collectionCaller := services.NewResilientCaller(collectionProvider, cfg.CollectionModel, services.CallerOptions{
		MaxRetries: cfg.CollectionMaxRetries,
		BaseWait:   cfg.RetryBaseWait,
		RateLimit:  cfg.ProviderRateLimit,
		RateBurst:  cfg.ProviderRateBurst,
	})
	extractionCaller := services.NewResilientCaller(extractionProvider, cfg.ExtractionModel, services.CallerOptions{
		MaxRetries: cfg.ExtractionMaxRetries,
		BaseWait:   cfg.RetryBaseWait,
		RateLimit:  cfg.ProviderRateLimit,
		RateBurst:  cfg.ProviderRateBurst,
	})

	queryService := services.NewQueryGeneratorService(generationCaller)
	collectorService := services.NewResponseCollectorService(collectionCaller)
	sourcingService := services.NewBrandSourcingService(extractionCaller, collectorService)
	extractorService := services.NewMentionExtractorService(extractionCaller)
	scoringEngine := services.NewScoringEngine(services.DefaultScoringConfig())

	return services.NewAnalysisService(cfg, queryService, sourcingService, collectorService, extractorService, scoringEngine), nil
}

func printReport(run *models.AnalysisRun, elapsed time.Duration, withDetails bool) {
	fmt.Printf("\n🎯 Share of Voice for %s", run.Brand)
	if run.Industry != "" {
		fmt.Printf(" (%s)", run.Industry)
	}
	fmt.Println()
	fmt.Printf("Run %s | mode %s | %d queries | %d tracked brands | %v\n\n",
		run.RunID, run.BrandSource, len(run.Queries), run.Brands.Len(), elapsed.Round(time.Millisecond))

	fmt.Printf("  %4s  %-28s %10s %9s\n", "RANK", "BRAND", "SCORE", "SHARE")
	for i, total := range run.Totals {
		marker := "  "
		if strings.EqualFold(total.Brand, run.Brand) {
			marker = "▶ "
		}
		fmt.Printf("%s%4d  %-28s %10.2f %8.2f%%\n", marker, i+1, total.Brand, total.TotalScore, total.SharePercent)
	}

	if len(run.Insights) > 0 {
		fmt.Println("\nInsights:")
		for _, insight := range run.Insights {
			fmt.Printf("  - %s\n", insight)
		}
	}

	if withDetails {
		fmt.Println("\nPer-query audit:")
		for i, detail := range run.Details {
			fmt.Printf("\n%d. %s (score %.2f)\n", i+1, detail.Query, detail.QueryScore)
			if detail.Note != "" {
				fmt.Printf("   note: %s\n", detail.Note)
			}
			for _, m := range detail.Mentions {
				mark := " "
				if m.Contributing {
					mark = "*"
				}
				fmt.Printf("   %s rank %d  %-28s %-8s %.2f\n", mark, m.Rank, m.Brand, m.Sentiment, m.Score)
			}
		}
	}

	fmt.Printf("\n💰 %d provider calls | %d input / %d output tokens | $%.4f\n",
		run.Usage.Calls, run.Usage.InputTokens, run.Usage.OutputTokens, run.Usage.TotalCost)
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
