package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/providers"
	"github.com/brandvoice/sov-workflows/internal/providers/common"
	"github.com/brandvoice/sov-workflows/services"
)

func main() {
	fmt.Println("🧪 Provider Smoke Check")

	var (
		prompt  = flag.String("prompt", "Reply with the single word: ready", "probe prompt sent to each provider")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️  No .env file found, using environment variables")
	} else {
		fmt.Println("✅ Loaded .env file")
	}
	fmt.Println()

	cfg := config.Load()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	costService := services.NewCostService()

	fmt.Println("📋 Configured models:")
	fmt.Printf("  - generation: %s\n", cfg.GenerationModel)
	fmt.Printf("  - collection: %s\n", cfg.CollectionModel)
	fmt.Printf("  - extraction: %s\n", cfg.ExtractionModel)
	fmt.Println()

	checked := map[string]bool{}
	failures := 0
	for _, stage := range []struct{ name, model string }{
		{"generation", cfg.GenerationModel},
		{"collection", cfg.CollectionModel},
		{"extraction", cfg.ExtractionModel},
	} {
		if checked[stage.model] {
			fmt.Printf("⏭️  %s: %s already checked\n", stage.name, stage.model)
			continue
		}
		checked[stage.model] = true
		if !checkModel(ctx, cfg, costService, stage.name, stage.model, *prompt) {
			failures++
		}
		fmt.Println()
	}

	if failures > 0 {
		fmt.Printf("❌ %d provider check(s) failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("✅ All configured providers responded")
}

func checkModel(ctx context.Context, cfg *config.Config, costService services.CostService, stage, model, prompt string) bool {
	fmt.Printf("🎯 Checking %s model: %s\n", stage, model)

	provider, err := providers.NewProvider(model, cfg, costService)
	if err != nil {
		fmt.Printf("❌ Failed to create provider: %v\n", err)
		return false
	}

	start := time.Now()
	result, err := provider.Generate(ctx, &common.GenerateRequest{
		Prompt:    prompt,
		MaxTokens: 16,
	})
	if err != nil {
		fmt.Printf("❌ %s: %v\n", provider.GetProviderName(), err)
		return false
	}

	fmt.Printf("✅ %s replied in %v\n", provider.GetProviderName(), time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Response: %s\n", truncate(result.Text, 80))
	fmt.Printf("   Tokens: %d input, %d output\n", result.InputTokens, result.OutputTokens)
	fmt.Printf("   Cost: $%.6f\n", result.Cost)
	return true
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
