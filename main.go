// main.go
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/metrics"
	"github.com/brandvoice/sov-workflows/internal/providers"
	"github.com/brandvoice/sov-workflows/services"
	"github.com/brandvoice/sov-workflows/workflows"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("dev.env"); err != nil {
			fmt.Printf("Note: No .env or dev.env file loaded: %v\n", err)
		} else {
			fmt.Println("Loaded dev.env file for local development")
		}
	} else {
		fmt.Println("Loaded .env file")
	}

	cfg := config.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("port", cfg.Port).
		Str("generation_model", cfg.GenerationModel).
		Str("collection_model", cfg.CollectionModel).
		Str("extraction_model", cfg.ExtractionModel).
		Msg("[Main] Starting sov-workflows")

	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("[Main] ⚠️ OpenAI API key not loaded")
	}
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("[Main] ⚠️ Gemini API key not loaded")
	}

	if cfg.Environment == "development" || cfg.Environment == "" {
		os.Unsetenv("INNGEST_SIGNING_KEY")
		cfg.InngestSigningKey = ""
		log.Info().Msg("[Main] Running in development mode - signing key verification disabled")
	}

	costService := services.NewCostService()

	generationProvider, err := providers.NewProvider(cfg.GenerationModel, cfg, costService)
	if err != nil {
		log.Fatal().Err(err).Str("model", cfg.GenerationModel).Msg("[Main] Failed to create generation provider")
	}
	collectionProvider, err := providers.NewProvider(cfg.CollectionModel, cfg, costService)
	if err != nil {
		log.Fatal().Err(err).Str("model", cfg.CollectionModel).Msg("[Main] Failed to create collection provider")
	}
	extractionProvider, err := providers.NewProvider(cfg.ExtractionModel, cfg, costService)
	if err != nil {
		log.Fatal().Err(err).Str("model", cfg.ExtractionModel).Msg("[Main] Failed to create extraction provider")
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

	// Brand discovery shares the extraction caller: both are structured,
	// low-temperature entity tasks.
	queryService := services.NewQueryGeneratorService(generationCaller)
	collectorService := services.NewResponseCollectorService(collectionCaller)
	sourcingService := services.NewBrandSourcingService(extractionCaller, collectorService)
	extractorService := services.NewMentionExtractorService(extractionCaller)
	scoringEngine := services.NewScoringEngine(services.DefaultScoringConfig())
	analysisService := services.NewAnalysisService(cfg, queryService, sourcingService, collectorService, extractorService, scoringEngine)
	log.Info().Msg("[Main] Services initialized")

	client, err := inngestgo.NewClient(
		inngestgo.ClientOpts{
			AppID:    "sov-workflows",
			EventKey: inngestgo.StrPtr(cfg.InngestEventKey),
			Env:      inngestgo.StrPtr(cfg.Environment),
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("[Main] Failed to create Inngest client")
	}

	// Initialize and register workflows
	analysisProcessor := workflows.NewAnalysisProcessor(analysisService, cfg)
	analysisProcessor.SetClient(client)
	analysisProcessor.ProcessAnalysis()
	analysisProcessor.RescoreAnalysis()

	scheduledProcessor := workflows.NewScheduledProcessor(cfg, costService)
	scheduledProcessor.SetClient(client)
	scheduledProcessor.DailyWatchlistProcessor()
	scheduledProcessor.WeeklyWatchlistReport()

	log.Info().Msg("[Main] All processors initialized and functions registered")

	h := client.Serve()
	mux := http.NewServeMux()
	mux.Handle("/api/inngest", h)
	mux.Handle("/metrics", metrics.Handler())

	// Root endpoint for ALB health check
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"service":"sov-workflows","status":"running"}`))
	})

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/test/trigger-analysis", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			Brand       string   `json:"brand"`
			Industry    string   `json:"industry"`
			Mode        string   `json:"mode"`
			Competitors []string `json:"competitors"`
			Queries     []string `json:"queries"`
			QueryCount  int      `json:"query_count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf(`{"error":"invalid request body: %v"}`, err)))
			return
		}
		if body.Brand == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"brand is required"}`))
			return
		}

		evt := inngestgo.Event{
			Name: "analysis.process",
			Data: map[string]interface{}{
				"brand":        body.Brand,
				"industry":     body.Industry,
				"mode":         body.Mode,
				"competitors":  body.Competitors,
				"queries":      body.Queries,
				"query_count":  body.QueryCount,
				"triggered_by": "manual_test",
			},
		}
		result, err := client.Send(r.Context(), evt)
		if err != nil {
			log.Error().Err(err).Msg("[Main] Failed to send test event")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf(`{"error":"Failed to send event: %v"}`, err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fmt.Sprintf(`{"status":"success","message":"Analysis triggered for %s","event_ids":["%s"]}`, body.Brand, result)))
	})

	port := cfg.Port
	log.Info().Str("port", port).Msg("[Main] Starting SoV Workflows service")
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal().Err(err).Msg("[Main] Server stopped")
	}
}
