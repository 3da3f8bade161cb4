// services/extraction_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/models"
)

type mentionExtractorService struct {
	caller ResilientCaller
}

func NewMentionExtractorService(caller ResilientCaller) MentionExtractorService {
	return &mentionExtractorService{caller: caller}
}

// RankedMention is one entry of the extractor's ranked output
type RankedMention struct {
	BrandName string `json:"brand_name" jsonschema_description:"The brand name, exactly as written in the tracked list"`
	Sentiment string `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative" jsonschema_description:"How the mention reads: positive, neutral or negative"`
}

// MentionsResponse represents the structured output for mention extraction.
// The list is wrapped in an object because structured outputs require a
// top-level object schema.
type MentionsResponse struct {
	Mentions []RankedMention `json:"mentions" jsonschema_description:"Tracked brands the text recommends, most prominent first"`
}

// Generate the JSON schema at initialization time
var MentionsSchema = GenerateSchema[MentionsResponse]()

// ExtractMentions pulls the ranked tracked-brand mentions out of one
// response text. Extraction failures degrade to an empty mention list with
// a note instead of an error so one bad response never aborts a run.
func (s *mentionExtractorService) ExtractMentions(ctx context.Context, query, responseText string, brands *models.BrandSet) (*ExtractionResult, error) {
	if brands.Len() == 0 {
		return nil, fmt.Errorf("mention extraction requires a non-empty tracked-brand set")
	}

	result := &ExtractionResult{}

	temp := 0.1
	call, err := s.caller.Call(ctx, &CallRequest{
		Prompt:            s.buildExtractionPrompt(query, responseText, brands),
		SystemInstruction: "You are a high-precision positional and sentiment analysis engine for brand entities.",
		Schema:            MentionsSchema,
		SchemaName:        "mention_extraction",
		SchemaDescription: "Ranked tracked-brand mentions with sentiment",
		Temperature:       &temp,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Note = fmt.Sprintf("extraction failed: %v", err)
		log.Warn().Err(err).Str("query", query).Msg("[MentionExtractor] ⚠️ Extraction call failed")
		return result, nil
	}
	result.Usage.AddCall(call.InputTokens, call.OutputTokens, call.Cost)

	var payload MentionsResponse
	if err := parseStructuredOutput(call.Text, &payload); err != nil {
		// This should never happen with structured outputs
		result.Note = fmt.Sprintf("malformed extraction output: %v", err)
		log.Warn().Err(err).Str("query", query).Msg("[MentionExtractor] ⚠️ Could not parse extraction output")
		return result, nil
	}

	// Rank is the position in the extractor's raw output, so dropped
	// entries still consume their slot.
	for rank, raw := range payload.Mentions {
		display, ok := brands.Resolve(raw.BrandName)
		if !ok {
			log.Debug().
				Str("brand", raw.BrandName).
				Str("query", query).
				Msg("[MentionExtractor] Dropping mention outside the tracked set")
			continue
		}
		result.Mentions = append(result.Mentions, models.Mention{
			Brand:     display,
			Sentiment: normalizeSentiment(raw.Sentiment),
			Rank:      rank,
		})
	}

	log.Info().
		Str("query", query).
		Int("reported", len(payload.Mentions)).
		Int("kept", len(result.Mentions)).
		Msg("[MentionExtractor] ✅ Extraction finished")

	return result, nil
}

// normalizeSentiment maps extractor sentiment spellings onto the canonical
// labels. Unrecognized values pass through untouched and score with the
// fail-open multiplier.
func normalizeSentiment(raw string) models.Sentiment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return models.SentimentPositive
	case "neutral":
		return models.SentimentNeutral
	case "negative":
		return models.SentimentNegative
	default:
		return models.Sentiment(raw)
	}
}

func (s *mentionExtractorService) buildExtractionPrompt(question, response string, brands *models.BrandSet) string {
	return fmt.Sprintf(`## Target Company: %s

## Context
The text below is an answer engine's response to a consumer question. Determine which of the tracked brands it recommends or makes visible, and how each mention reads.

## Tracked Brands:
%s

## Key Rules:
- Rank by prominence: the most recommended brand comes first
- Use brand names EXACTLY as written in the tracked list
- List each brand at most once
- Skip tracked brands the text never mentions
- Never list a brand that is not in the tracked list
- Sentiment must be one of: positive, neutral, negative

## Question Asked:
%s

## Response to Analyze:
%s`,
		brands.Self, strings.Join(brands.Names, ", "), question, response)
}
