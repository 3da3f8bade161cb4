// services/collector_service.go
package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"mvdan.cc/xurls/v2"

	"github.com/brandvoice/sov-workflows/internal/models"
)

// citationPattern matches strict URLs so casual tokens never count as
// citations.
var citationPattern = xurls.Strict()

type responseCollectorService struct {
	caller ResilientCaller
}

func NewResponseCollectorService(caller ResilientCaller) ResponseCollectorService {
	return &responseCollectorService{caller: caller}
}

// Collect runs each query against the answer engine in order. A query that
// fails after its retry budget yields a sentinel response so one bad query
// never sinks the batch; context cancellation aborts the whole batch.
func (s *responseCollectorService) Collect(ctx context.Context, queries []string) (*CollectionResult, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("response collection requires at least one query")
	}

	result := &CollectionResult{
		Responses: make([]*models.CollectedResponse, 0, len(queries)),
	}

	for i, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Info().
			Int("index", i).
			Int("total", len(queries)).
			Str("query", query).
			Msg("[ResponseCollector] 🎯 Collecting response")

		call, err := s.caller.Call(ctx, &CallRequest{Prompt: query})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			log.Warn().
				Err(err).
				Str("query", query).
				Msg("[ResponseCollector] ⚠️ Collection failed, recording error marker")

			result.Responses = append(result.Responses, &models.CollectedResponse{
				Query:     query,
				Text:      models.ResponseErrorMarker,
				Error:     err.Error(),
				Timestamp: time.Now().UTC(),
			})
			result.Failed++
			continue
		}

		result.Responses = append(result.Responses, &models.CollectedResponse{
			Query:        query,
			Text:         call.Text,
			Citations:    extractCitations(call.Text),
			Model:        call.Model,
			InputTokens:  call.InputTokens,
			OutputTokens: call.OutputTokens,
			Cost:         call.Cost,
			Timestamp:    time.Now().UTC(),
		})
		result.Usage.AddCall(call.InputTokens, call.OutputTokens, call.Cost)
	}

	log.Info().
		Int("collected", len(result.Responses)-result.Failed).
		Int("failed", result.Failed).
		Msg("[ResponseCollector] ✅ Collection finished")

	return result, nil
}

// extractCitations pulls the distinct URLs out of a response in order of
// first appearance.
func extractCitations(text string) []string {
	return dedupeMatches(citationPattern, text)
}

func dedupeMatches(pattern *regexp.Regexp, text string) []string {
	matches := pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
