// services/scoring_service.go
package services

import (
	"fmt"
	"sort"

	"github.com/brandvoice/sov-workflows/internal/models"
)

// ScoringConfig carries the scoring tables. The defaults implement the
// standard law; harnesses may inject variants.
type ScoringConfig struct {
	// PositionScores maps 0-based rank to base score; ranks past the end
	// score FloorScore.
	PositionScores []float64
	FloorScore     float64

	// SentimentMultipliers weight the base score; sentiments missing from
	// the table fail open with DefaultMultiplier.
	SentimentMultipliers map[models.Sentiment]float64
	DefaultMultiplier    float64
}

// DefaultScoringConfig returns the standard tables: 3.0 / 2.0 / 1.0-floor
// position scores and 1.5 / 1.0 / 0.0 sentiment multipliers.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		PositionScores: []float64{3.0, 2.0},
		FloorScore:     1.0,
		SentimentMultipliers: map[models.Sentiment]float64{
			models.SentimentPositive: 1.5,
			models.SentimentNeutral:  1.0,
			models.SentimentNegative: 0.0,
		},
		DefaultMultiplier: 1.0,
	}
}

type scoringEngine struct {
	cfg ScoringConfig
}

// NewScoringEngine builds an engine around the given tables. Nil tables
// fall back to the defaults so a zero config never scores everything 0.
func NewScoringEngine(cfg ScoringConfig) ScoringEngine {
	defaults := DefaultScoringConfig()
	if len(cfg.PositionScores) == 0 {
		cfg.PositionScores = defaults.PositionScores
		cfg.FloorScore = defaults.FloorScore
	}
	if cfg.SentimentMultipliers == nil {
		cfg.SentimentMultipliers = defaults.SentimentMultipliers
		cfg.DefaultMultiplier = defaults.DefaultMultiplier
	}
	return &scoringEngine{cfg: cfg}
}

// Score accumulates mention scores into per-brand totals and share
// percentages. It is pure and strictly sequential: response order, then
// mention order, so identical inputs give bit-identical totals.
func (e *scoringEngine) Score(items []ScoringItem, brands *models.BrandSet) *ScoringResult {
	result := &ScoringResult{
		Totals:  make([]models.BrandTotal, 0, brands.Len()),
		Details: make([]models.AnalysisDetail, 0, len(items)),
	}
	totals := make(map[string]float64, brands.Len())

	for _, item := range items {
		detail := models.AnalysisDetail{Note: item.Note}
		if item.Response != nil {
			detail.Query = item.Response.Query
			detail.Response = item.Response.Text
		}

		if item.Response != nil && item.Response.Failed() {
			if detail.Note == "" {
				detail.Note = fmt.Sprintf("collection failed: %s", item.Response.Error)
			}
			result.Details = append(result.Details, detail)
			continue
		}

		var queryScore float64
		for _, m := range item.Mentions {
			score := e.mentionScore(m)
			display, tracked := brands.Resolve(m.Brand)
			contributing := tracked && score > 0

			detail.Mentions = append(detail.Mentions, models.ScoredMention{
				Mention:      m,
				Score:        score,
				Contributing: contributing,
			})
			if contributing {
				totals[display] += score
				queryScore += score
			}
		}

		detail.QueryScore = queryScore
		result.Denominator += queryScore
		result.Details = append(result.Details, detail)
	}

	for _, name := range brands.Names {
		total := totals[name]
		share := 0.0
		if result.Denominator > 0 {
			share = total / result.Denominator * 100
		}
		result.Totals = append(result.Totals, models.BrandTotal{
			Brand:        name,
			TotalScore:   total,
			SharePercent: share,
		})
	}

	sort.SliceStable(result.Totals, func(i, j int) bool {
		if result.Totals[i].TotalScore != result.Totals[j].TotalScore {
			return result.Totals[i].TotalScore > result.Totals[j].TotalScore
		}
		return result.Totals[i].SharePercent > result.Totals[j].SharePercent
	})

	return result
}

func (e *scoringEngine) mentionScore(m models.Mention) float64 {
	base := e.cfg.FloorScore
	if m.Rank >= 0 && m.Rank < len(e.cfg.PositionScores) {
		base = e.cfg.PositionScores[m.Rank]
	}

	multiplier, ok := e.cfg.SentimentMultipliers[normalizeSentiment(string(m.Sentiment))]
	if !ok {
		multiplier = e.cfg.DefaultMultiplier
	}
	return base * multiplier
}
