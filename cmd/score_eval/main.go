package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/brandvoice/sov-workflows/internal/models"
	"github.com/brandvoice/sov-workflows/services"
)

// Replays recorded mention fixtures through the scoring engine so scoring
// changes can be checked against known-good totals before they ship.
func main() {
	var (
		mentionsFile = flag.String("mentions", "", "CSV of extracted mentions: query,brand,sentiment,rank (required)")
		brandList    = flag.String("brands", "", "comma-separated tracked brands, self brand first (required)")
		goldenFile   = flag.String("golden", "", "optional CSV of expected totals: brand,total_score,share_percent")
		tolerance    = flag.Float64("tolerance", 0.001, "maximum absolute difference accepted against the golden totals")
	)
	flag.Parse()

	if *mentionsFile == "" || *brandList == "" {
		flag.Usage()
		os.Exit(2)
	}

	names := splitList(*brandList)
	if len(names) == 0 {
		log.Fatalf("--brands must name at least the self brand")
	}
	brands, err := models.NewBrandSet(names[0], names[1:])
	if err != nil {
		log.Fatalf("Invalid brand list: %v", err)
	}

	items, err := readMentions(*mentionsFile)
	if err != nil {
		log.Fatalf("Failed reading mentions: %v", err)
	}

	engine := services.NewScoringEngine(services.DefaultScoringConfig())
	result := engine.Score(items, brands)

	fmt.Printf("📊 Scored %d queries, denominator %.4f\n\n", len(result.Details), result.Denominator)
	fmt.Printf("%-28s %12s %9s\n", "BRAND", "TOTAL", "SHARE")
	for _, total := range result.Totals {
		fmt.Printf("%-28s %12.4f %8.2f%%\n", total.Brand, total.TotalScore, total.SharePercent)
	}

	if *goldenFile == "" {
		return
	}

	expected, err := readGolden(*goldenFile)
	if err != nil {
		log.Fatalf("Failed reading golden totals: %v", err)
	}

	fmt.Println()
	mismatches := 0
	for _, want := range expected {
		got, ok := findTotal(result.Totals, want.Brand)
		if !ok {
			fmt.Printf("❌ %s: missing from scored totals\n", want.Brand)
			mismatches++
			continue
		}
		if abs(got.TotalScore-want.TotalScore) > *tolerance || abs(got.SharePercent-want.SharePercent) > *tolerance {
			fmt.Printf("❌ %s: got total %.4f share %.4f, want total %.4f share %.4f\n",
				want.Brand, got.TotalScore, got.SharePercent, want.TotalScore, want.SharePercent)
			mismatches++
			continue
		}
		fmt.Printf("✅ %s matches\n", want.Brand)
	}

	if mismatches > 0 {
		fmt.Printf("\n❌ %d golden mismatch(es)\n", mismatches)
		os.Exit(1)
	}
	fmt.Println("\n✅ All golden totals match")
}

func readMentions(path string) ([]services.ScoringItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 4
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var order []string
	grouped := map[string][]models.Mention{}
	for i, row := range rows {
		if i == 0 && strings.EqualFold(row[0], "query") {
			continue
		}
		query := strings.TrimSpace(row[0])
		if query == "" {
			return nil, fmt.Errorf("row %d: empty query", i+1)
		}
		rank, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad rank %q: %w", i+1, row[3], err)
		}
		if _, seen := grouped[query]; !seen {
			order = append(order, query)
		}
		grouped[query] = append(grouped[query], models.Mention{
			Brand:     strings.TrimSpace(row[1]),
			Sentiment: models.Sentiment(strings.TrimSpace(row[2])),
			Rank:      rank,
		})
	}

	items := make([]services.ScoringItem, 0, len(order))
	for _, query := range order {
		items = append(items, services.ScoringItem{
			Response: &models.CollectedResponse{Query: query, Text: "(replayed fixture)"},
			Mentions: grouped[query],
		})
	}
	return items, nil
}

func readGolden(path string) ([]models.BrandTotal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var out []models.BrandTotal
	for i, row := range rows {
		if i == 0 && strings.EqualFold(row[0], "brand") {
			continue
		}
		total, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad total %q: %w", i+1, row[1], err)
		}
		share, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad share %q: %w", i+1, row[2], err)
		}
		out = append(out, models.BrandTotal{
			Brand:        strings.TrimSpace(row[0]),
			TotalScore:   total,
			SharePercent: share,
		})
	}
	return out, nil
}

func findTotal(totals []models.BrandTotal, brand string) (models.BrandTotal, bool) {
	for _, total := range totals {
		if strings.EqualFold(total.Brand, brand) {
			return total, true
		}
	}
	return models.BrandTotal{}, false
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

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
