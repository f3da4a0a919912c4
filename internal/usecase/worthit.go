package usecase

import (
	"math"

	"github.com/worthit/backend/internal/domain"
)

// Verdict messages, checked top-down against the score
const (
	msgNoMarketPrices = "No market prices available"
	msgNoData         = "No data yet"
	msgSteal          = "Unbelievable steal! Grab it right away"
	msgExcellent      = "Excellent deal! Worth every rupee"
	msgFair           = "Fair deal, but check alternatives"
	msgOverpriced     = "Overpriced, negotiate if possible"
	msgSkip           = "Not worth it, better skip"
)

// scoreThresholds maps minimum scores to verdicts, highest first
var scoreThresholds = []struct {
	min     float64
	message string
}{
	{110, msgSteal},
	{100, msgExcellent},
	{85, msgFair},
	{60, msgOverpriced},
}

// WorthItScore compares a user's price against observed market prices.
// Paying below the average scores above 100 without a cap; paying above it
// is penalized at double rate and floored at 0. Non-positive market prices
// are ignored.
func WorthItScore(userPrice float64, marketPrices []float64) domain.ScoreResult {
	var (
		sum   float64
		count int
	)
	for _, p := range marketPrices {
		if p > 0 {
			sum += p
			count++
		}
	}
	if count == 0 {
		return domain.ScoreResult{Message: msgNoMarketPrices}
	}
	avg := sum / float64(count)
	deviation := (userPrice - avg) / avg

	var score float64
	if userPrice <= avg {
		score = round2(100 * (1 - deviation))
	} else {
		score = math.Max(0, round2(100*(1-2*deviation)))
	}

	return domain.ScoreResult{
		Score:    &score,
		AvgPrice: &avg,
		Message:  verdict(score),
	}
}

// PlaceholderScore is reported when there is nothing to score yet
func PlaceholderScore() domain.ScoreResult {
	return domain.ScoreResult{Message: msgNoData}
}

// MarketPrices collects the prices of every successfully priced result
func MarketPrices(results map[string]domain.ProductResult) []float64 {
	prices := make([]float64, 0, len(results))
	for _, r := range results {
		if r.HasPrice() {
			prices = append(prices, *r.Price)
		}
	}
	return prices
}

func verdict(score float64) string {
	for _, t := range scoreThresholds {
		if score >= t.min {
			return t.message
		}
	}
	return msgSkip
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
