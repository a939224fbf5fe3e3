package evaluator

import (
	"math"
	"sort"

	"github.com/markcheno/go-talib"

	"options_analyzer/internal/models"
)

// DailyReturnStd is the sample standard deviation (n-1) of day-over-day
// percentage changes of the closes, ordered by date. Fewer than two returns
// give 0.
func DailyReturnStd(closes []models.Close) float64 {
	if len(closes) < 3 {
		return 0
	}

	sorted := make([]models.Close, len(closes))
	copy(sorted, closes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	prices := make([]float64, len(sorted))
	for i, c := range sorted {
		prices[i] = c.Price
	}

	// Rocp leaves the lookback slot at index 0.
	returns := talib.Rocp(prices, 1)[1:]
	return finite(sampleStd(returns))
}

func sampleStd(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(n)

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
