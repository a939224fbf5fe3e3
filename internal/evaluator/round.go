package evaluator

import (
	"github.com/shopspring/decimal"

	"options_analyzer/internal/models"
)

const (
	pricePlaces  = 2
	ratioPlaces  = 4
	percentScale = 100
)

// Round rounds half away from zero to places decimals. Non-finite input
// rounds to 0.
func Round(v float64, places int32) float64 {
	v = finite(v)
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Row is the display projection of r. It never feeds back into calculations.
func Row(r models.PositionResult) models.ResultRow {
	return models.ResultRow{
		Ticker:       r.Ticker,
		Price:        Round(r.Price, pricePlaces),
		Direction:    r.Direction,
		DaysToExpiry: r.DaysToExpiry,
		K:            Round(r.K, ratioPlaces),
		WinProbPct:   Round(r.WinProb*percentScale, pricePlaces),
		TP:           Round(r.TakeProfit, pricePlaces),
		SL:           Round(r.StopLoss, pricePlaces),
		RR:           Round(r.RiskReward, pricePlaces),
		ExpReturn:    Round(r.ExpectedReturn, ratioPlaces),
		Allocation:   Round(r.AllocationDollars, pricePlaces),
		Degraded:     r.Degraded,
	}
}

func Rows(results []models.PositionResult) []models.ResultRow {
	rows := make([]models.ResultRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, Row(r))
	}
	return rows
}
