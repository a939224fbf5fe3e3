package evaluator

import "options_analyzer/internal/models"

// TotalExpectedReturn sums the unrounded expected-return scores.
func TotalExpectedReturn(results []models.PositionResult) float64 {
	var total float64
	for _, r := range results {
		total += r.ExpectedReturn
	}
	return total
}

// Allocate returns a copy of results with AllocationDollars set to each
// position's share of the total expected return times portfolioValue. When
// the total is not positive every allocation is zero.
func Allocate(results []models.PositionResult, portfolioValue float64) []models.PositionResult {
	out := make([]models.PositionResult, len(results))
	copy(out, results)

	total := TotalExpectedReturn(out)
	for i := range out {
		if total > 0 {
			out[i].AllocationDollars = finite(out[i].ExpectedReturn / total * portfolioValue)
		} else {
			out[i].AllocationDollars = 0
		}
	}
	return out
}
