package evaluator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options_analyzer/internal/models"
)

var asOf = time.Date(2026, time.October, 19, 15, 30, 0, 0, time.UTC)

func input(ticker string, c1, c2, p1, p2 float64, days int) models.PositionInput {
	return models.PositionInput{
		Ticker:  ticker,
		Call1BE: c1,
		Call2BE: c2,
		Put1BE:  p1,
		Put2BE:  p2,
		Expiry:  asOf.AddDate(0, 0, days),
	}
}

func TestEvaluate_ShortScenario(t *testing.T) {
	res := Evaluate(
		input("abc", 110, 112, 95, 97, 30),
		models.MarketSnapshot{LastPrice: 100, DailyReturnStd: 0.02},
		asOf,
	)

	assert.Equal(t, "ABC", res.Ticker)
	assert.Equal(t, models.DirectionShort, res.Direction)
	assert.InDelta(t, 111, res.CallAvg, 1e-9)
	assert.InDelta(t, 96, res.PutAvg, 1e-9)
	assert.InDelta(t, 11, res.CallDist, 1e-9)
	assert.InDelta(t, 4, res.PutDist, 1e-9)
	assert.InDelta(t, 2.75, res.RiskReward, 1e-9)
	assert.InDelta(t, 1-1/2.75, res.WinProb, 1e-9)
	assert.InDelta(t, 113.2, res.StopLoss, 1e-9)
	assert.InDelta(t, 91.2, res.TakeProfit, 1e-9)
	assert.Equal(t, 30, res.DaysToExpiry)
	assert.InDelta(t, 6.6, res.TimeToSL, 1e-9)
	assert.InDelta(t, 192.8374655647383, res.ExpectedReturn, 1e-6)
	assert.False(t, res.Degraded)

	row := Row(res)
	assert.Equal(t, 63.64, row.WinProbPct)
	assert.Equal(t, 113.2, row.SL)
	assert.Equal(t, 91.2, row.TP)
	assert.Equal(t, 2.75, row.RR)
	assert.Equal(t, 192.8375, row.ExpReturn)
}

func TestEvaluate_Long(t *testing.T) {
	res := Evaluate(
		input("XYZ", 105, 107, 80, 84, 10),
		models.MarketSnapshot{LastPrice: 100, DailyReturnStd: 0.03},
		asOf,
	)

	assert.Equal(t, models.DirectionLong, res.Direction)
	assert.InDelta(t, 3.0, res.RiskReward, 1e-9)
	assert.InDelta(t, 2.0/3.0, res.WinProb, 1e-9)
	assert.InDelta(t, 78.4, res.StopLoss, 1e-9)
	assert.InDelta(t, 114.4, res.TakeProfit, 1e-9)
	assert.InDelta(t, 41.15226337448559, res.ExpectedReturn, 1e-6)
}

func TestEvaluate_EqualDistances(t *testing.T) {
	cases := []struct {
		name string
		in   models.PositionInput
		px   float64
	}{
		{"symmetric", input("EQ", 110, 110, 90, 90, 5), 100},
		{"both zero", input("ZERO", 100, 100, 100, 100, 5), 100},
		{"all zero inputs", input("NIL", 0, 0, 0, 0, 5), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(tc.in, models.MarketSnapshot{LastPrice: tc.px, DailyReturnStd: 0.02}, asOf)
			assert.Equal(t, models.DirectionEqual, res.Direction)
			assert.Zero(t, res.RiskReward)
			assert.Zero(t, res.WinProb)
			assert.Equal(t, res.Price, res.StopLoss)
			assert.Equal(t, res.Price, res.TakeProfit)
			assert.Zero(t, res.ExpectedReturn)
		})
	}
}

func TestEvaluate_LowRiskRewardHasNoEdge(t *testing.T) {
	// call_dist 8, put_dist 4 => rr exactly 2.
	res := Evaluate(input("TWO", 108, 108, 96, 96, 20), models.MarketSnapshot{LastPrice: 100, DailyReturnStd: 0.02}, asOf)
	require.Equal(t, models.DirectionShort, res.Direction)
	assert.InDelta(t, 2.0, res.RiskReward, 1e-12)
	assert.Equal(t, 0.0, res.WinProb)
	assert.Equal(t, 0.0, res.ExpectedReturn)
}

func TestEvaluate_ZeroDistanceIsUndefined(t *testing.T) {
	// put side sits on the price: Short with put_dist 0.
	res := Evaluate(input("ONPX", 110, 112, 100, 100, 20), models.MarketSnapshot{LastPrice: 100, DailyReturnStd: 0.02}, asOf)

	assert.Equal(t, models.DirectionShort, res.Direction)
	assert.Zero(t, res.RiskReward)
	assert.Zero(t, res.WinProb)
	assert.Zero(t, res.ExpectedReturn)
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Notes, "risk/reward undefined")
}

func TestEvaluate_NoHistory(t *testing.T) {
	res := Evaluate(input("ABC", 110, 112, 95, 97, 30), models.MarketSnapshot{LastPrice: 100}, asOf)

	assert.Equal(t, models.DirectionShort, res.Direction)
	assert.Greater(t, res.WinProb, 0.0)
	assert.Zero(t, res.K)
	assert.Zero(t, res.TimeToSL)
	assert.Zero(t, res.DaysFactor)
	assert.Zero(t, res.ExpectedReturn)
	assert.True(t, res.Degraded)
}

func TestEvaluate_ExpiredStillComputes(t *testing.T) {
	res := Evaluate(input("OLD", 110, 112, 95, 97, -3), models.MarketSnapshot{LastPrice: 100, DailyReturnStd: 0.02}, asOf)

	assert.Equal(t, -3, res.DaysToExpiry)
	assert.Less(t, res.ExpectedReturn, 0.0)
}

func TestEvaluate_GarbageInputsNeverPanic(t *testing.T) {
	nan := math.NaN()
	snaps := []models.MarketSnapshot{
		{LastPrice: 0, DailyReturnStd: 0.02},
		{LastPrice: -5, DailyReturnStd: 0.02},
		{LastPrice: nan, DailyReturnStd: nan},
		{LastPrice: math.Inf(1), DailyReturnStd: 0.02},
	}
	ins := []models.PositionInput{
		input("A", nan, 1, 2, 3, 1),
		input("B", -10, -20, 5, 5, 1),
		input("C", 110, 112, 95, 97, 1),
	}

	for _, s := range snaps {
		for _, in := range ins {
			res := Evaluate(in, s, asOf)
			for _, v := range []float64{
				res.Price, res.K, res.WinProb, res.TakeProfit, res.StopLoss,
				res.RiskReward, res.ExpectedReturn, res.TimeToSL, res.DaysFactor,
			} {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "ticker %s snap %+v", in.Ticker, s)
			}
		}
	}
}

func TestDaysBetween(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)

	now := time.Date(2026, time.March, 7, 23, 0, 0, 0, ny)
	assert.Equal(t, 0, DaysBetween(now, time.Date(2026, time.March, 7, 1, 0, 0, 0, ny)))
	assert.Equal(t, 2, DaysBetween(now, time.Date(2026, time.March, 9, 0, 0, 0, 0, ny)))
	assert.Equal(t, -7, DaysBetween(now, time.Date(2026, time.February, 28, 12, 0, 0, 0, ny)))
}

func TestDaysBetween_ParsedExpiryWestOfUTC(t *testing.T) {
	ny := time.FixedZone("EDT", -4*3600)
	expiry, err := time.Parse("2006-01-02", "2026-11-18")
	require.NoError(t, err)

	assert.Equal(t, 30, DaysBetween(time.Date(2026, time.October, 19, 10, 0, 0, 0, ny), expiry))
	assert.Equal(t, 30, DaysBetween(time.Date(2026, time.October, 19, 23, 30, 0, 0, ny), expiry))
	assert.Equal(t, 0, DaysBetween(time.Date(2026, time.November, 18, 20, 0, 0, 0, ny), expiry))
}
