// Package evaluator turns breakeven inputs and a market snapshot into
// direction, risk/reward, win probability, SL/TP levels and an expected-return
// score, and splits a portfolio across positions by that score.
//
// Nothing here returns an error. Every step that cannot be computed degrades
// to zero and leaves a note on the result.
package evaluator

import (
	"math"
	"time"

	"options_analyzer/internal/models"
)

const (
	// WinProbMinRR is the risk/reward ratio a position must exceed to get a
	// non-zero win probability.
	WinProbMinRR = 2.0

	stopLossMult   = 1.2
	takeProfitMult = 0.8
)

// Evaluate runs the per-ticker formula. asOf is "today" for days-to-expiry.
func Evaluate(in models.PositionInput, snap models.MarketSnapshot, asOf time.Time) models.PositionResult {
	price := snap.LastPrice
	res := models.PositionResult{
		Ticker: models.NormTicker(in.Ticker),
	}
	if !(price > 0) {
		res.Note("no usable price")
	}

	callAvg := (in.Call1BE + in.Call2BE) / 2
	putAvg := (in.Put1BE + in.Put2BE) / 2
	callDist := math.Abs(callAvg - price)
	putDist := math.Abs(putAvg - price)

	dir := direction(callDist, putDist)

	rr := riskReward(dir, callDist, putDist)
	if !rr.ok {
		res.Note("risk/reward undefined")
	}
	prob := winProb(rr.orZero())

	k := some(snap.DailyReturnStd)
	if !(k.orZero() > 0) {
		res.Note("no volatility history")
	}
	kv := k.orZero()

	sl, tp := levels(dir, price, callDist, putDist)
	dollarSL := math.Abs(sl - price)
	dollarTP := math.Abs(tp - price)

	days := DaysBetween(asOf, in.Expiry)

	timeToSL := undefined
	if kv > 0 {
		timeToSL = div(div(dollarSL, positive(price)).orZero(), kv)
	}

	dtf := undefined
	if tts := timeToSL.orZero(); tts > 0 {
		dtf = div(float64(days), tts)
	}

	ex := undefined
	if prob > 0 && dollarSL > 0 && kv > 0 {
		ex = div(dollarTP*prob, dollarSL*(kv/2)).mul(dtf.orZero())
	}

	res.Price = finite(price)
	res.Direction = dir
	res.DaysToExpiry = days
	res.K = kv
	res.WinProb = prob
	res.TakeProfit = finite(tp)
	res.StopLoss = finite(sl)
	res.RiskReward = rr.orZero()
	res.ExpectedReturn = ex.orZero()
	res.CallAvg = finite(callAvg)
	res.PutAvg = finite(putAvg)
	res.CallDist = finite(callDist)
	res.PutDist = finite(putDist)
	res.DollarSL = finite(dollarSL)
	res.DollarTP = finite(dollarTP)
	res.TimeToSL = timeToSL.orZero()
	res.DaysFactor = dtf.orZero()

	return res
}

// direction labels the side whose breakeven average is farther from price.
// NaN distances compare false both ways and land on Equal.
func direction(callDist, putDist float64) models.Direction {
	switch {
	case callDist > putDist:
		return models.DirectionShort
	case putDist > callDist:
		return models.DirectionLong
	default:
		return models.DirectionEqual
	}
}

func riskReward(dir models.Direction, callDist, putDist float64) maybe {
	switch dir {
	case models.DirectionLong:
		return div(putDist, callDist)
	case models.DirectionShort:
		return div(callDist, putDist)
	default:
		return some(0)
	}
}

func winProb(rr float64) float64 {
	if rr > WinProbMinRR {
		return 1 - 1/rr
	}
	return 0
}

func levels(dir models.Direction, price, callDist, putDist float64) (sl, tp float64) {
	switch dir {
	case models.DirectionLong:
		return price - putDist*stopLossMult, price + putDist*takeProfitMult
	case models.DirectionShort:
		return price + callDist*stopLossMult, price - callDist*takeProfitMult
	default:
		return price, price
	}
}

// positive turns a non-positive denominator into 0 so div reports undefined.
func positive(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// DaysBetween counts whole calendar days from asOf's local date to expiry's
// calendar date. Expiry is a plain date as parsed, its zone is not applied.
// Negative when expiry has passed.
func DaysBetween(asOf, expiry time.Time) int {
	y1, m1, d1 := asOf.Date()
	y2, m2, d2 := expiry.Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int((to.Unix() - from.Unix()) / 86400)
}
