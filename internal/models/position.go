package models

import (
	"strings"
	"time"
)

type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
	DirectionEqual Direction = "Equal"
)

// PositionInput is one form row: the four breakevens of an option strategy on
// a ticker and its expiry. Numbers are taken as entered.
type PositionInput struct {
	Ticker  string    `json:"ticker" yaml:"ticker"`
	Call1BE float64   `json:"call1_be" yaml:"call1_be"`
	Call2BE float64   `json:"call2_be" yaml:"call2_be"`
	Put1BE  float64   `json:"put1_be" yaml:"put1_be"`
	Put2BE  float64   `json:"put2_be" yaml:"put2_be"`
	Expiry  time.Time `json:"expiry" yaml:"-"`
}

// NormTicker trims and upper-cases a symbol the way the form stores it.
func NormTicker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Empty reports whether the row has no ticker and must be skipped.
func (p PositionInput) Empty() bool {
	return NormTicker(p.Ticker) == ""
}

// PositionResult holds the unrounded outputs for one evaluated row.
type PositionResult struct {
	Ticker       string    `json:"ticker"`
	Price        float64   `json:"price"`
	Direction    Direction `json:"direction"`
	DaysToExpiry int       `json:"days_to_expiry"`
	K            float64   `json:"k"`
	WinProb      float64   `json:"win_prob"`
	TakeProfit   float64   `json:"take_profit"`
	StopLoss     float64   `json:"stop_loss"`
	RiskReward   float64   `json:"risk_reward"`

	ExpectedReturn    float64 `json:"expected_return"`
	AllocationDollars float64 `json:"allocation_dollars"`

	CallAvg    float64 `json:"call_avg"`
	PutAvg     float64 `json:"put_avg"`
	CallDist   float64 `json:"call_dist"`
	PutDist    float64 `json:"put_dist"`
	DollarSL   float64 `json:"dollar_sl"`
	DollarTP   float64 `json:"dollar_tp"`
	TimeToSL   float64 `json:"time_to_sl"`
	DaysFactor float64 `json:"days_factor"`

	// Degraded is set when a step fell back to zero; Notes says which.
	Degraded bool     `json:"degraded"`
	Notes    []string `json:"notes,omitempty"`
}

func (r *PositionResult) Note(msg string) {
	r.Degraded = true
	r.Notes = append(r.Notes, msg)
}

// ResultRow is the display projection of a PositionResult.
type ResultRow struct {
	Ticker       string    `json:"ticker"`
	Price        float64   `json:"price"`
	Direction    Direction `json:"direction"`
	DaysToExpiry int       `json:"days_to_expiry"`
	K            float64   `json:"k_daily_vol"`
	WinProbPct   float64   `json:"win_prob_pct"`
	TP           float64   `json:"tp"`
	SL           float64   `json:"sl"`
	RR           float64   `json:"rr"`
	ExpReturn    float64   `json:"exp_return"`
	Allocation   float64   `json:"allocation"`
	Degraded     bool      `json:"degraded,omitempty"`
}
