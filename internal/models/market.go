package models

import "time"

type PriceSource string

const (
	PriceSourceLive  PriceSource = "live"
	PriceSourceClose PriceSource = "close"
	PriceSourceNone  PriceSource = "none"
)

// Close is one daily bar close.
type Close struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// MarketSnapshot is what the evaluator needs from market data for one ticker.
type MarketSnapshot struct {
	LastPrice      float64     `json:"last_price"`
	DailyReturnStd float64     `json:"daily_return_std"`
	PriceSource    PriceSource `json:"price_source"`
	HistoryLen     int         `json:"history_len"`
}
