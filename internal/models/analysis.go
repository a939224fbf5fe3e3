package models

import "time"

// AnalysisRequest is what a form submits on "Analyze".
type AnalysisRequest struct {
	Positions      []PositionInput `json:"positions" yaml:"positions"`
	PortfolioValue float64         `json:"portfolio_value" yaml:"portfolio_value"`
}

// Analysis is one finished run in input order.
type Analysis struct {
	RunID          string           `json:"run_id"`
	AsOf           time.Time        `json:"as_of"`
	PortfolioValue float64          `json:"portfolio_value"`
	TotalExpReturn float64          `json:"total_exp_return"`
	Results        []PositionResult `json:"results"`
}
