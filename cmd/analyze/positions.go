package main

import (
	"os"
	"time"

	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type positionsFile struct {
	PortfolioValue *float64 `yaml:"portfolio_value"`
	Positions      []struct {
		Ticker  string  `yaml:"ticker"`
		Call1BE float64 `yaml:"call1_be"`
		Call2BE float64 `yaml:"call2_be"`
		Put1BE  float64 `yaml:"put1_be"`
		Put2BE  float64 `yaml:"put2_be"`
		Expiry  string  `yaml:"expiry"`
	} `yaml:"positions"`
}

// loadPositions reads a YAML positions file. portfolio_value falls back to
// defaultPortfolio when absent.
func loadPositions(path string, defaultPortfolio float64) (models.AnalysisRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.AnalysisRequest{}, errors.Wrapf(err, "read %s", path)
	}
	return parsePositions(data, defaultPortfolio)
}

func parsePositions(data []byte, defaultPortfolio float64) (models.AnalysisRequest, error) {
	var f positionsFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return models.AnalysisRequest{}, errors.Wrap(err, "parse positions")
	}

	req := models.AnalysisRequest{PortfolioValue: defaultPortfolio}
	if f.PortfolioValue != nil {
		req.PortfolioValue = *f.PortfolioValue
	}

	for i, p := range f.Positions {
		in := models.PositionInput{
			Ticker:  models.NormTicker(p.Ticker),
			Call1BE: p.Call1BE,
			Call2BE: p.Call2BE,
			Put1BE:  p.Put1BE,
			Put2BE:  p.Put2BE,
		}
		if !in.Empty() {
			exp, err := time.Parse(config.HistoryDateLayout, p.Expiry)
			if err != nil {
				return models.AnalysisRequest{}, errors.Errorf("positions[%d] %s: expiry %q, want YYYY-MM-DD", i, in.Ticker, p.Expiry)
			}
			in.Expiry = exp
		}
		req.Positions = append(req.Positions, in)
	}
	return req, nil
}
