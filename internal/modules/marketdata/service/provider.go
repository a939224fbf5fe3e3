package service

import (
	"context"
	"time"

	"options_analyzer/internal/models"
)

// Provider is the market data surface used by analysis runs.
type Provider interface {
	LastPrice(ctx context.Context, ticker string) (float64, error)
	DailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]models.Close, error)
}

var _ Provider = (*Market)(nil)
