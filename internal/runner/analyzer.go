package runner

import (
	"context"
	"time"

	"options_analyzer/internal/evaluator"
	"options_analyzer/internal/metrics"
	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"
	"options_analyzer/internal/modules/marketdata/service"
	"options_analyzer/pkg/logger"
	"options_analyzer/pkg/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Source labels where a run came from in metrics and logs.
const (
	SourceTelegram = "telegram"
	SourceHTTP     = "http"
	SourceCLI      = "cli"
)

// Analyzer runs one analysis: a snapshot and an evaluation per non-empty
// row, sequentially in input order, then the pooled allocation.
type Analyzer struct {
	md           service.Provider
	historyStart time.Time
	maxRows      int

	now func() time.Time
}

func NewAnalyzer(cfg *config.Config, md service.Provider) *Analyzer {
	return &Analyzer{
		md:           md,
		historyStart: cfg.HistoryStartDate(),
		maxRows:      cfg.Analysis.MaxRows,
		now:          time.Now,
	}
}

// Run never fails on market data problems: such rows come back degraded.
// It returns an error only for an oversized request or a cancelled ctx.
func (a *Analyzer) Run(ctx context.Context, req models.AnalysisRequest, source string) (models.Analysis, error) {
	if n := filled(req.Positions); a.maxRows > 0 && n > a.maxRows {
		return models.Analysis{}, errors.Wrapf(models.ErrTooManyRows, "%d rows, max %d", n, a.maxRows)
	}

	started := a.now()
	runID := uuid.NewString()

	span, ctx := tracing.StartSpan(ctx, "analysis.Run", map[string]any{
		"run_id": runID,
		"source": source,
		"rows":   len(req.Positions),
	})
	defer span.Finish()

	metrics.AnalysisRuns.WithLabelValues(source).Inc()
	defer func() {
		metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	}()

	portfolio := req.PortfolioValue
	if !(portfolio > 0) {
		portfolio = 0
	}

	results := make([]models.PositionResult, 0, len(req.Positions))
	for _, in := range req.Positions {
		if in.Empty() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return models.Analysis{}, errors.Wrap(err, "analysis cancelled")
		}
		in.Ticker = models.NormTicker(in.Ticker)

		res := a.evaluate(ctx, in, started)
		metrics.PositionsEvaluated.WithLabelValues(string(res.Direction)).Inc()
		if res.Degraded {
			metrics.DegradedPositions.Inc()
			logger.Warn("[RUN %s] %s degraded: %v", runID, res.Ticker, res.Notes)
		}
		results = append(results, res)
	}

	results = evaluator.Allocate(results, portfolio)
	total := evaluator.TotalExpectedReturn(results)

	logger.Info("[RUN %s] source=%s positions=%d total_ex=%.4f took=%s",
		runID, source, len(results), total, time.Since(started).Round(time.Millisecond))

	return models.Analysis{
		RunID:          runID,
		AsOf:           started,
		PortfolioValue: portfolio,
		TotalExpReturn: total,
		Results:        results,
	}, nil
}

func (a *Analyzer) evaluate(ctx context.Context, in models.PositionInput, asOf time.Time) models.PositionResult {
	span, ctx := tracing.StartSpan(ctx, "analysis.Position", map[string]any{"ticker": in.Ticker})
	defer span.Finish()

	snap := a.Snapshot(ctx, in.Ticker, asOf)
	span.SetTag("price_source", string(snap.PriceSource))

	if snap.PriceSource == models.PriceSourceNone {
		return unpriced(in, snap, asOf)
	}
	return evaluator.Evaluate(in, snap, asOf)
}

// Snapshot fetches the last price and the close history for ticker. A missing
// live price falls back to the most recent close.
func (a *Analyzer) Snapshot(ctx context.Context, ticker string, asOf time.Time) models.MarketSnapshot {
	end := today(asOf)

	closes, err := a.md.DailyCloses(ctx, ticker, a.historyStart, end)
	if err != nil {
		logger.Warn("[RUN] %s history: %v", ticker, err)
		closes = nil
	}

	snap := models.MarketSnapshot{
		DailyReturnStd: evaluator.DailyReturnStd(closes),
		HistoryLen:     len(closes),
		PriceSource:    models.PriceSourceNone,
	}

	price, err := a.md.LastPrice(ctx, ticker)
	switch {
	case err == nil && price > 0:
		snap.LastPrice = price
		snap.PriceSource = models.PriceSourceLive
	case len(closes) > 0:
		if err != nil {
			logger.Debug("[RUN] %s live price: %v, using last close", ticker, err)
		}
		snap.LastPrice = latestClose(closes).Price
		snap.PriceSource = models.PriceSourceClose
	default:
		logger.Warn("[RUN] %s: no price available (%v)", ticker, err)
	}
	if !(snap.LastPrice > 0) {
		snap.LastPrice = 0
		snap.PriceSource = models.PriceSourceNone
	}
	return snap
}

// unpriced keeps a row whose price could not be fetched: everything derived
// from price stays zero.
func unpriced(in models.PositionInput, snap models.MarketSnapshot, asOf time.Time) models.PositionResult {
	res := models.PositionResult{
		Ticker:       in.Ticker,
		Direction:    models.DirectionEqual,
		DaysToExpiry: evaluator.DaysBetween(asOf, in.Expiry),
		K:            snap.DailyReturnStd,
	}
	res.Note("price unavailable")
	return res
}

func latestClose(closes []models.Close) models.Close {
	last := closes[0]
	for _, c := range closes[1:] {
		if !c.Date.Before(last.Date) {
			last = c
		}
	}
	return last
}

// today is midnight UTC of asOf's calendar date, the exclusive history end.
func today(asOf time.Time) time.Time {
	y, m, d := asOf.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// filled counts rows with a ticker. Blank rows are skipped, not rejected.
func filled(rows []models.PositionInput) int {
	n := 0
	for _, in := range rows {
		if !in.Empty() {
			n++
		}
	}
	return n
}
