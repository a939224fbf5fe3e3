package service

import (
	"sync"

	"options_analyzer/internal/models"

	"github.com/pkg/errors"
)

// Form is one chat's analysis form: ordered rows plus the portfolio value.
type Form struct {
	Rows           []models.PositionInput
	PortfolioValue float64
}

// Request is a copy of the form safe to hand to a run.
func (f *Form) Request() models.AnalysisRequest {
	rows := make([]models.PositionInput, len(f.Rows))
	copy(rows, f.Rows)
	return models.AnalysisRequest{Positions: rows, PortfolioValue: f.PortfolioValue}
}

// formStore keeps forms in memory per chat.
type formStore struct {
	mu               sync.Mutex
	m                map[int64]*Form
	defaultPortfolio float64
	maxRows          int
}

func newFormStore(defaultPortfolio float64, maxRows int) *formStore {
	return &formStore{
		m:                make(map[int64]*Form),
		defaultPortfolio: defaultPortfolio,
		maxRows:          maxRows,
	}
}

// snapshot returns a copy of the chat's form, creating it on first use.
func (s *formStore) snapshot(chatID int64) Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.getLocked(chatID)
	out := Form{PortfolioValue: f.PortfolioValue, Rows: make([]models.PositionInput, len(f.Rows))}
	copy(out.Rows, f.Rows)
	return out
}

// addRow appends a row, or replaces the row with the same ticker.
// It returns the row's index.
func (s *formStore) addRow(chatID int64, row models.PositionInput) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.getLocked(chatID)
	row.Ticker = models.NormTicker(row.Ticker)
	for i := range f.Rows {
		if f.Rows[i].Ticker == row.Ticker {
			f.Rows[i] = row
			return i, nil
		}
	}
	if s.maxRows > 0 && len(f.Rows) >= s.maxRows {
		return -1, errors.Wrapf(models.ErrTooManyRows, "max %d", s.maxRows)
	}
	f.Rows = append(f.Rows, row)
	return len(f.Rows) - 1, nil
}

func (s *formStore) removeRow(chatID int64, idx int) (models.PositionInput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.getLocked(chatID)
	if idx < 0 || idx >= len(f.Rows) {
		return models.PositionInput{}, false
	}
	removed := f.Rows[idx]
	f.Rows = append(f.Rows[:idx], f.Rows[idx+1:]...)
	return removed, true
}

// setPortfolio stores v clamped at 0 and returns the stored value.
func (s *formStore) setPortfolio(chatID int64, v float64) float64 {
	if !(v > 0) {
		v = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getLocked(chatID).PortfolioValue = v
	return v
}

func (s *formStore) clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}

func (s *formStore) getLocked(chatID int64) *Form {
	f, ok := s.m[chatID]
	if !ok {
		f = &Form{PortfolioValue: s.defaultPortfolio}
		s.m[chatID] = f
	}
	return f
}
