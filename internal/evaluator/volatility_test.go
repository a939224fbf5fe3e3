package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"options_analyzer/internal/models"
)

func closesOf(prices ...float64) []models.Close {
	start := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.Close, len(prices))
	for i, p := range prices {
		out[i] = models.Close{Date: start.AddDate(0, 0, i), Price: p}
	}
	return out
}

func TestDailyReturnStd(t *testing.T) {
	assert.InDelta(t, 0.024878798886846264, DailyReturnStd(closesOf(100, 102, 101, 105)), 1e-12)
}

func TestDailyReturnStd_Unordered(t *testing.T) {
	c := closesOf(100, 102, 101, 105)
	c[0], c[3] = c[3], c[0]
	assert.InDelta(t, 0.024878798886846264, DailyReturnStd(c), 1e-12)
}

func TestDailyReturnStd_ShortHistory(t *testing.T) {
	assert.Zero(t, DailyReturnStd(nil))
	assert.Zero(t, DailyReturnStd(closesOf(100)))
	assert.Zero(t, DailyReturnStd(closesOf(100, 101)))
}

func TestDailyReturnStd_Flat(t *testing.T) {
	assert.Zero(t, DailyReturnStd(closesOf(50, 50, 50, 50)))
}
