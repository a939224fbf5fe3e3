package service

import (
	"strconv"

	"options_analyzer/internal/report"
)

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMoney(v float64) string {
	return report.Money(v)
}
