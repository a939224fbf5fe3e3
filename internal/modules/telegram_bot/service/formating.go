package service

import (
	"fmt"
	"strings"

	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"
	"options_analyzer/internal/report"
)

func formatForm(form Form) string {
	var b strings.Builder
	b.WriteString("*📋 Form*\n\n")

	if len(form.Rows) == 0 {
		b.WriteString("_no rows yet_\n")
	} else {
		b.WriteString("```\n")
		for i, r := range form.Rows {
			fmt.Fprintf(&b, "%d. %-6s C %s / %s  P %s / %s  exp %s\n",
				i+1, r.Ticker,
				num(r.Call1BE), num(r.Call2BE),
				num(r.Put1BE), num(r.Put2BE),
				expiry(r),
			)
		}
		b.WriteString("```\n")
	}

	fmt.Fprintf(&b, "\nPortfolio: `$%s`", formatMoney(form.PortfolioValue))
	return b.String()
}

func formatAnalysis(a models.Analysis) string {
	var b strings.Builder
	b.WriteString("*🔎 Results*\n```\n")
	if err := report.WriteTable(&b, a); err != nil {
		// strings.Builder never fails
		return err.Error()
	}
	b.WriteString("```")

	if hasDegraded(a.Results) {
		b.WriteString("\n\\* some values fell back to 0 (no price, no history or undefined ratio)")
	}
	return b.String()
}

func hasDegraded(rs []models.PositionResult) bool {
	for _, r := range rs {
		if r.Degraded {
			return true
		}
	}
	return false
}

func expiry(r models.PositionInput) string {
	if r.Expiry.IsZero() {
		return "-"
	}
	return r.Expiry.Format(config.HistoryDateLayout)
}
